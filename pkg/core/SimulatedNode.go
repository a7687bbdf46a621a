package core

// VM is an abstract capacity/cost profile tasks are scheduled onto.
type VM struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Capacity is the processing rate in work units per unit of time.
	Capacity        float64 `json:"capacity" yaml:"capacity"`
	CostPerUnitTime float64 `json:"cost_per_unit_time" yaml:"cost_per_unit_time"`
	// ReadyTime is the instant the VM becomes free. Only the simulator
	// advances it, and only on its own copy.
	ReadyTime float64 `json:"ready_time" yaml:"ready_time"`
}

// ExecTime reports how long the VM needs to process length work units.
func (vm VM) ExecTime(length float64) float64 {
	return length / vm.Capacity
}

// CopyVMs returns a copy of vms.
func CopyVMs(vms []VM) []VM {
	out := make([]VM, len(vms))
	copy(out, vms)
	return out
}

func vmIndex(vms []VM) map[int]int {
	idx := make(map[int]int, len(vms))
	for i, vm := range vms {
		idx[vm.ID] = i
	}
	return idx
}
