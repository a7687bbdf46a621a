package core

import (
	"math"

	"github.com/pkg/errors"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Task is one unit of work submitted to the simulated cloud.
type Task struct {
	ID          int     `json:"id" yaml:"id"`
	ArrivalTime float64 `json:"arrival_time" yaml:"arrival_time"`
	// Length is the execution demand in work units.
	Length float64 `json:"length" yaml:"length"`
	// Priority is only used by the Priority strategy. Lower is more urgent.
	Priority int `json:"priority" yaml:"priority"`
	// Footprint is an optional resource weight, used for accounting only.
	Footprint float64 `json:"footprint,omitempty" yaml:"footprint,omitempty"`
}

// Workload is the immutable snapshot every strategy of a run is fed with.
type Workload struct {
	Tasks []Task `json:"tasks" yaml:"tasks"`
	VMs   []VM   `json:"vms" yaml:"vms"`
}

// Clone returns a deep copy so that concurrent consumers never share slices.
func (w *Workload) Clone() *Workload {
	return &Workload{
		Tasks: CopyTasks(w.Tasks),
		VMs:   CopyVMs(w.VMs),
	}
}

// Validate checks the structural invariants of a workload: unique IDs,
// finite positive lengths and capacities, finite non-negative arrivals,
// costs and ready times. NaN fails every check.
func (w *Workload) Validate() error {
	var errs []error
	seenTasks := make(map[int]struct{}, len(w.Tasks))
	for _, t := range w.Tasks {
		if _, ok := seenTasks[t.ID]; ok {
			errs = append(errs, errors.Wrapf(ErrInvalidConfig, "duplicate task id %d", t.ID))
		}
		seenTasks[t.ID] = struct{}{}
		if !(t.Length > 0) || math.IsInf(t.Length, 0) {
			errs = append(errs, errors.Wrapf(ErrInvalidConfig, "task %d length %v must be positive and finite", t.ID, t.Length))
		}
		if !(t.ArrivalTime >= 0) || math.IsInf(t.ArrivalTime, 0) {
			errs = append(errs, errors.Wrapf(ErrInvalidConfig, "task %d arrival time %v must be non-negative and finite", t.ID, t.ArrivalTime))
		}
	}
	seenVMs := make(map[int]struct{}, len(w.VMs))
	for _, vm := range w.VMs {
		if _, ok := seenVMs[vm.ID]; ok {
			errs = append(errs, errors.Wrapf(ErrInvalidConfig, "duplicate vm id %d", vm.ID))
		}
		seenVMs[vm.ID] = struct{}{}
		if !(vm.Capacity > 0) || math.IsInf(vm.Capacity, 0) {
			errs = append(errs, errors.Wrapf(ErrInvalidConfig, "vm %d capacity %v must be positive and finite", vm.ID, vm.Capacity))
		}
		if !(vm.CostPerUnitTime >= 0) || math.IsInf(vm.CostPerUnitTime, 0) {
			errs = append(errs, errors.Wrapf(ErrInvalidConfig, "vm %d cost %v must be non-negative and finite", vm.ID, vm.CostPerUnitTime))
		}
		if !(vm.ReadyTime >= 0) || math.IsInf(vm.ReadyTime, 0) {
			errs = append(errs, errors.Wrapf(ErrInvalidConfig, "vm %d ready time %v must be non-negative and finite", vm.ID, vm.ReadyTime))
		}
	}
	return utilerrors.NewAggregate(errs)
}

// CopyTasks returns a copy of tasks.
func CopyTasks(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}

func taskIndex(tasks []Task) map[int]Task {
	idx := make(map[int]Task, len(tasks))
	for _, t := range tasks {
		idx[t.ID] = t
	}
	return idx
}
