package core

import (
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Names of the built-in strategies.
const (
	StrategyFCFS       = "FCFS"
	StrategySJF        = "SJF"
	StrategyPriority   = "Priority"
	StrategyRoundRobin = "RoundRobin"
	StrategyMinMin     = "MinMin"
	StrategyMaxMin     = "MaxMin"
	StrategyEFT        = "EFT"
)

// Assignment is a strategy decision: which VM runs a task, and in which
// position of the plan it is committed.
type Assignment struct {
	TaskID int `json:"task_id"`
	VMID   int `json:"vm_id"`
	Order  int `json:"planned_order"`
}

// Plan is the ordered list of assignments a strategy produced. A positive
// Quantum asks the simulator to replay the plan in time-sliced bursts.
type Plan struct {
	Strategy    string
	Assignments []Assignment
	Quantum     float64
}

// TimeSliced reports whether the plan must be replayed burst by burst.
func (p *Plan) TimeSliced() bool { return p.Quantum > 0 }

func (p *Plan) add(taskID, vmID int) {
	p.Assignments = append(p.Assignments, Assignment{
		TaskID: taskID,
		VMID:   vmID,
		Order:  len(p.Assignments),
	})
}

// SchedulingStrategy decides the task-to-VM mapping and ordering. Plan must
// be a pure function of its inputs and never mutate the VMs it is given.
type SchedulingStrategy interface {
	Name() string
	Plan(tasks []Task, vms []VM) (*Plan, error)
}

func requireCapacity(name string, vms []VM) error {
	if len(vms) == 0 {
		return errors.Wrapf(ErrNoCapacity, "%s: no VMs to plan on", name)
	}
	return nil
}

// cyclePlan assigns the already ordered tasks to VMs in index order.
func cyclePlan(name string, ordered []Task, vms []VM) *Plan {
	plan := &Plan{Strategy: name, Assignments: make([]Assignment, 0, len(ordered))}
	for i, t := range ordered {
		plan.add(t.ID, vms[i%len(vms)].ID)
	}
	return plan
}

func sortedBy(tasks []Task, less func(a, b Task) bool) []Task {
	out := CopyTasks(tasks)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byArrival(a, b Task) bool {
	if a.ArrivalTime != b.ArrivalTime {
		return a.ArrivalTime < b.ArrivalTime
	}
	return a.ID < b.ID
}

// FCFS serves tasks in arrival order, cycling over the VMs.
type FCFS struct{}

// Name implements SchedulingStrategy.
func (FCFS) Name() string { return StrategyFCFS }

// Plan implements SchedulingStrategy.
func (s FCFS) Plan(tasks []Task, vms []VM) (*Plan, error) {
	if err := requireCapacity(s.Name(), vms); err != nil {
		return nil, err
	}
	return cyclePlan(s.Name(), sortedBy(tasks, byArrival), vms), nil
}

// SJF serves the shortest tasks first, non-preemptively.
type SJF struct{}

// Name implements SchedulingStrategy.
func (SJF) Name() string { return StrategySJF }

// Plan implements SchedulingStrategy.
func (s SJF) Plan(tasks []Task, vms []VM) (*Plan, error) {
	if err := requireCapacity(s.Name(), vms); err != nil {
		return nil, err
	}
	ordered := sortedBy(tasks, func(a, b Task) bool {
		if a.Length != b.Length {
			return a.Length < b.Length
		}
		return byArrival(a, b)
	})
	return cyclePlan(s.Name(), ordered, vms), nil
}

// Priority serves tasks by ascending priority value.
type Priority struct{}

// Name implements SchedulingStrategy.
func (Priority) Name() string { return StrategyPriority }

// Plan implements SchedulingStrategy.
func (s Priority) Plan(tasks []Task, vms []VM) (*Plan, error) {
	if err := requireCapacity(s.Name(), vms); err != nil {
		return nil, err
	}
	ordered := sortedBy(tasks, func(a, b Task) bool {
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return byArrival(a, b)
	})
	return cyclePlan(s.Name(), ordered, vms), nil
}

// RoundRobin binds each task to one VM in arrival order and lets the
// simulator time-slice the VM between its tasks, Quantum work units at a time.
type RoundRobin struct {
	Quantum float64
}

// Name implements SchedulingStrategy.
func (*RoundRobin) Name() string { return StrategyRoundRobin }

// Plan implements SchedulingStrategy.
func (s *RoundRobin) Plan(tasks []Task, vms []VM) (*Plan, error) {
	if err := requireCapacity(s.Name(), vms); err != nil {
		return nil, err
	}
	if s.Quantum <= 0 || math.IsNaN(s.Quantum) || math.IsInf(s.Quantum, 0) {
		return nil, errors.Wrapf(ErrInvalidQuantum, "quantum %v must be positive", s.Quantum)
	}
	plan := cyclePlan(s.Name(), sortedBy(tasks, byArrival), vms)
	plan.Quantum = s.Quantum
	return plan, nil
}

// EFT walks tasks in arrival order and gives each one to the VM on which it
// would finish earliest given the load planned so far.
type EFT struct{}

// Name implements SchedulingStrategy.
func (EFT) Name() string { return StrategyEFT }

// Plan implements SchedulingStrategy.
func (s EFT) Plan(tasks []Task, vms []VM) (*Plan, error) {
	if err := requireCapacity(s.Name(), vms); err != nil {
		return nil, err
	}
	ready := newReadyMap(vms)
	plan := &Plan{Strategy: s.Name(), Assignments: make([]Assignment, 0, len(tasks))}
	for _, t := range sortedBy(tasks, byArrival) {
		vm, finish := ready.best(t)
		ready.commit(vm, finish)
		plan.add(t.ID, vms[vm].ID)
	}
	return plan, nil
}

var registry = map[string]func(quantum float64) SchedulingStrategy{
	StrategyFCFS:       func(float64) SchedulingStrategy { return FCFS{} },
	StrategySJF:        func(float64) SchedulingStrategy { return SJF{} },
	StrategyPriority:   func(float64) SchedulingStrategy { return Priority{} },
	StrategyRoundRobin: func(q float64) SchedulingStrategy { return &RoundRobin{Quantum: q} },
	StrategyMinMin:     func(float64) SchedulingStrategy { return MinMin{} },
	StrategyMaxMin:     func(float64) SchedulingStrategy { return MaxMin{} },
	StrategyEFT:        func(float64) SchedulingStrategy { return EFT{} },
}

func normalize(name string) string {
	r := strings.NewReplacer("-", "", "_", "", " ", "")
	return strings.ToLower(r.Replace(name))
}

// CanonicalName maps user spellings such as "round-robin" or "min_min" to
// the registered strategy name.
func CanonicalName(name string) (string, error) {
	key := normalize(name)
	for n := range registry {
		if normalize(n) == key {
			return n, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownStrategy, "%q", name)
}

// NewStrategy builds the named strategy. The quantum is only used by Round Robin.
func NewStrategy(name string, quantum float64) (SchedulingStrategy, error) {
	canonical, err := CanonicalName(name)
	if err != nil {
		return nil, err
	}
	return registry[canonical](quantum), nil
}

// StrategyNames lists the registered strategies in a stable order.
func StrategyNames() []string {
	return []string{
		StrategyFCFS,
		StrategySJF,
		StrategyPriority,
		StrategyRoundRobin,
		StrategyMinMin,
		StrategyMaxMin,
		StrategyEFT,
	}
}
