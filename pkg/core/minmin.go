package core

import (
	"math"

	"k8s.io/apimachinery/pkg/util/sets"
)

// readyMap tracks the hypothetical ready time of every VM while a strategy
// plans. It is scratch state owned by a single Plan call.
type readyMap struct {
	vms   []VM
	ready []float64
}

func newReadyMap(vms []VM) *readyMap {
	r := &readyMap{vms: vms, ready: make([]float64, len(vms))}
	for i, vm := range vms {
		r.ready[i] = vm.ReadyTime
	}
	return r
}

// completion is the finish time of t if it were appended to VM i.
func (r *readyMap) completion(i int, t Task) float64 {
	return math.Max(r.ready[i], t.ArrivalTime) + r.vms[i].ExecTime(t.Length)
}

// best returns the VM index minimising t's completion time, lowest VM ID on ties.
func (r *readyMap) best(t Task) (int, float64) {
	best, bestFinish := -1, 0.0
	for i := range r.vms {
		f := r.completion(i, t)
		if best < 0 || f < bestFinish || (f == bestFinish && r.vms[i].ID < r.vms[best].ID) {
			best, bestFinish = i, f
		}
	}
	return best, bestFinish
}

func (r *readyMap) commit(i int, finish float64) {
	r.ready[i] = finish
}

// prefer reports whether a candidate best-completion time beats the current one.
type prefer func(candidate, current float64) bool

// greedyPlan runs the Min-Min/Max-Min loop: every iteration computes each
// unassigned task's best VM and commits the task selected by better.
func greedyPlan(name string, tasks []Task, vms []VM, better prefer) (*Plan, error) {
	if err := requireCapacity(name, vms); err != nil {
		return nil, err
	}
	byID := taskIndex(tasks)
	unassigned := sets.New[int]()
	for _, t := range tasks {
		unassigned.Insert(t.ID)
	}
	ready := newReadyMap(vms)
	plan := &Plan{Strategy: name, Assignments: make([]Assignment, 0, len(tasks))}
	for unassigned.Len() > 0 {
		pickTask, pickVM, pickFinish := -1, -1, 0.0
		// sets.List is ascending, so strict comparisons keep the lowest task ID on ties.
		for _, id := range sets.List(unassigned) {
			vm, finish := ready.best(byID[id])
			if pickTask < 0 || better(finish, pickFinish) {
				pickTask, pickVM, pickFinish = id, vm, finish
			}
		}
		ready.commit(pickVM, pickFinish)
		unassigned.Delete(pickTask)
		plan.add(pickTask, vms[pickVM].ID)
	}
	return plan, nil
}

// MinMin repeatedly commits the task that can complete soonest.
type MinMin struct{}

// Name implements SchedulingStrategy.
func (MinMin) Name() string { return StrategyMinMin }

// Plan implements SchedulingStrategy.
func (s MinMin) Plan(tasks []Task, vms []VM) (*Plan, error) {
	return greedyPlan(s.Name(), tasks, vms, func(c, cur float64) bool { return c < cur })
}

// MaxMin repeatedly commits the task whose best completion time is the
// largest, so long tasks do not straggle at the end.
type MaxMin struct{}

// Name implements SchedulingStrategy.
func (MaxMin) Name() string { return StrategyMaxMin }

// Plan implements SchedulingStrategy.
func (s MaxMin) Plan(tasks []Task, vms []VM) (*Plan, error) {
	return greedyPlan(s.Name(), tasks, vms, func(c, cur float64) bool { return c > cur })
}
