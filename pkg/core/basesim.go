package core

import (
	"math"

	"github.com/pkg/errors"
)

// baseSim replays a plan against private copies of the VMs. ReadyTime on the
// copies is the only state the replay mutates.
type baseSim struct {
	vms   []VM
	vmIdx map[int]int
	tasks map[int]Task
}

func newBaseSim(tasks []Task, vms []VM) *baseSim {
	copied := CopyVMs(vms)
	return &baseSim{
		vms:   copied,
		vmIdx: vmIndex(copied),
		tasks: taskIndex(tasks),
	}
}

// Replay turns a plan into a timeline. Assignments are committed in plan
// order; a task starts once it has arrived and its VM is free. Time-sliced
// plans are stepped burst by burst instead.
func Replay(plan *Plan, tasks []Task, vms []VM) (*Timeline, error) {
	if plan == nil {
		return nil, errors.Wrap(ErrInvalidPlan, "nil plan")
	}
	if err := requireCapacity(plan.Strategy, vms); err != nil {
		return nil, err
	}
	sim := newBaseSim(tasks, vms)
	if err := sim.check(plan, len(tasks)); err != nil {
		return nil, err
	}
	if plan.TimeSliced() {
		return sim.runBursts(plan), nil
	}
	return sim.run(plan), nil
}

func (b *baseSim) check(plan *Plan, taskCount int) error {
	if len(b.tasks) != taskCount {
		return errors.Wrapf(ErrInvalidPlan, "%s: task ids are not unique", plan.Strategy)
	}
	seen := make(map[int]struct{}, len(plan.Assignments))
	for _, a := range plan.Assignments {
		if _, ok := b.tasks[a.TaskID]; !ok {
			return errors.Wrapf(ErrInvalidPlan, "%s: unknown task %d", plan.Strategy, a.TaskID)
		}
		if _, ok := b.vmIdx[a.VMID]; !ok {
			return errors.Wrapf(ErrInvalidPlan, "%s: unknown vm %d", plan.Strategy, a.VMID)
		}
		if _, ok := seen[a.TaskID]; ok {
			return errors.Wrapf(ErrInvalidPlan, "%s: task %d assigned twice", plan.Strategy, a.TaskID)
		}
		seen[a.TaskID] = struct{}{}
	}
	if len(seen) != taskCount {
		return errors.Wrapf(ErrInvalidPlan, "%s: %d of %d tasks assigned", plan.Strategy, len(seen), taskCount)
	}
	return nil
}

func (b *baseSim) run(plan *Plan) *Timeline {
	tl := &Timeline{
		Strategy: plan.Strategy,
		Entries:  make([]ScheduleEntry, 0, len(plan.Assignments)),
	}
	for _, a := range plan.Assignments {
		t := b.tasks[a.TaskID]
		vm := &b.vms[b.vmIdx[a.VMID]]
		start := math.Max(t.ArrivalTime, vm.ReadyTime)
		finish := start + vm.ExecTime(t.Length)
		vm.ReadyTime = finish
		tl.Entries = append(tl.Entries, ScheduleEntry{
			TaskID: t.ID,
			VMID:   vm.ID,
			Start:  start,
			Finish: finish,
		})
	}
	return tl
}
