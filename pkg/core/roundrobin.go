package core

import (
	"math"
	"sort"
)

// remainderEpsilon is the leftover work below which a task counts as done.
// Float drift from repeated subtraction stays far below it.
const remainderEpsilon = 1e-9

// runBursts steps every VM's cyclic ready queue one quantum at a time. Tasks
// never migrate: each one runs all its bursts on the VM the plan chose.
func (b *baseSim) runBursts(plan *Plan) *Timeline {
	queued := make(map[int][]Task, len(b.vms))
	for _, a := range plan.Assignments {
		queued[a.VMID] = append(queued[a.VMID], b.tasks[a.TaskID])
	}

	tl := &Timeline{Strategy: plan.Strategy}
	for i := range b.vms {
		vm := &b.vms[i]
		pending := queued[vm.ID]
		sort.SliceStable(pending, func(x, y int) bool { return pending[x].ArrivalTime < pending[y].ArrivalTime })
		entries, bursts := stepVM(vm, pending, plan.Quantum)
		tl.Entries = append(tl.Entries, entries...)
		tl.Bursts = append(tl.Bursts, bursts...)
	}

	// Present the VMs' interleaved histories on a single clock.
	sort.SliceStable(tl.Bursts, func(x, y int) bool {
		bx, by := tl.Bursts[x], tl.Bursts[y]
		if bx.Start != by.Start {
			return bx.Start < by.Start
		}
		return bx.VMID < by.VMID
	})
	sort.SliceStable(tl.Entries, func(x, y int) bool {
		ex, ey := tl.Entries[x], tl.Entries[y]
		if ex.Finish != ey.Finish {
			return ex.Finish < ey.Finish
		}
		return ex.VMID < ey.VMID
	})
	return tl
}

// stepVM runs classic Round Robin on one VM. Tasks arriving during a burst
// join the queue ahead of the task being preempted.
func stepVM(vm *VM, pending []Task, quantum float64) ([]ScheduleEntry, []Burst) {
	var (
		entries   []ScheduleEntry
		bursts    []Burst
		ready     []Task
		next      int
		clock     = vm.ReadyTime
		remaining = make(map[int]float64, len(pending))
		firstRun  = make(map[int]float64, len(pending))
		seq       = make(map[int]int, len(pending))
	)
	for _, t := range pending {
		remaining[t.ID] = t.Length
	}
	admit := func(now float64) {
		for next < len(pending) && pending[next].ArrivalTime <= now {
			ready = append(ready, pending[next])
			next++
		}
	}

	admit(clock)
	for len(ready) > 0 || next < len(pending) {
		if len(ready) == 0 {
			clock = math.Max(clock, pending[next].ArrivalTime)
			admit(clock)
			continue
		}
		t := ready[0]
		ready = ready[1:]

		work := math.Min(quantum, remaining[t.ID])
		remaining[t.ID] -= work
		done := remaining[t.ID] <= remainderEpsilon
		start := clock
		finish := start + vm.ExecTime(work)
		if seq[t.ID] == 0 {
			firstRun[t.ID] = start
		}
		bursts = append(bursts, Burst{
			TaskID: t.ID,
			VMID:   vm.ID,
			Seq:    seq[t.ID],
			Start:  start,
			Finish: finish,
			Work:   work,
		})
		seq[t.ID]++
		clock = finish

		admit(clock)
		if done {
			entries = append(entries, ScheduleEntry{
				TaskID: t.ID,
				VMID:   vm.ID,
				Start:  firstRun[t.ID],
				Finish: finish,
			})
			continue
		}
		ready = append(ready, t)
	}
	vm.ReadyTime = clock
	return entries, bursts
}
