package core_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/g-uva/cloud-task-scheduler/pkg/core"
)

func TestFCFSScenario(t *testing.T) {
	_, tl := planAndReplay(t, core.FCFS{}, tasksOfLength(4, 2, 6), unitVMs(2))

	byVM := tl.ByVM()
	assert.Equal(t, []core.ScheduleEntry{
		{TaskID: 0, VMID: 0, Start: 0, Finish: 4},
		{TaskID: 2, VMID: 0, Start: 4, Finish: 10},
	}, byVM[0])
	assert.Equal(t, []core.ScheduleEntry{
		{TaskID: 1, VMID: 1, Start: 0, Finish: 2},
	}, byVM[1])
	assert.Equal(t, 10.0, makespan(tl))
}

func TestSJFScenario(t *testing.T) {
	plan, tl := planAndReplay(t, core.SJF{}, tasksOfLength(4, 2, 6), unitVMs(2))

	var order []int
	for _, a := range plan.Assignments {
		order = append(order, a.TaskID)
	}
	assert.Equal(t, []int{1, 0, 2}, order)

	byVM := tl.ByVM()
	assert.Equal(t, []core.ScheduleEntry{
		{TaskID: 1, VMID: 0, Start: 0, Finish: 2},
		{TaskID: 2, VMID: 0, Start: 2, Finish: 8},
	}, byVM[0])
	assert.Equal(t, []core.ScheduleEntry{
		{TaskID: 0, VMID: 1, Start: 0, Finish: 4},
	}, byVM[1])
	assert.Equal(t, 8.0, makespan(tl))
}

func TestPriorityOrdersByPriorityThenArrival(t *testing.T) {
	tasks := []core.Task{
		{ID: 0, Length: 1, Priority: 3},
		{ID: 1, Length: 1, Priority: 1, ArrivalTime: 2},
		{ID: 2, Length: 1, Priority: 1, ArrivalTime: 1},
		{ID: 3, Length: 1, Priority: 2},
	}
	plan, err := core.Priority{}.Plan(tasks, unitVMs(2))
	require.NoError(t, err)

	var order []int
	for _, a := range plan.Assignments {
		order = append(order, a.TaskID)
	}
	assert.Equal(t, []int{2, 1, 3, 0}, order)
	assert.Equal(t, []int{0, 1, 0, 1}, []int{
		plan.Assignments[0].VMID, plan.Assignments[1].VMID,
		plan.Assignments[2].VMID, plan.Assignments[3].VMID,
	})
}

func TestSortedStrategiesFollowTheirKey(t *testing.T) {
	tasks, vms := randomWorkload(11, 40, 3)
	byID := map[int]core.Task{}
	for _, task := range tasks {
		byID[task.ID] = task
	}
	tests := []struct {
		strategy core.SchedulingStrategy
		key      func(core.Task) float64
	}{
		{core.FCFS{}, func(t core.Task) float64 { return t.ArrivalTime }},
		{core.SJF{}, func(t core.Task) float64 { return t.Length }},
		{core.Priority{}, func(t core.Task) float64 { return float64(t.Priority) }},
	}
	for _, tt := range tests {
		t.Run(tt.strategy.Name(), func(t *testing.T) {
			plan, err := tt.strategy.Plan(tasks, vms)
			require.NoError(t, err)
			for i := 1; i < len(plan.Assignments); i++ {
				prev, cur := byID[plan.Assignments[i-1].TaskID], byID[plan.Assignments[i].TaskID]
				assert.LessOrEqual(t, tt.key(prev), tt.key(cur))
			}
			for i, a := range plan.Assignments {
				assert.Equal(t, vms[i%len(vms)].ID, a.VMID)
				assert.Equal(t, i, a.Order)
			}
		})
	}
}

func TestMinMinIdenticalTasks(t *testing.T) {
	plan, tl := planAndReplay(t, core.MinMin{}, tasksOfLength(3, 3, 3), unitVMs(2))

	assert.Equal(t, []core.Assignment{
		{TaskID: 0, VMID: 0, Order: 0},
		{TaskID: 1, VMID: 1, Order: 1},
		{TaskID: 2, VMID: 0, Order: 2},
	}, plan.Assignments)
	assert.Equal(t, 6.0, makespan(tl))
}

func TestMaxMinFinishesLongTasksFirst(t *testing.T) {
	tasks := tasksOfLength(2, 8, 4)

	plan, tl := planAndReplay(t, core.MaxMin{}, tasks, unitVMs(2))
	assert.Equal(t, []core.Assignment{
		{TaskID: 1, VMID: 0, Order: 0},
		{TaskID: 2, VMID: 1, Order: 1},
		{TaskID: 0, VMID: 1, Order: 2},
	}, plan.Assignments)
	assert.Equal(t, 8.0, makespan(tl))

	_, minTL := planAndReplay(t, core.MinMin{}, tasks, unitVMs(2))
	assert.Equal(t, 10.0, makespan(minTL))
}

func TestMinMinPrefersFasterVM(t *testing.T) {
	vms := []core.VM{
		{ID: 0, Capacity: 1},
		{ID: 1, Capacity: 4},
	}
	plan, err := core.MinMin{}.Plan(tasksOfLength(8), vms)
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Assignments[0].VMID)
}

// bruteForcePick re-derives one greedy choice from scratch over all pairs.
func bruteForcePick(tasks []core.Task, vms []core.VM, ready map[int]float64, done map[int]bool, maxMin bool) (int, int) {
	finish := func(task core.Task, vm core.VM) float64 {
		start := ready[vm.ID]
		if task.ArrivalTime > start {
			start = task.ArrivalTime
		}
		return start + task.Length/vm.Capacity
	}
	pickTask, pickVM, pickFinish := -1, -1, 0.0
	for _, task := range tasks {
		if done[task.ID] {
			continue
		}
		bestVM, bestFinish := -1, 0.0
		for _, vm := range vms {
			f := finish(task, vm)
			if bestVM < 0 || f < bestFinish || (f == bestFinish && vm.ID < bestVM) {
				bestVM, bestFinish = vm.ID, f
			}
		}
		better := bestFinish < pickFinish
		if maxMin {
			better = bestFinish > pickFinish
		}
		if pickTask < 0 || better || (bestFinish == pickFinish && task.ID < pickTask) {
			pickTask, pickVM, pickFinish = task.ID, bestVM, bestFinish
		}
	}
	return pickTask, pickVM
}

func TestGreedyChoicesRederiveFromScratch(t *testing.T) {
	for _, seed := range []int64{1, 2, 3, 4, 5} {
		tasks, vms := randomWorkload(seed, 25, 4)
		byID := map[int]core.Task{}
		for _, task := range tasks {
			byID[task.ID] = task
		}
		capacity := map[int]float64{}
		for _, vm := range vms {
			capacity[vm.ID] = vm.Capacity
		}
		for _, s := range []core.SchedulingStrategy{core.MinMin{}, core.MaxMin{}} {
			plan, err := s.Plan(tasks, vms)
			require.NoError(t, err)
			require.Len(t, plan.Assignments, len(tasks))

			ready := map[int]float64{}
			done := map[int]bool{}
			for _, a := range plan.Assignments {
				wantTask, wantVM := bruteForcePick(tasks, vms, ready, done, s.Name() == core.StrategyMaxMin)
				require.Equalf(t, wantTask, a.TaskID, "%s seed %d order %d", s.Name(), seed, a.Order)
				require.Equalf(t, wantVM, a.VMID, "%s seed %d order %d", s.Name(), seed, a.Order)

				task := byID[a.TaskID]
				start := ready[a.VMID]
				if task.ArrivalTime > start {
					start = task.ArrivalTime
				}
				ready[a.VMID] = start + task.Length/capacity[a.VMID]
				done[a.TaskID] = true
			}
		}
	}
}

func TestEFTPicksEarliestFinish(t *testing.T) {
	vms := []core.VM{{ID: 0, Capacity: 1}, {ID: 1, Capacity: 2}}
	plan, tl := planAndReplay(t, core.EFT{}, tasksOfLength(4, 4, 4), vms)

	// vm1 finishes a task in 2, vm0 in 4: 1 -> 2, then vm0 (4) ties vm1 (4) -> vm0, then vm1 (6).
	assert.Equal(t, []int{1, 0, 1}, []int{
		plan.Assignments[0].VMID, plan.Assignments[1].VMID, plan.Assignments[2].VMID,
	})
	assert.Equal(t, 6.0, makespan(tl))
}

func TestEmptyTaskSetYieldsEmptyPlan(t *testing.T) {
	for _, name := range core.StrategyNames() {
		s, err := core.NewStrategy(name, 1)
		require.NoError(t, err)
		plan, tl := planAndReplay(t, s, nil, unitVMs(2))
		assert.Empty(t, plan.Assignments, name)
		assert.Equal(t, 0, tl.Len(), name)
	}
}

func TestZeroVMsHasNoCapacity(t *testing.T) {
	for _, name := range core.StrategyNames() {
		s, err := core.NewStrategy(name, 1)
		require.NoError(t, err)
		_, err = s.Plan(tasksOfLength(1, 2), nil)
		assert.Truef(t, errors.Is(err, core.ErrNoCapacity), "%s: %v", name, err)
	}
}

func TestRoundRobinRejectsNonPositiveQuantum(t *testing.T) {
	for _, q := range []float64{0, -1} {
		_, err := (&core.RoundRobin{Quantum: q}).Plan(tasksOfLength(1), unitVMs(1))
		assert.ErrorIs(t, err, core.ErrInvalidQuantum)
	}
}

func TestNewStrategy(t *testing.T) {
	s, err := core.NewStrategy("round-robin", 3)
	require.NoError(t, err)
	require.Equal(t, core.StrategyRoundRobin, s.Name())
	assert.Equal(t, 3.0, s.(*core.RoundRobin).Quantum)

	s, err = core.NewStrategy("min_min", 0)
	require.NoError(t, err)
	assert.Equal(t, core.StrategyMinMin, s.Name())

	_, err = core.NewStrategy("lottery", 0)
	assert.ErrorIs(t, err, core.ErrUnknownStrategy)
}

func TestStrategiesKeepInvariants(t *testing.T) {
	tasks, vms := randomWorkload(42, 60, 5)
	before := core.CopyVMs(vms)
	for _, name := range core.StrategyNames() {
		t.Run(name, func(t *testing.T) {
			s, err := core.NewStrategy(name, 2)
			require.NoError(t, err)
			_, tl := planAndReplay(t, s, tasks, vms)

			require.Len(t, tl.Entries, len(tasks))
			seen := map[int]bool{}
			capacity := map[int]float64{}
			for _, vm := range vms {
				capacity[vm.ID] = vm.Capacity
			}
			for _, e := range tl.Entries {
				require.False(t, seen[e.TaskID], "task %d scheduled twice", e.TaskID)
				seen[e.TaskID] = true
				task := tasks[e.TaskID]
				assert.GreaterOrEqual(t, e.Start, task.ArrivalTime)
				assert.GreaterOrEqual(t, makespan(tl)+1e-9, task.ArrivalTime+task.Length/capacity[e.VMID])
			}
			requireNoOverlap(t, tl)
		})
	}
	assert.Equal(t, before, vms, "strategies and replay must not mutate the VMs")
}
