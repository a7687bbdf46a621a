package core_test

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/g-uva/cloud-task-scheduler/pkg/core"
)

func tasksOfLength(lengths ...float64) []core.Task {
	tasks := make([]core.Task, len(lengths))
	for i, l := range lengths {
		tasks[i] = core.Task{ID: i, Length: l}
	}
	return tasks
}

func unitVMs(n int) []core.VM {
	vms := make([]core.VM, n)
	for i := range vms {
		vms[i] = core.VM{ID: i, Capacity: 1, CostPerUnitTime: 1}
	}
	return vms
}

// randomWorkload uses integer lengths and capacities so ties actually occur.
func randomWorkload(seed int64, taskCount, vmCount int) ([]core.Task, []core.VM) {
	rng := rand.New(rand.NewSource(seed))
	tasks := make([]core.Task, taskCount)
	arrival := 0.0
	for i := range tasks {
		if rng.Intn(3) == 0 {
			arrival += float64(rng.Intn(5))
		}
		tasks[i] = core.Task{
			ID:          i,
			ArrivalTime: arrival,
			Length:      float64(rng.Intn(9) + 1),
			Priority:    rng.Intn(4),
		}
	}
	vms := make([]core.VM, vmCount)
	for i := range vms {
		vms[i] = core.VM{ID: i, Capacity: float64(rng.Intn(3) + 1), CostPerUnitTime: float64(rng.Intn(4))}
	}
	return tasks, vms
}

func planAndReplay(t *testing.T, s core.SchedulingStrategy, tasks []core.Task, vms []core.VM) (*core.Plan, *core.Timeline) {
	t.Helper()
	plan, err := s.Plan(tasks, vms)
	require.NoError(t, err)
	tl, err := core.Replay(plan, tasks, vms)
	require.NoError(t, err)
	return plan, tl
}

func makespan(tl *core.Timeline) float64 {
	m := 0.0
	for _, e := range tl.Entries {
		m = math.Max(m, e.Finish)
	}
	return m
}

// requireNoOverlap checks that no VM executes two busy intervals at once.
func requireNoOverlap(t *testing.T, tl *core.Timeline) {
	t.Helper()
	byVM := map[int][]core.Interval{}
	for _, iv := range tl.Busy() {
		byVM[iv.VMID] = append(byVM[iv.VMID], iv)
	}
	for vm, ivs := range byVM {
		sort.Slice(ivs, func(i, j int) bool { return ivs[i].Start < ivs[j].Start })
		for i := 1; i < len(ivs); i++ {
			require.LessOrEqualf(t, ivs[i-1].Finish, ivs[i].Start+1e-9, "vm %d overlaps at %v", vm, ivs[i].Start)
		}
	}
}
