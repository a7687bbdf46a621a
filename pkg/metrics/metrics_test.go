package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/g-uva/cloud-task-scheduler/pkg/core"
)

func fcfsScenario(t *testing.T) (*core.Timeline, []core.Task, []core.VM) {
	tasks := []core.Task{
		{ID: 0, Length: 4},
		{ID: 1, Length: 2},
		{ID: 2, Length: 6},
	}
	vms := []core.VM{
		{ID: 0, Capacity: 1, CostPerUnitTime: 2},
		{ID: 1, Capacity: 1, CostPerUnitTime: 1},
	}
	plan, err := core.FCFS{}.Plan(tasks, vms)
	require.NoError(t, err)
	tl, err := core.Replay(plan, tasks, vms)
	require.NoError(t, err)
	return tl, tasks, vms
}

func TestComputeFCFSScenario(t *testing.T) {
	tl, tasks, vms := fcfsScenario(t)
	m, err := Compute(tl, tasks, vms)
	require.NoError(t, err)

	assert.Equal(t, core.StrategyFCFS, m.Strategy)
	assert.Equal(t, 3, m.TaskCount)
	assert.Equal(t, 10.0, m.Makespan)
	assert.InDelta(t, 0.3, m.Throughput, 1e-12)
	assert.Equal(t, map[int]float64{0: 1.0, 1: 0.2}, m.Utilization)
	assert.Equal(t, map[int]float64{0: 10, 1: 2}, m.BusyTime)
	// vm0 busy 10 at cost 2, vm1 busy 2 at cost 1.
	assert.Equal(t, 22.0, m.TotalCost)
	assert.InDelta(t, 0.6, m.MeanUtilization, 1e-12)
	assert.InDelta(t, 0.4, m.UtilizationStdDev, 1e-12)
	// waits 0, 0, 4; turnarounds 4, 2, 10.
	assert.InDelta(t, 4.0/3, m.AvgWaitTime, 1e-12)
	assert.InDelta(t, 16.0/3, m.AvgTurnaround, 1e-12)
	assert.Equal(t, []int{0, 1}, m.VMIDs())
}

func TestComputeEmptyTimeline(t *testing.T) {
	_, err := Compute(&core.Timeline{}, nil, []core.VM{{ID: 0, Capacity: 1}})
	assert.ErrorIs(t, err, core.ErrEmptyTimeline)

	_, err = Compute(nil, nil, nil)
	assert.ErrorIs(t, err, core.ErrEmptyTimeline)
}

func TestComputeRoundRobinUsesBursts(t *testing.T) {
	tasks := []core.Task{{ID: 0, Length: 5}, {ID: 1, Length: 3}}
	vms := []core.VM{{ID: 0, Capacity: 1, CostPerUnitTime: 1}, {ID: 1, Capacity: 1}}
	tl, err := core.Replay(&core.Plan{Strategy: core.StrategyRoundRobin, Quantum: 2, Assignments: []core.Assignment{
		{TaskID: 0, VMID: 0},
		{TaskID: 1, VMID: 0, Order: 1},
	}}, tasks, vms)
	require.NoError(t, err)

	m, err := Compute(tl, tasks, vms)
	require.NoError(t, err)
	assert.Equal(t, 8.0, m.Makespan)
	// Entry spans overlap (0-8 and 2-7) but the bursts add up to 8.
	assert.Equal(t, 8.0, m.BusyTime[0])
	assert.Equal(t, 1.0, m.Utilization[0])
	assert.Equal(t, 0.0, m.Utilization[1])
	assert.Equal(t, 8.0, m.TotalCost)
}

func TestUtilizationBounds(t *testing.T) {
	tasks := make([]core.Task, 0, 30)
	for i := 0; i < 30; i++ {
		tasks = append(tasks, core.Task{ID: i, Length: float64(i%7 + 1), ArrivalTime: float64(i / 4)})
	}
	vms := []core.VM{{ID: 0, Capacity: 1}, {ID: 1, Capacity: 2}, {ID: 2, Capacity: 3}}
	for _, name := range core.StrategyNames() {
		s, err := core.NewStrategy(name, 1.5)
		require.NoError(t, err)
		plan, err := s.Plan(tasks, vms)
		require.NoError(t, err)
		tl, err := core.Replay(plan, tasks, vms)
		require.NoError(t, err)
		m, err := Compute(tl, tasks, vms)
		require.NoError(t, err)

		total := 0.0
		for _, id := range m.VMIDs() {
			assert.GreaterOrEqual(t, m.Utilization[id], 0.0, name)
			assert.LessOrEqual(t, m.Utilization[id], 1.0+1e-9, name)
			total += m.BusyTime[id]
		}
		assert.LessOrEqual(t, total, m.Makespan*float64(len(vms))+1e-9, name)
	}
}

func TestComputeRejectsForeignVM(t *testing.T) {
	tl := &core.Timeline{Entries: []core.ScheduleEntry{{TaskID: 0, VMID: 9, Finish: 1}}}
	_, err := Compute(tl, []core.Task{{ID: 0, Length: 1}}, []core.VM{{ID: 0, Capacity: 1}})
	assert.ErrorIs(t, err, core.ErrInvalidPlan)
}

func TestExporterObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	e, err := NewExporter(reg)
	require.NoError(t, err)

	tl, tasks, vms := fcfsScenario(t)
	m, err := Compute(tl, tasks, vms)
	require.NoError(t, err)
	e.Observe(m)
	e.Observe(m)

	assert.Equal(t, 2.0, testutil.ToFloat64(e.runs.WithLabelValues(core.StrategyFCFS)))
	assert.Equal(t, 10.0, testutil.ToFloat64(e.makespan.WithLabelValues(core.StrategyFCFS)))
	assert.Equal(t, 22.0, testutil.ToFloat64(e.cost.WithLabelValues(core.StrategyFCFS)))
	assert.Equal(t, 0.2, testutil.ToFloat64(e.utilization.WithLabelValues(core.StrategyFCFS, "1")))

	_, err = NewExporter(reg)
	assert.Error(t, err, "registering twice must fail")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.True(t, strings.Contains(rec.Body.String(), "schedsim_makespan"))
}
