package metrics

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/g-uva/cloud-task-scheduler/pkg/core"
)

// Metrics summarises one strategy's timeline.
type Metrics struct {
	Strategy   string  `json:"strategy"`
	TaskCount  int     `json:"task_count"`
	Makespan   float64 `json:"makespan"`
	Throughput float64 `json:"throughput"`
	// Utilization and BusyTime are keyed by VM ID and cover every VM of the
	// workload, idle ones included.
	Utilization map[int]float64 `json:"utilization"`
	BusyTime    map[int]float64 `json:"busy_time"`
	TotalCost   float64         `json:"total_cost"`

	MeanUtilization   float64 `json:"mean_utilization"`
	UtilizationStdDev float64 `json:"utilization_stddev"`
	AvgWaitTime       float64 `json:"avg_wait_time"`
	AvgTurnaround     float64 `json:"avg_turnaround"`
}

// VMIDs returns the utilization keys in ascending order.
func (m *Metrics) VMIDs() []int {
	ids := make([]int, 0, len(m.Utilization))
	for id := range m.Utilization {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Compute reduces a timeline to its metrics. Busy time and cost are taken
// from the burst log when the timeline has one.
func Compute(tl *core.Timeline, tasks []core.Task, vms []core.VM) (*Metrics, error) {
	if tl == nil || tl.Len() == 0 {
		return nil, errors.Wrap(core.ErrEmptyTimeline, "makespan and throughput are undefined")
	}

	arrivals := make(map[int]float64, len(tasks))
	for _, t := range tasks {
		arrivals[t.ID] = t.ArrivalTime
	}
	costs := make(map[int]float64, len(vms))
	m := &Metrics{
		Strategy:    tl.Strategy,
		TaskCount:   tl.Len(),
		Utilization: make(map[int]float64, len(vms)),
		BusyTime:    make(map[int]float64, len(vms)),
	}
	for _, vm := range vms {
		costs[vm.ID] = vm.CostPerUnitTime
		m.BusyTime[vm.ID] = 0
	}

	var sumWait, sumTurnaround float64
	for _, e := range tl.Entries {
		arrival, ok := arrivals[e.TaskID]
		if !ok {
			return nil, errors.Wrapf(core.ErrInvalidPlan, "timeline references unknown task %d", e.TaskID)
		}
		m.Makespan = math.Max(m.Makespan, e.Finish)
		sumWait += e.Start - arrival
		sumTurnaround += e.Finish - arrival
	}
	for _, iv := range tl.Busy() {
		cost, ok := costs[iv.VMID]
		if !ok {
			return nil, errors.Wrapf(core.ErrInvalidPlan, "timeline references unknown vm %d", iv.VMID)
		}
		d := iv.Finish - iv.Start
		m.BusyTime[iv.VMID] += d
		m.TotalCost += d * cost
	}

	n := float64(tl.Len())
	m.AvgWaitTime = sumWait / n
	m.AvgTurnaround = sumTurnaround / n
	if m.Makespan > 0 {
		m.Throughput = n / m.Makespan
	}

	utils := make([]float64, 0, len(vms))
	for _, vm := range vms {
		u := 0.0
		if m.Makespan > 0 {
			u = m.BusyTime[vm.ID] / m.Makespan
		}
		m.Utilization[vm.ID] = u
		utils = append(utils, u)
	}
	if len(utils) > 0 {
		m.MeanUtilization, m.UtilizationStdDev = stat.PopMeanStdDev(utils, nil)
	}
	return m, nil
}
