package benchmark

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/g-uva/cloud-task-scheduler/pkg/core"
	"github.com/g-uva/cloud-task-scheduler/pkg/metrics"
)

// Config tunes how strategies are run.
type Config struct {
	// Quantum is the Round Robin time slice. Other strategies ignore it.
	Quantum float64
	// Parallelism bounds the strategies running at once. Zero or less runs
	// them all concurrently.
	Parallelism int
}

// GetTimeline plans and replays one strategy on private copies of tasks and
// vms. Callers can reuse both slices for other strategies. Malformed tasks or
// vms fail with core.ErrInvalidConfig before any planning.
func GetTimeline(name string, tasks []core.Task, vms []core.VM, cfg Config) (*core.Timeline, error) {
	strategy, err := core.NewStrategy(name, cfg.Quantum)
	if err != nil {
		return nil, err
	}
	w := (&core.Workload{Tasks: tasks, VMs: vms}).Clone()
	if err := w.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%s workload", strategy.Name())
	}
	tasks, vms = w.Tasks, w.VMs

	start := time.Now()
	plan, err := strategy.Plan(tasks, vms)
	if err != nil {
		return nil, errors.Wrapf(err, "planning %s", strategy.Name())
	}
	tl, err := core.Replay(plan, tasks, vms)
	if err != nil {
		return nil, errors.Wrapf(err, "replaying %s", strategy.Name())
	}

	log.WithFields(log.Fields{
		"strategy": strategy.Name(),
		"tasks":    len(tasks),
		"vms":      len(vms),
		"bursts":   len(tl.Bursts),
		"elapsed":  time.Since(start),
	}).Debug("Strategy replayed")
	return tl, nil
}

// RunStrategy runs one strategy end to end and returns its metrics. An empty
// task set fails with core.ErrEmptyTimeline.
func RunStrategy(name string, tasks []core.Task, vms []core.VM, cfg Config) (*metrics.Metrics, error) {
	tl, err := GetTimeline(name, tasks, vms, cfg)
	if err != nil {
		return nil, err
	}
	m, err := metrics.Compute(tl, tasks, vms)
	if err != nil {
		return nil, errors.Wrapf(err, "computing %s metrics", tl.Strategy)
	}
	return m, nil
}

var (
	resultHeader = []string{
		"run_id", "strategy", "tasks", "makespan", "throughput", "total_cost",
		"mean_utilization", "utilization_stddev", "avg_wait_time", "avg_turnaround", "best",
	}
	timelineHeader = []string{"strategy", "task_id", "vm_id", "seq", "start", "finish"}
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes one row per completed strategy, in the order the report
// lists them.
func WriteCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultHeader); err != nil {
		return errors.Wrap(err, "writing result header")
	}
	for _, name := range r.Strategies {
		m, ok := r.Results[name]
		if !ok {
			continue
		}
		row := []string{
			r.RunID.String(),
			name,
			strconv.Itoa(m.TaskCount),
			formatFloat(m.Makespan),
			formatFloat(m.Throughput),
			formatFloat(m.TotalCost),
			formatFloat(m.MeanUtilization),
			formatFloat(m.UtilizationStdDev),
			formatFloat(m.AvgWaitTime),
			formatFloat(m.AvgTurnaround),
			strconv.FormatBool(name == r.Best),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "writing %s", name)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTimelineCSV writes the rows of a Gantt chart. Time-sliced timelines
// are written burst by burst, the others one row per task with seq 0.
func WriteTimelineCSV(w io.Writer, tl *core.Timeline) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(timelineHeader); err != nil {
		return errors.Wrap(err, "writing timeline header")
	}
	row := func(taskID, vmID, seq int, start, finish float64) []string {
		return []string{
			tl.Strategy,
			strconv.Itoa(taskID),
			strconv.Itoa(vmID),
			strconv.Itoa(seq),
			formatFloat(start),
			formatFloat(finish),
		}
	}
	if len(tl.Bursts) > 0 {
		for _, b := range tl.Bursts {
			if err := cw.Write(row(b.TaskID, b.VMID, b.Seq, b.Start, b.Finish)); err != nil {
				return errors.Wrapf(err, "writing burst of task %d", b.TaskID)
			}
		}
	} else {
		for _, e := range tl.Entries {
			if err := cw.Write(row(e.TaskID, e.VMID, 0, e.Start, e.Finish)); err != nil {
				return errors.Wrapf(err, "writing task %d", e.TaskID)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ResultsFilename names a results file under dir after the run and the
// time it was exported.
func ResultsFilename(dir string, r *Report, now time.Time) string {
	id := r.RunID.String()[:8]
	return filepath.Join(dir, fmt.Sprintf("%s_%s_comparison.csv", id, now.Format("20060102-150405")))
}
