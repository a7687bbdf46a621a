package benchmark

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/g-uva/cloud-task-scheduler/pkg/core"
	"github.com/g-uva/cloud-task-scheduler/pkg/metrics"
)

// Report holds the outcome of one comparison.
type Report struct {
	RunID uuid.UUID
	// Strategies lists the canonical names that were requested, in order.
	Strategies []string
	// Results holds the metrics of every strategy that completed.
	Results map[string]*metrics.Metrics
	// Best is the completed strategy with the lowest makespan. Ties go to
	// the alphabetically first name.
	Best string
}

// Ranked returns the completed strategies by ascending makespan.
func (r *Report) Ranked() []*metrics.Metrics {
	ranked := make([]*metrics.Metrics, 0, len(r.Results))
	for _, m := range r.Results {
		ranked = append(ranked, m)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Makespan != ranked[j].Makespan {
			return ranked[i].Makespan < ranked[j].Makespan
		}
		return ranked[i].Strategy < ranked[j].Strategy
	})
	return ranked
}

// canonicalNames resolves every name and drops repeats, keeping the first
// occurrence's position.
func canonicalNames(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, errors.Wrap(core.ErrInvalidConfig, "no strategies to compare")
	}
	seen := sets.New[string]()
	out := make([]string, 0, len(names))
	var errs []error
	for _, name := range names {
		canonical, err := core.CanonicalName(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if seen.Has(canonical) {
			continue
		}
		seen.Insert(canonical)
		out = append(out, canonical)
	}
	if len(errs) > 0 {
		return nil, utilerrors.NewAggregate(errs)
	}
	return out, nil
}

// comparison fans one workload out to several strategies. Each run owns one
// slot of results and errs until collect detaches them.
type comparison struct {
	names []string
	tasks []core.Task
	vms   []core.VM
	cfg   Config

	mu       sync.Mutex
	detached bool
	results  []*metrics.Metrics
	errs     []error
}

func newComparison(names []string, tasks []core.Task, vms []core.VM, cfg Config) *comparison {
	return &comparison{
		names:   names,
		tasks:   tasks,
		vms:     vms,
		cfg:     cfg,
		results: make([]*metrics.Metrics, len(names)),
		errs:    make([]error, len(names)),
	}
}

func (c *comparison) store(i int, m *metrics.Metrics, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detached {
		return
	}
	c.results[i], c.errs[i] = m, err
}

func (c *comparison) run(ctx context.Context, i int) error {
	if err := ctx.Err(); err != nil {
		c.store(i, nil, errors.Wrapf(err, "%s not started", c.names[i]))
		return nil
	}
	m, err := RunStrategy(c.names[i], c.tasks, c.vms, c.cfg)
	c.store(i, m, err)
	return nil
}

// schedule starts the runs until ctx is done and closes done once every
// started run has returned.
func (c *comparison) schedule(ctx context.Context, wait *errgroup.Group, done chan<- struct{}) {
	defer close(done)
	for i := range c.names {
		i := i
		if ctx.Err() != nil {
			break
		}
		wait.Go(func() error {
			return c.run(ctx, i)
		})
	}
	// Slots carry the errors, so Wait never fails.
	_ = wait.Wait()
}

// collect detaches the slots so runs still going cannot touch them. A slot
// left empty is reported as cut short by ctx.
func (c *comparison) collect(ctx context.Context) ([]*metrics.Metrics, []error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detached = true

	results := append([]*metrics.Metrics(nil), c.results...)
	errs := append([]error(nil), c.errs...)
	for i, name := range c.names {
		if results[i] != nil || errs[i] != nil {
			continue
		}
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		errs[i] = errors.Wrapf(cause, "%s did not finish", name)
	}
	return results, errs
}

// RunComparison runs the named strategies on the same workload, at most
// cfg.Parallelism at a time, each on its own copy of tasks and vms.
//
// Failures of individual strategies are aggregated into the returned error
// while the report still carries every strategy that succeeded. Once ctx is
// done RunComparison returns without waiting for the strategies still
// running; the report then holds what completed and the error wraps
// ctx.Err().
func RunComparison(
	ctx context.Context,
	names []string,
	tasks []core.Task,
	vms []core.VM,
	cfg Config,
) (*Report, error) {
	canonical, err := canonicalNames(names)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:      uuid.New(),
		Strategies: canonical,
		Results:    make(map[string]*metrics.Metrics, len(canonical)),
	}
	logger := log.WithField("run_id", report.RunID.String())

	limit := cfg.Parallelism
	if limit <= 0 || limit > len(canonical) {
		limit = len(canonical)
	}

	start := time.Now()
	c := newComparison(canonical, tasks, vms, cfg)
	var wait errgroup.Group
	wait.SetLimit(limit)
	done := make(chan struct{})
	go c.schedule(ctx, &wait, done)

	select {
	case <-done:
	case <-ctx.Done():
		logger.WithError(ctx.Err()).Warn("Comparison cut short")
	}
	results, errs := c.collect(ctx)

	for i, name := range canonical {
		if results[i] != nil {
			report.Results[name] = results[i]
		}
	}
	if ranked := report.Ranked(); len(ranked) > 0 {
		report.Best = ranked[0].Strategy
	}

	logger.WithFields(log.Fields{
		"strategies":  len(canonical),
		"completed":   len(report.Results),
		"parallelism": limit,
		"best":        report.Best,
		"elapsed":     time.Since(start),
	}).Info("Comparison finished")

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		logger.WithError(utilerrors.NewAggregate(failed)).Warn("Some strategies did not complete")
		return report, utilerrors.NewAggregate(failed)
	}
	return report, nil
}
