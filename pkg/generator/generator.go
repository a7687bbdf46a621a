package generator

import (
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/g-uva/cloud-task-scheduler/pkg/core"
)

// Range is an inclusive [Min, Max] interval of real values.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// IsZero reports whether the range was left unset.
func (r Range) IsZero() bool { return r.Min == 0 && r.Max == 0 }

func (r Range) draw(rng *rand.Rand) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// IntRange is an inclusive [Min, Max] interval of integers.
type IntRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

func (r IntRange) draw(rng *rand.Rand) int {
	return r.Min + rng.Intn(r.Max-r.Min+1)
}

// ArrivalMode selects how task arrival times are drawn.
type ArrivalMode string

const (
	// ArrivalBatch submits every task at time 0.
	ArrivalBatch ArrivalMode = "batch"
	// ArrivalStaggered spaces tasks by exponential inter-arrival gaps.
	ArrivalStaggered ArrivalMode = "staggered"
)

// Config drives workload generation. A nil Seed draws a fresh one.
type Config struct {
	TaskCount     int      `yaml:"task_count" json:"task_count"`
	VMCount       int      `yaml:"vm_count" json:"vm_count"`
	LengthRange   Range    `yaml:"length_range" json:"length_range"`
	PriorityRange IntRange `yaml:"priority_range" json:"priority_range"`
	CapacityRange Range    `yaml:"capacity_range" json:"capacity_range"`
	CostRange     Range    `yaml:"cost_range" json:"cost_range"`
	// FootprintRange is optional; left unset every task has a zero footprint.
	FootprintRange Range `yaml:"footprint_range" json:"footprint_range"`

	Arrival          ArrivalMode `yaml:"arrival" json:"arrival"`
	MeanInterArrival float64     `yaml:"mean_inter_arrival" json:"mean_inter_arrival"`

	Seed *int64 `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// DefaultConfig describes one hundred tasks arriving on average every 50 time
// units, four unit-capacity VMs, seed 42.
func DefaultConfig() Config {
	seed := int64(42)
	return Config{
		TaskCount:        100,
		VMCount:          4,
		LengthRange:      Range{Min: 10, Max: 310},
		PriorityRange:    IntRange{Min: 0, Max: 9},
		CapacityRange:    Range{Min: 1, Max: 1},
		CostRange:        Range{Min: 0.1, Max: 0.5},
		Arrival:          ArrivalStaggered,
		MeanInterArrival: 50,
		Seed:             &seed,
	}
}

func checkRange(name string, r Range, positive bool) []error {
	var errs []error
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
		return []error{errors.Wrapf(core.ErrInvalidConfig, "%s [%v, %v] is not finite", name, r.Min, r.Max)}
	}
	if r.Min > r.Max {
		errs = append(errs, errors.Wrapf(core.ErrInvalidConfig, "%s lower bound %v exceeds upper bound %v", name, r.Min, r.Max))
	}
	if positive && r.Min <= 0 {
		errs = append(errs, errors.Wrapf(core.ErrInvalidConfig, "%s lower bound %v must be positive", name, r.Min))
	}
	if !positive && r.Min < 0 {
		errs = append(errs, errors.Wrapf(core.ErrInvalidConfig, "%s lower bound %v must not be negative", name, r.Min))
	}
	return errs
}

// Validate reports every problem with the config at once.
func (c *Config) Validate() error {
	var errs []error
	if c.TaskCount <= 0 {
		errs = append(errs, errors.Wrapf(core.ErrInvalidConfig, "task_count %d must be positive", c.TaskCount))
	}
	if c.VMCount <= 0 {
		errs = append(errs, errors.Wrapf(core.ErrInvalidConfig, "vm_count %d must be positive", c.VMCount))
	}
	errs = append(errs, checkRange("length_range", c.LengthRange, true)...)
	errs = append(errs, checkRange("capacity_range", c.CapacityRange, true)...)
	errs = append(errs, checkRange("cost_range", c.CostRange, false)...)
	errs = append(errs, checkRange("footprint_range", c.FootprintRange, false)...)
	if c.PriorityRange.Min > c.PriorityRange.Max {
		errs = append(errs, errors.Wrapf(core.ErrInvalidConfig, "priority_range lower bound %d exceeds upper bound %d",
			c.PriorityRange.Min, c.PriorityRange.Max))
	} else if span := c.PriorityRange.Max - c.PriorityRange.Min; span < 0 || span == math.MaxInt {
		errs = append(errs, errors.Wrapf(core.ErrInvalidConfig, "priority_range [%d, %d] is too wide",
			c.PriorityRange.Min, c.PriorityRange.Max))
	}
	switch c.Arrival {
	case "", ArrivalBatch:
	case ArrivalStaggered:
		if !(c.MeanInterArrival > 0) || math.IsInf(c.MeanInterArrival, 0) {
			errs = append(errs, errors.Wrapf(core.ErrInvalidConfig, "mean_inter_arrival %v must be positive", c.MeanInterArrival))
		}
	default:
		errs = append(errs, errors.Wrapf(core.ErrInvalidConfig, "unknown arrival mode %q", c.Arrival))
	}
	return utilerrors.NewAggregate(errs)
}

// Generate produces the task and VM snapshot described by cfg. Two calls
// with the same seeded config return identical workloads.
func Generate(cfg Config) (*core.Workload, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := time.Now().UnixNano()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	rng := rand.New(rand.NewSource(seed))

	w := &core.Workload{
		Tasks: make([]core.Task, cfg.TaskCount),
		VMs:   make([]core.VM, cfg.VMCount),
	}
	arrival := 0.0
	for i := range w.Tasks {
		if cfg.Arrival == ArrivalStaggered {
			arrival += rng.ExpFloat64() * cfg.MeanInterArrival
		}
		t := core.Task{
			ID:          i,
			ArrivalTime: arrival,
			Length:      cfg.LengthRange.draw(rng),
			Priority:    cfg.PriorityRange.draw(rng),
		}
		if !cfg.FootprintRange.IsZero() {
			t.Footprint = cfg.FootprintRange.draw(rng)
		}
		w.Tasks[i] = t
	}
	for i := range w.VMs {
		w.VMs[i] = core.VM{
			ID:              i,
			Capacity:        cfg.CapacityRange.draw(rng),
			CostPerUnitTime: cfg.CostRange.draw(rng),
		}
	}
	return w, nil
}
