package benchmark

import (
	"github.com/pkg/errors"

	"github.com/g-uva/cloud-task-scheduler/pkg/core"
	"github.com/g-uva/cloud-task-scheduler/pkg/generator"
)

// Pattern names a canned workload shape.
type Pattern string

const (
	Burst            Pattern = "burst"
	Periodic         Pattern = "periodic"
	LongRunning      Pattern = "long"
	LatencySensitive Pattern = "latency"
	Mixed            Pattern = "mixed"
)

// Patterns lists the known patterns.
func Patterns() []Pattern {
	return []Pattern{Burst, Periodic, LongRunning, LatencySensitive, Mixed}
}

// PatternConfig returns a generator config for numTasks tasks shaped like
// pattern. The VM pool and seed are those of generator.DefaultConfig.
func PatternConfig(pattern Pattern, numTasks int) (generator.Config, error) {
	cfg := generator.DefaultConfig()
	cfg.TaskCount = numTasks

	switch pattern {
	case Burst:
		// Everything lands at once, heavy and mostly low priority.
		cfg.Arrival = generator.ArrivalBatch
		cfg.MeanInterArrival = 0
		cfg.LengthRange = generator.Range{Min: 100, Max: 400}
		cfg.PriorityRange = generator.IntRange{Min: 5, Max: 9}
	case Periodic:
		cfg.MeanInterArrival = 20
		cfg.LengthRange = generator.Range{Min: 20, Max: 60}
	case LongRunning:
		cfg.MeanInterArrival = 200
		cfg.LengthRange = generator.Range{Min: 500, Max: 2000}
	case LatencySensitive:
		cfg.MeanInterArrival = 5
		cfg.LengthRange = generator.Range{Min: 1, Max: 10}
		cfg.PriorityRange = generator.IntRange{Min: 0, Max: 2}
	case Mixed:
	default:
		return generator.Config{}, errors.Wrapf(core.ErrInvalidConfig, "unknown workload pattern %q", pattern)
	}
	return cfg, nil
}
