package core

import "github.com/pkg/errors"

// Error kinds returned by the scheduling engine. Callers match them with
// errors.Is; the engine wraps them with the offending values.
var (
	// ErrInvalidConfig is returned for malformed generation counts or ranges.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrNoCapacity is returned when a plan is requested against zero VMs.
	ErrNoCapacity = errors.New("no capacity")
	// ErrInvalidQuantum is returned by Round Robin when the quantum is not positive.
	ErrInvalidQuantum = errors.New("invalid quantum")
	// ErrEmptyTimeline is returned when metrics are requested for a timeline without entries.
	ErrEmptyTimeline = errors.New("empty timeline")
	// ErrInvalidPlan is returned by Replay when a plan does not cover the task set exactly once.
	ErrInvalidPlan = errors.New("invalid plan")
	// ErrUnknownStrategy is returned when a strategy name is not registered.
	ErrUnknownStrategy = errors.New("unknown strategy")
)
