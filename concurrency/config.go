package concurrency

import (
	"time"

	"github.com/corewatch/dynamic-concurrency/errors"
)

// Config holds the tunables that govern adjustment policy and
// throttle hysteresis. Defaults are supplied by DefaultConfig, and
// Validate rejects out-of-range values with a *errors.ConfigError
// rather than panicking.
type Config struct {
	// DynamicConcurrencyEnabled is the master switch, reported by
	// Manager.Enabled. GetStatus does not consult it: parallelism is
	// adjusted whether it is true or false.
	DynamicConcurrencyEnabled bool

	// MaxDegreeOfParallelism is the per-function ceiling.
	MaxDegreeOfParallelism int

	// MinConsecutiveIncreaseLimit is how many consecutive healthy
	// throttle polls must accrue before a function is allowed to grow.
	MinConsecutiveIncreaseLimit int

	// MinConsecutiveDecreaseLimit is how many consecutive unhealthy
	// throttle polls must accrue before a function is allowed to shrink.
	MinConsecutiveDecreaseLimit int

	// MinAdjustmentFrequency is the anti-thrash floor between two
	// adjustments on the same function.
	MinAdjustmentFrequency time.Duration

	// FailedAdjustmentQuietWindow is how long after a decrease no
	// increase is permitted.
	FailedAdjustmentQuietWindow time.Duration

	// AdjustmentRunWindow is the gap beyond which a same-direction
	// streak is considered broken even without a direction change.
	AdjustmentRunWindow time.Duration

	// ThrottleCheckInterval is the minimum spacing between provider
	// polls; repeated IsThrottleEnabled calls within the interval
	// return the cached result.
	ThrottleCheckInterval time.Duration
}

// DefaultConfig returns the documented production-safe defaults for
// every tunable.
func DefaultConfig() Config {
	return Config{
		DynamicConcurrencyEnabled:   false,
		MaxDegreeOfParallelism:      100,
		MinConsecutiveIncreaseLimit: 5,
		MinConsecutiveDecreaseLimit: 3,
		MinAdjustmentFrequency:      5 * time.Second,
		FailedAdjustmentQuietWindow: 30 * time.Second,
		AdjustmentRunWindow:         10 * time.Second,
		ThrottleCheckInterval:       1 * time.Second,
	}
}

// Validate rejects configuration values that would violate the
// controller's invariants.
func (c Config) Validate() error {
	if c.MaxDegreeOfParallelism < 1 {
		return errors.NewConfigError("MaxDegreeOfParallelism", c.MaxDegreeOfParallelism, "must be at least 1")
	}
	if c.MinConsecutiveIncreaseLimit < 0 {
		return errors.NewConfigError("MinConsecutiveIncreaseLimit", c.MinConsecutiveIncreaseLimit, "must not be negative")
	}
	if c.MinConsecutiveDecreaseLimit < 0 {
		return errors.NewConfigError("MinConsecutiveDecreaseLimit", c.MinConsecutiveDecreaseLimit, "must not be negative")
	}
	if c.MinAdjustmentFrequency <= 0 {
		return errors.NewConfigError("MinAdjustmentFrequency", c.MinAdjustmentFrequency, "must be positive")
	}
	if c.FailedAdjustmentQuietWindow <= 0 {
		return errors.NewConfigError("FailedAdjustmentQuietWindow", c.FailedAdjustmentQuietWindow, "must be positive")
	}
	if c.AdjustmentRunWindow <= 0 {
		return errors.NewConfigError("AdjustmentRunWindow", c.AdjustmentRunWindow, "must be positive")
	}
	if c.ThrottleCheckInterval <= 0 {
		return errors.NewConfigError("ThrottleCheckInterval", c.ThrottleCheckInterval, "must be positive")
	}
	return nil
}
