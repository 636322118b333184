// Package throttle defines pluggable throttle signal sources and the
// two built-in providers: one derived from host health, one a
// self-timing thread-starvation canary. Multiple providers combine
// into a single three-state throttle signal the manager consumes.
package throttle

import (
	"github.com/corewatch/dynamic-concurrency/logger"
)

// State is a provider's verdict on whether load shedding should be
// active right now.
type State int

const (
	// Unknown means the provider could not determine a state; the
	// manager suppresses adjustments when any provider reports this.
	Unknown State = iota
	// Enabled means this provider wants throttling active.
	Enabled
	// Disabled means this provider sees no reason to throttle.
	Disabled
)

func (s State) String() string {
	switch s {
	case Enabled:
		return "Enabled"
	case Disabled:
		return "Disabled"
	default:
		return "Unknown"
	}
}

// Provider is the throttle-signal extension point. Additional
// providers can be plugged in; the manager treats them uniformly.
type Provider interface {
	Status(log logger.Logger) State
}

// Combine computes the set-union throttle rule: any Enabled means
// throttling is active; any Unknown (with no Enabled) suppresses
// adjustments by holding the caller at Unknown. Combine of an empty
// set is Disabled — a manager with zero providers never throttles.
func Combine(states ...State) State {
	sawUnknown := false
	for _, s := range states {
		if s == Enabled {
			return Enabled
		}
		if s == Unknown {
			sawUnknown = true
		}
	}
	if sawUnknown {
		return Unknown
	}
	return Disabled
}
