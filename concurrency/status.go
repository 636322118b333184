// Package concurrency implements the per-function parallelism state
// machine and the manager that drives it against host-health throttle
// signals: an acquire/release bookkeeping loop paired with a
// velocity-scaled increase/decrease policy, generalized from a single
// shared quota to a per-function one driven by pluggable throttle
// providers.
package concurrency

import (
	"sync"
	"time"

	"github.com/corewatch/dynamic-concurrency/clock"
)

// Status holds one function's current parallelism cap, its
// outstanding-invocation count, and the bookkeeping the adjustment
// policy needs. A Status is created on first query for a function id
// and lives for the process.
//
// current_parallelism, adjustment_run_direction, adjustment_run_count,
// last_adjustment_at, and last_failed_adjustment_at are touched only
// by the owning manager's GetStatus, which the contract guarantees is
// never called concurrently for the same function id — they need no
// lock. outstanding_invocations and the high-water mark are touched
// from both GetStatus and the invocation callbacks, so mu guards them.
type Status struct {
	id string

	mu                               sync.Mutex
	outstandingInvocations           int
	maxConcurrentSinceLastAdjustment int

	currentParallelism     int
	lastAdjustmentAt       time.Time
	hasFailedAdjustment    bool
	lastFailedAdjustmentAt time.Time
	adjustmentRunDirection int
	adjustmentRunCount     int

	maxDegreeOfParallelism int
	quietWindow            time.Duration
	runWindow              time.Duration
	adjustmentFloor        time.Duration

	clock   clock.Clock
	manager throttleRefresher
}

// throttleRefresher is the narrow slice of *Manager a Status needs: a
// back-reference used only to read the current throttle state when
// computing FetchCount. The manager outlives every status it creates,
// so a plain reference is sufficient.
type throttleRefresher interface {
	IsThrottleEnabled() bool
}

func newStatus(id string, now time.Time, clk clock.Clock, mgr throttleRefresher, cfg Config) *Status {
	return &Status{
		id:                     id,
		currentParallelism:     1,
		lastAdjustmentAt:       now,
		adjustmentRunDirection: 0,
		maxDegreeOfParallelism: cfg.MaxDegreeOfParallelism,
		quietWindow:            cfg.FailedAdjustmentQuietWindow,
		runWindow:              cfg.AdjustmentRunWindow,
		adjustmentFloor:        cfg.MinAdjustmentFrequency,
		clock:                  clk,
		manager:                mgr,
	}
}

// Snapshot is the immutable view returned to listener-loop callers.
type Snapshot struct {
	FunctionID             string
	CurrentParallelism     int
	OutstandingInvocations int
	FetchCount             int
}

// CurrentParallelism returns the live cap without locking — it is
// only ever written by the non-concurrent GetStatus path.
func (s *Status) CurrentParallelism() int {
	return s.currentParallelism
}

// OutstandingInvocations returns the current outstanding count.
func (s *Status) OutstandingInvocations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outstandingInvocations
}

// FetchCount returns how many additional invocations the listener may
// start right now: zero under throttle or over-subscription, else the
// remaining headroom under the current cap.
func (s *Status) FetchCount() int {
	if s.manager != nil && s.manager.IsThrottleEnabled() {
		return 0
	}

	outstanding := s.OutstandingInvocations()
	current := s.CurrentParallelism()
	if outstanding > current {
		return 0
	}
	return current - outstanding
}

// Snapshot returns a coherent copy of the fields callers observe.
func (s *Status) Snapshot() Snapshot {
	return Snapshot{
		FunctionID:             s.id,
		CurrentParallelism:     s.CurrentParallelism(),
		OutstandingInvocations: s.OutstandingInvocations(),
		FetchCount:             s.FetchCount(),
	}
}

// FunctionStarted records the start of one invocation and raises the
// high-water mark if this is the most concurrent outstanding work
// seen since the last adjustment.
func (s *Status) FunctionStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outstandingInvocations++
	if s.outstandingInvocations > s.maxConcurrentSinceLastAdjustment {
		s.maxConcurrentSinceLastAdjustment = s.outstandingInvocations
	}
}

// FunctionCompleted records the completion of one invocation.
// outstanding_invocations never goes negative even under misuse.
func (s *Status) FunctionCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outstandingInvocations > 0 {
		s.outstandingInvocations--
	}
}

// CanAdjust is the anti-thrash floor: true once more than the
// configured adjustment frequency has elapsed since the last change.
func (s *Status) CanAdjust(now time.Time) bool {
	return now.Sub(s.lastAdjustmentAt) > s.adjustmentFloor
}

// CanDecrease is true while there is room to shrink.
func (s *Status) CanDecrease() bool {
	return s.currentParallelism > 1
}

// CanIncrease is true when the post-decrease quiet window has
// elapsed, the function has actually used the room it already has
// (the utilization gate), and the cap has not reached limit.
func (s *Status) CanIncrease(limit int) bool {
	now := s.clock.Now()

	if s.hasFailedAdjustment {
		if now.Sub(s.lastFailedAdjustmentAt) < s.quietWindow {
			return false
		}
		s.hasFailedAdjustment = false
	}

	s.mu.Lock()
	highWater := s.maxConcurrentSinceLastAdjustment
	s.mu.Unlock()
	if highWater < s.currentParallelism {
		return false
	}

	return s.currentParallelism < limit
}

// Increase grows the cap by the velocity-rule delta, clamped at
// maxDegreeOfParallelism.
func (s *Status) Increase() {
	now := s.clock.Now()
	delta := s.applyVelocityRule(now, +1)

	s.currentParallelism += delta
	if s.currentParallelism > s.maxDegreeOfParallelism {
		s.currentParallelism = s.maxDegreeOfParallelism
	}
	s.finishAdjustment(now)
}

// Decrease shrinks the cap by the velocity-rule delta, clamped at 1,
// and opens the post-decrease quiet window.
func (s *Status) Decrease() {
	now := s.clock.Now()
	delta := s.applyVelocityRule(now, -1)

	s.currentParallelism -= delta
	if s.currentParallelism < 1 {
		s.currentParallelism = 1
	}
	s.hasFailedAdjustment = true
	s.lastFailedAdjustmentAt = now
	s.finishAdjustment(now)
}

// applyVelocityRule implements the run-based delta rule: a direction
// change or a gap longer than runWindow resets the streak to zero;
// otherwise the streak is incremented first, then its new length sets
// the delta. The first adjustment in a direction moves by 1, the
// second by 2, and so on up to a cap of 6, producing a slow start on
// direction reversal and an accelerating response while the system
// keeps moving the same way.
func (s *Status) applyVelocityRule(now time.Time, direction int) int {
	broke := direction != s.adjustmentRunDirection || now.Sub(s.lastAdjustmentAt) > s.runWindow

	if broke {
		s.adjustmentRunCount = 0
	} else {
		s.adjustmentRunCount++
	}

	delta := 1 + min(5, s.adjustmentRunCount)

	s.adjustmentRunDirection = direction
	return delta
}

func (s *Status) finishAdjustment(now time.Time) {
	s.mu.Lock()
	s.maxConcurrentSinceLastAdjustment = 0
	s.mu.Unlock()
	s.lastAdjustmentAt = now
}
