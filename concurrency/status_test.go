package concurrency

import (
	"testing"
	"time"

	"github.com/corewatch/dynamic-concurrency/clock"
	"github.com/stretchr/testify/assert"
)

type noopThrottle struct{ enabled bool }

func (n noopThrottle) IsThrottleEnabled() bool { return n.enabled }

func newTestStatus(fc *clock.Fake, cfg Config) *Status {
	return newStatus("fn", fc.Now(), fc, noopThrottle{}, cfg)
}

func TestFetchCountReflectsHeadroom(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	s := newTestStatus(fc, DefaultConfig())
	s.currentParallelism = 5

	s.FunctionStarted()
	s.FunctionStarted()

	assert.Equal(t, 3, s.FetchCount())
}

func TestFetchCountZeroWhenOverSubscribed(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	s := newTestStatus(fc, DefaultConfig())
	s.currentParallelism = 1
	s.FunctionStarted()
	s.FunctionStarted()

	assert.Equal(t, 0, s.FetchCount())
}

func TestOutstandingNeverGoesNegative(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	s := newTestStatus(fc, DefaultConfig())
	s.FunctionCompleted()
	assert.Equal(t, 0, s.OutstandingInvocations())
}

func TestCanAdjustFloor(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	cfg := DefaultConfig()
	s := newTestStatus(fc, cfg)

	assert.False(t, s.CanAdjust(fc.Now()))
	fc.Advance(cfg.MinAdjustmentFrequency)
	assert.False(t, s.CanAdjust(fc.Now())) // strictly greater than, not equal
	fc.Advance(time.Millisecond)
	assert.True(t, s.CanAdjust(fc.Now()))
}

func TestHighWaterGateBlocksIncreaseWithoutUtilization(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	s := newTestStatus(fc, DefaultConfig())
	s.currentParallelism = 8
	s.maxConcurrentSinceLastAdjustment = 4

	assert.False(t, s.CanIncrease(100))
}

func TestCanIncreaseTrueWhenUtilizedToCap(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	s := newTestStatus(fc, DefaultConfig())
	s.currentParallelism = 8
	s.maxConcurrentSinceLastAdjustment = 8

	assert.True(t, s.CanIncrease(100))
}

func TestFloorCannotDecreaseBelowOne(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	s := newTestStatus(fc, DefaultConfig())
	assert.False(t, s.CanDecrease())
	assert.False(t, s.hasFailedAdjustment)
}

func TestQuietWindowBlocksIncreaseAfterDecrease(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	cfg := DefaultConfig()
	s := newTestStatus(fc, cfg)
	s.currentParallelism = 5
	s.maxConcurrentSinceLastAdjustment = 5

	s.Decrease()
	assert.True(t, s.hasFailedAdjustment)

	fc.Advance(cfg.FailedAdjustmentQuietWindow - time.Second)
	s.maxConcurrentSinceLastAdjustment = s.currentParallelism
	assert.False(t, s.CanIncrease(100))

	fc.Advance(2 * time.Second)
	s.maxConcurrentSinceLastAdjustment = s.currentParallelism
	assert.True(t, s.CanIncrease(100))
}

func TestVelocityRuleAcceleratesSameDirectionRun(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	cfg := DefaultConfig()
	s := newTestStatus(fc, cfg)
	s.currentParallelism = 1
	s.maxConcurrentSinceLastAdjustment = 1

	before := s.currentParallelism
	s.Increase()
	assert.Equal(t, 1, s.currentParallelism-before) // first adjustment in a new direction: delta 1

	fc.Advance(time.Second)
	s.maxConcurrentSinceLastAdjustment = s.currentParallelism
	before = s.currentParallelism
	s.Increase()
	assert.Equal(t, 2, s.currentParallelism-before) // second adjustment, same direction: delta 2

	fc.Advance(time.Second)
	s.maxConcurrentSinceLastAdjustment = s.currentParallelism
	before = s.currentParallelism
	s.Increase()
	assert.Equal(t, 3, s.currentParallelism-before) // third adjustment, same direction: delta 3
}

func TestVelocityRuleResetsOnDirectionChange(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	cfg := DefaultConfig()
	s := newTestStatus(fc, cfg)
	s.currentParallelism = 10
	s.maxConcurrentSinceLastAdjustment = 10

	s.Increase()
	fc.Advance(time.Second)
	s.maxConcurrentSinceLastAdjustment = s.currentParallelism
	s.Increase() // run_count now 1

	fc.Advance(time.Second)
	before := s.currentParallelism
	s.Decrease() // direction change: run resets, delta = 1
	assert.Equal(t, 1, before-s.currentParallelism)
}

func TestVelocityRuleBreaksOnLongGap(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	cfg := DefaultConfig()
	s := newTestStatus(fc, cfg)
	s.currentParallelism = 10
	s.maxConcurrentSinceLastAdjustment = 10

	s.Increase() // broke (new direction): run_count stays 0, delta 1

	fc.Advance(time.Second)
	s.maxConcurrentSinceLastAdjustment = s.currentParallelism
	s.Increase() // not broke: run_count becomes 1, delta 2

	fc.Advance(cfg.AdjustmentRunWindow + time.Second)
	s.maxConcurrentSinceLastAdjustment = s.currentParallelism
	before := s.currentParallelism
	s.Increase() // gap exceeds run window: resets, delta 1 instead of the 3 a live streak would give
	assert.Equal(t, 1, s.currentParallelism-before)
}

func TestAdjustmentResetsHighWaterMark(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	s := newTestStatus(fc, DefaultConfig())
	s.currentParallelism = 5
	s.maxConcurrentSinceLastAdjustment = 5

	s.Increase()
	s.mu.Lock()
	hw := s.maxConcurrentSinceLastAdjustment
	s.mu.Unlock()
	assert.Equal(t, 0, hw)
}
