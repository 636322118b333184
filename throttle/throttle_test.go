package throttle

import (
	"testing"
	"time"

	"github.com/corewatch/dynamic-concurrency/clock"
	"github.com/stretchr/testify/assert"
)

func TestCombineAnyEnabledWins(t *testing.T) {
	assert.Equal(t, Enabled, Combine(Disabled, Enabled, Unknown))
}

func TestCombineUnknownSuppressesWithoutEnabled(t *testing.T) {
	assert.Equal(t, Unknown, Combine(Disabled, Unknown))
}

func TestCombineAllDisabled(t *testing.T) {
	assert.Equal(t, Disabled, Combine(Disabled, Disabled))
}

func TestCombineEmptySetIsDisabled(t *testing.T) {
	assert.Equal(t, Disabled, Combine())
}

func TestCanaryBoundaryMissedExactlyHalfIsDisabled(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	c := NewStarvationCanary(WithClock(fc), WithInterval(100*time.Millisecond))

	fc.Advance(1 * time.Second) // expected = 10
	for i := 0; i < 5; i++ {
		c.Observe() // missed = 5, exactly expected*0.5
	}

	assert.Equal(t, Disabled, c.Status(nil))
}

func TestCanaryMissedBeyondHalfIsEnabled(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	c := NewStarvationCanary(WithClock(fc), WithInterval(100*time.Millisecond))

	fc.Advance(1 * time.Second) // expected = 10
	for i := 0; i < 4; i++ {
		c.Observe() // missed = 6 > 5
	}

	assert.Equal(t, Enabled, c.Status(nil))
}

func TestCanaryNoElapsedTimeIsDisabled(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	c := NewStarvationCanary(WithClock(fc), WithInterval(100*time.Millisecond))

	assert.Equal(t, Disabled, c.Status(nil))
}

func TestCanaryResetsObservationWindowBetweenStatusCalls(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	c := NewStarvationCanary(WithClock(fc), WithInterval(100*time.Millisecond))

	fc.Advance(1 * time.Second)
	for i := 0; i < 10; i++ {
		c.Observe()
	}
	assert.Equal(t, Disabled, c.Status(nil))

	// Second window starts fresh: no observations at all this time.
	fc.Advance(1 * time.Second)
	assert.Equal(t, Enabled, c.Status(nil))
}
