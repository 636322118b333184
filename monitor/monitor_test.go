package monitor

import (
	"testing"
	"time"

	"github.com/corewatch/dynamic-concurrency/clock"
	"github.com/corewatch/dynamic-concurrency/procsource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstTickEstablishesBaselineWithoutSampling(t *testing.T) {
	fakeClock := clock.NewFake(time.Unix(0, 0))
	source := procsource.NewFake(0, 1000)
	m := New(source, 1, WithClock(fakeClock), WithInterval(time.Second))

	m.tick()

	stats := m.Stats()
	assert.Empty(t, stats.CPUPercent)
	require.Len(t, stats.MemoryBytes, 1)
	assert.EqualValues(t, 1000, stats.MemoryBytes[0])
}

func TestSubsequentTickComputesCPUPercent(t *testing.T) {
	fakeClock := clock.NewFake(time.Unix(0, 0))
	source := procsource.NewFake(0, 1000)
	m := New(source, 1, WithClock(fakeClock), WithInterval(time.Second))

	m.tick()

	fakeClock.Advance(time.Second)
	source.SetProcessorTime(500 * time.Millisecond)
	m.tick()

	stats := m.Stats()
	require.Len(t, stats.CPUPercent, 1)
	assert.Equal(t, 50.0, stats.CPUPercent[0])
}

func TestHistoryEvictsOldestBeyondCapacity(t *testing.T) {
	fakeClock := clock.NewFake(time.Unix(0, 0))
	source := procsource.NewFake(0, 0)
	m := New(source, 1, WithClock(fakeClock), WithInterval(time.Second))

	for i := 0; i < HistorySize+5; i++ {
		source.SetMemoryBytes(uint64(i))
		m.tick()
		fakeClock.Advance(time.Second)
	}

	stats := m.Stats()
	assert.Len(t, stats.MemoryBytes, HistorySize)
	// oldest-evicted: last HistorySize values appended are i=5..14
	assert.EqualValues(t, 5, stats.MemoryBytes[0])
	assert.EqualValues(t, HistorySize+4, stats.MemoryBytes[HistorySize-1])
}

func TestTickSwallowsSourceErrorsAndKeepsPriorHistory(t *testing.T) {
	fakeClock := clock.NewFake(time.Unix(0, 0))
	source := procsource.NewFake(0, 1000)
	m := New(source, 1, WithClock(fakeClock), WithInterval(time.Second))

	m.tick()
	fakeClock.Advance(time.Second)
	source.SetProcessorTime(100 * time.Millisecond)
	m.tick()

	before := m.Stats()

	source.FailProcessorTime(assertError("exited"))
	source.FailMemoryBytes(assertError("exited"))
	fakeClock.Advance(time.Second)
	assert.NotPanics(t, func() { m.tick() })

	after := m.Stats()
	assert.Equal(t, before, after)
}

func TestDisposeIsIdempotentAndStopsTheLoop(t *testing.T) {
	source := procsource.NewFake(0, 0)
	m := New(source, 1, WithInterval(time.Millisecond))
	m.Start()
	m.Dispose()
	assert.NotPanics(t, func() { m.Dispose() })
}

type simpleError string

func (e simpleError) Error() string { return string(e) }

func assertError(msg string) error { return simpleError(msg) }
