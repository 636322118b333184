// Package monitor samples a single process's CPU and memory telemetry
// on a periodic tick and keeps a bounded, concurrency-safe ring-buffer
// history of both, which the health package aggregates across the
// host process and its registered children.
package monitor

import (
	"math"
	"sync"
	"time"

	"github.com/corewatch/dynamic-concurrency/clock"
	"github.com/corewatch/dynamic-concurrency/errors"
	"github.com/corewatch/dynamic-concurrency/logger"
	"github.com/corewatch/dynamic-concurrency/procsource"
	"go.uber.org/zap"
)

// HistorySize is the ring capacity for both the CPU and memory
// histories (tunable: sample_history_size).
const HistorySize = 10

// DefaultInterval is the default tick cadence (tunable: sample_interval).
const DefaultInterval = 1 * time.Second

// Stats is an immutable snapshot of a monitor's sample histories,
// oldest entry first. Callers receive independent copies — mutating
// a Stats value never affects the monitor.
type Stats struct {
	CPUPercent  []float64
	MemoryBytes []uint64
}

// Monitor samples one process's telemetry on a fixed interval and
// appends to bounded CPU-percent and memory histories.
type Monitor struct {
	source         procsource.Source
	effectiveCores int
	interval       time.Duration
	clock          clock.Clock
	logger         logger.Logger

	mu                sync.Mutex
	cpuHistory        []float64
	memHistory        []uint64
	haveBaseline      bool
	baselineTime      time.Time
	baselineProcessor time.Duration

	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option configures a Monitor at construction.
type Option func(*Monitor)

// WithClock overrides the clock used for interval arithmetic inside a
// tick. Defaults to clock.Real.
func WithClock(c clock.Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

// WithLogger attaches a logger. A nil logger is treated as a no-op.
func WithLogger(l logger.Logger) Option {
	return func(m *Monitor) { m.logger = logger.OrNop(l) }
}

// WithInterval overrides the tick cadence. Defaults to DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

// New constructs a Monitor for source, normalizing CPU percentages
// against effectiveCores. The monitor does not start ticking until
// Start is called.
func New(source procsource.Source, effectiveCores int, opts ...Option) *Monitor {
	if effectiveCores < 1 {
		effectiveCores = 1
	}

	m := &Monitor{
		source:         source,
		effectiveCores: effectiveCores,
		interval:       DefaultInterval,
		clock:          clock.Real,
		logger:         logger.Nop(),
		stopCh:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins the periodic tick in its own goroutine. Start must not
// be called more than once on the same Monitor.
func (m *Monitor) Start() {
	m.ticker = time.NewTicker(m.interval)
	m.wg.Add(1)
	go m.run()
}

func (m *Monitor) run() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		case <-m.ticker.C:
			m.tick()
		}
	}
}

// Tick samples the process once, synchronously, bypassing the ticker
// goroutine. It exists so tests driving a fake clock can advance a
// Monitor deterministically without a Start/Dispose race.
func (m *Monitor) Tick() {
	m.tick()
}

// tick samples the process once, updates the histories, and swallows
// any error from the metrics source — an exited child process is
// expected, not exceptional, per this component's design.
func (m *Monitor) tick() {
	now := m.clock.Now()

	mem, memErr := m.source.MemoryBytes()
	cpuTime, cpuErr := m.source.ProcessorTime()

	m.mu.Lock()
	defer m.mu.Unlock()

	if memErr == nil {
		m.appendMemoryLocked(mem)
	} else {
		m.logger.Debug("monitor: memory sample failed, process may have exited",
			zap.Error(errors.NewProviderError("monitor.memory", memErr)))
	}

	if cpuErr != nil {
		m.logger.Debug("monitor: cpu sample failed, process may have exited",
			zap.Error(errors.NewProviderError("monitor.cpu", cpuErr)))
		return
	}

	if !m.haveBaseline {
		m.haveBaseline = true
		m.baselineTime = now
		m.baselineProcessor = cpuTime
		return
	}

	interval := now.Sub(m.baselineTime)
	if interval <= 0 {
		// Clock went nowhere (or backwards under a misbehaving fake);
		// nothing meaningful to compute this tick.
		return
	}

	deltaProcessor := cpuTime - m.baselineProcessor
	if deltaProcessor < 0 {
		// The source's cumulative counter should never decrease; treat
		// it as a restart of the underlying process and re-baseline.
		deltaProcessor = 0
	}

	percent := math.Round(
		float64(deltaProcessor.Milliseconds()) /
			(float64(m.effectiveCores) * float64(interval.Milliseconds())) * 100,
	)
	m.appendCPULocked(percent)

	m.baselineTime = now
	m.baselineProcessor = cpuTime
}

func (m *Monitor) appendCPULocked(percent float64) {
	if len(m.cpuHistory) >= HistorySize {
		m.cpuHistory = m.cpuHistory[1:]
	}
	m.cpuHistory = append(m.cpuHistory, percent)
}

func (m *Monitor) appendMemoryLocked(bytes uint64) {
	if len(m.memHistory) >= HistorySize {
		m.memHistory = m.memHistory[1:]
	}
	m.memHistory = append(m.memHistory, bytes)
}

// Stats returns an immutable copy of both histories.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	cpu := make([]float64, len(m.cpuHistory))
	copy(cpu, m.cpuHistory)
	mem := make([]uint64, len(m.memHistory))
	copy(mem, m.memHistory)

	return Stats{CPUPercent: cpu, MemoryBytes: mem}
}

// Dispose stops the tick loop. Idempotent and safe to call even if
// Start was never called.
func (m *Monitor) Dispose() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		if m.ticker != nil {
			m.ticker.Stop()
		}
	})
	m.wg.Wait()
}
