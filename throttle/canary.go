package throttle

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/corewatch/dynamic-concurrency/clock"
	"github.com/corewatch/dynamic-concurrency/logger"
	"go.uber.org/zap"
)

// DefaultCanaryInterval is the canary's internal tick cadence
// (tunable: canary_interval_ms).
const DefaultCanaryInterval = 100 * time.Millisecond

// FailureThreshold is the missed-tick fraction above which the canary
// reports Enabled; missing exactly this fraction still reports Disabled
// (tunable: canary_failure_threshold).
const FailureThreshold = 0.50

// StarvationCanary schedules an internal tick onto the Go runtime
// scheduler at a fixed cadence and detects its own tardiness as a
// thread-pool-starvation proxy: a saturated scheduler delays or drops
// the canary's own ticks before it delays anything else.
type StarvationCanary struct {
	clock    clock.Clock
	logger   logger.Logger
	interval time.Duration

	observed int64 // atomic

	mu           sync.Mutex
	lastStatusAt time.Time

	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option configures a StarvationCanary at construction.
type Option func(*StarvationCanary)

// WithClock overrides the clock used to measure elapsed time between
// Status calls. Defaults to clock.Real.
func WithClock(c clock.Clock) Option {
	return func(s *StarvationCanary) { s.clock = c }
}

// WithLogger attaches a logger used to warn when starvation is detected.
func WithLogger(l logger.Logger) Option {
	return func(s *StarvationCanary) { s.logger = logger.OrNop(l) }
}

// WithInterval overrides the internal tick cadence. Defaults to
// DefaultCanaryInterval.
func WithInterval(d time.Duration) Option {
	return func(s *StarvationCanary) { s.interval = d }
}

// NewStarvationCanary constructs a canary. Call Start to begin
// ticking; the canary reports Disabled until at least one full
// interval has elapsed between Status calls.
func NewStarvationCanary(opts ...Option) *StarvationCanary {
	s := &StarvationCanary{
		clock:    clock.Real,
		logger:   logger.Nop(),
		interval: DefaultCanaryInterval,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastStatusAt = s.clock.Now()
	return s
}

// Start begins the internal tick loop on its own goroutine.
func (s *StarvationCanary) Start() {
	s.ticker = time.NewTicker(s.interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.stopCh:
				return
			case <-s.ticker.C:
				s.Observe()
			}
		}
	}()
}

// Observe records that one tick actually ran. Exposed so tests can
// drive the canary without a real scheduler delay.
func (s *StarvationCanary) Observe() {
	atomic.AddInt64(&s.observed, 1)
}

// Status computes expected ticks since the previous Status call from
// the wall clock, compares against observed ticks, and resets the
// observation window.
func (s *StarvationCanary) Status(log logger.Logger) State {
	log = logger.OrNop(log)
	now := s.clock.Now()

	s.mu.Lock()
	elapsed := now.Sub(s.lastStatusAt)
	s.lastStatusAt = now
	s.mu.Unlock()

	observed := atomic.SwapInt64(&s.observed, 0)
	expected := elapsed.Milliseconds() / s.interval.Milliseconds()

	missed := expected - observed
	if expected > 0 && float64(missed) > float64(expected)*FailureThreshold {
		log.Warn("throttle: starvation canary missed ticks",
			zap.Int64("expected", expected),
			zap.Int64("observed", observed),
			zap.Int64("missed", missed),
		)
		return Enabled
	}
	return Disabled
}

// Dispose stops the tick loop. Idempotent.
func (s *StarvationCanary) Dispose() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.ticker != nil {
			s.ticker.Stop()
		}
	})
	s.wg.Wait()
}
