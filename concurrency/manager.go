package concurrency

import (
	"fmt"
	"sync"
	"time"

	"github.com/corewatch/dynamic-concurrency/clock"
	"github.com/corewatch/dynamic-concurrency/errors"
	"github.com/corewatch/dynamic-concurrency/logger"
	"github.com/corewatch/dynamic-concurrency/telemetry"
	"github.com/corewatch/dynamic-concurrency/throttle"
	"github.com/corewatch/dynamic-concurrency/version"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager owns the throttle providers and the per-function statuses,
// combining throttle signals with hysteresis to drive each function's
// parallelism up or down on query. A single owner holds the shared
// throttle state and logger; per-function statuses are created lazily
// and gated by the shared throttle hysteresis.
type Manager struct {
	config    Config
	logger    logger.Logger
	clock     clock.Clock
	providers []throttle.Provider
	telemetry *telemetry.Recorder

	statusesMu sync.RWMutex
	statuses   map[string]*Status

	throttleMu                sync.Mutex
	lastThrottleCheck         time.Time
	throttleEnabled           bool
	lastThrottleResults       []throttle.State
	consecutiveHealthyCount   int
	consecutiveUnhealthyCount int
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithClock overrides the clock used for every timing decision.
// Defaults to clock.Real.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLogger attaches a logger used for adjustment and provider-failure logging.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) { m.logger = logger.OrNop(l) }
}

// WithTelemetry attaches a Prometheus recorder. Every GetStatus call
// publishes the returned snapshot's gauges when set.
func WithTelemetry(r *telemetry.Recorder) Option {
	return func(m *Manager) { m.telemetry = r }
}

// NewManager validates cfg and constructs a Manager polling providers
// uniformly. An invalid configuration is rejected with a
// *errors.ConfigError rather than panicking.
func NewManager(cfg Config, providers []throttle.Provider, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		config:    cfg,
		logger:    logger.Nop(),
		clock:     clock.Real,
		providers: providers,
		statuses:  make(map[string]*Status),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(
		zap.String("module_name", version.ModuleName),
		zap.String("module_version", version.Version),
	)
	return m, nil
}

// Enabled reports the configuration's master switch.
func (m *Manager) Enabled() bool {
	return m.config.DynamicConcurrencyEnabled
}

// IsThrottleEnabled refreshes the cached throttle state if more than
// ThrottleCheckInterval has passed since the last poll, then returns
// the (possibly just-refreshed) cached boolean.
func (m *Manager) IsThrottleEnabled() bool {
	now := m.clock.Now()

	m.throttleMu.Lock()
	stale := now.Sub(m.lastThrottleCheck) > m.config.ThrottleCheckInterval
	m.throttleMu.Unlock()

	if stale {
		m.updateThrottleState(now)
	}

	m.throttleMu.Lock()
	defer m.throttleMu.Unlock()
	return m.throttleEnabled
}

// updateThrottleState polls every provider once, computes the
// set-union throttle state, and updates the hysteresis counters. A
// provider that panics is logged at Warn as a ProviderError and counted
// as Unknown.
// Concurrent callers racing the staleness gate may each perform an
// update; each write only carries newer values forward, so the result
// stays monotonically consistent.
func (m *Manager) updateThrottleState(now time.Time) {
	results := make([]throttle.State, len(m.providers))
	for i, p := range m.providers {
		results[i] = func() (s throttle.State) {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Warn("concurrency: throttle provider failed",
						zap.Error(errors.NewProviderError(fmt.Sprintf("%T", p), fmt.Errorf("%v", r))))
					s = throttle.Unknown
				}
			}()
			return p.Status(m.logger)
		}()
	}

	anyEnabled := false
	for _, s := range results {
		if s == throttle.Enabled {
			anyEnabled = true
			break
		}
	}

	m.throttleMu.Lock()
	defer m.throttleMu.Unlock()

	if anyEnabled {
		m.consecutiveUnhealthyCount++
		m.consecutiveHealthyCount = 0
	} else {
		m.consecutiveHealthyCount++
		m.consecutiveUnhealthyCount = 0
	}

	m.throttleEnabled = anyEnabled
	m.lastThrottleResults = results
	m.lastThrottleCheck = now

	if m.telemetry != nil {
		m.telemetry.ObserveThrottleEnabled(anyEnabled)
	}
}

// ForceThrottleRefresh re-polls every provider immediately, bypassing
// the throttle-check-interval gate. It exists for tests and for a
// host that wants a synchronous health check (e.g. before a deploy);
// it does not change the adjustment policy itself.
func (m *Manager) ForceThrottleRefresh() {
	m.updateThrottleState(m.clock.Now())
}

func (m *Manager) hasUnknownProvider() bool {
	m.throttleMu.Lock()
	defer m.throttleMu.Unlock()
	for _, s := range m.lastThrottleResults {
		if s == throttle.Unknown {
			return true
		}
	}
	return false
}

func (m *Manager) hysteresisCounts() (healthy, unhealthy int) {
	m.throttleMu.Lock()
	defer m.throttleMu.Unlock()
	return m.consecutiveHealthyCount, m.consecutiveUnhealthyCount
}

func (m *Manager) getOrCreateStatus(functionID string) *Status {
	m.statusesMu.RLock()
	s, ok := m.statuses[functionID]
	m.statusesMu.RUnlock()
	if ok {
		return s
	}

	m.statusesMu.Lock()
	defer m.statusesMu.Unlock()
	if s, ok := m.statuses[functionID]; ok {
		return s
	}
	s = newStatus(functionID, m.clock.Now(), m.clock, m, m.config)
	m.statuses[functionID] = s
	return s
}

// GetStatus looks up (or creates) the status for functionID, refreshes
// throttle signals, and adjusts parallelism per the hysteresis policy
// before returning a snapshot. The contract is that GetStatus is
// never called concurrently for the same function id; different
// function ids may be queried concurrently.
func (m *Manager) GetStatus(functionID string) (snap Snapshot) {
	status := m.getOrCreateStatus(functionID)
	if m.telemetry != nil {
		defer func() {
			m.telemetry.ObserveStatus(snap.FunctionID, snap.CurrentParallelism, snap.OutstandingInvocations, snap.FetchCount)
		}()
	}

	if !status.CanAdjust(m.clock.Now()) {
		return status.Snapshot()
	}

	throttled := m.IsThrottleEnabled()

	if m.hasUnknownProvider() {
		return status.Snapshot()
	}

	healthy, unhealthy := m.hysteresisCounts()

	adjustmentID := uuid.New()
	switch {
	case !throttled && m.canIncreasePolicy(status, healthy):
		status.Increase()
		m.logAdjustment(adjustmentID, status, "increase")
	case throttled && m.canDecreasePolicy(status, unhealthy):
		status.Decrease()
		m.logAdjustment(adjustmentID, status, "decrease")
	}

	return status.Snapshot()
}

func (m *Manager) canIncreasePolicy(s *Status, consecutiveHealthy int) bool {
	return consecutiveHealthy >= m.config.MinConsecutiveIncreaseLimit && s.CanIncrease(m.config.MaxDegreeOfParallelism)
}

func (m *Manager) canDecreasePolicy(s *Status, consecutiveUnhealthy int) bool {
	return consecutiveUnhealthy >= m.config.MinConsecutiveDecreaseLimit && s.CanDecrease()
}

func (m *Manager) logAdjustment(adjustmentID uuid.UUID, s *Status, direction string) {
	m.logger.Info("concurrency: adjusted parallelism",
		zap.String("adjustment_id", adjustmentID.String()),
		zap.String("function_id", s.id),
		zap.String("direction", direction),
		zap.Int("current_parallelism", s.CurrentParallelism()),
		zap.Int("outstanding_invocations", s.OutstandingInvocations()),
	)
}

// FunctionStarted records the start of one invocation of functionID.
func (m *Manager) FunctionStarted(functionID string) {
	m.getOrCreateStatus(functionID).FunctionStarted()
}

// FunctionCompleted records the completion of one invocation of functionID.
func (m *Manager) FunctionCompleted(functionID string) {
	m.getOrCreateStatus(functionID).FunctionCompleted()
}
