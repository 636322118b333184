// Package health aggregates process samples from one or more
// monitor.Monitor instances into a single health verdict via a
// recent-window average compared against a CPU and (when metered) a
// memory threshold.
package health

import (
	"context"
	"math"
	"os"
	"sync"

	"github.com/corewatch/dynamic-concurrency/clock"
	"github.com/corewatch/dynamic-concurrency/logger"
	"github.com/corewatch/dynamic-concurrency/monitor"
	"github.com/corewatch/dynamic-concurrency/procsource"
	"github.com/corewatch/dynamic-concurrency/telemetry"
	"go.uber.org/zap"
)

// MinSampleCount is the recent-window size used when averaging a
// process's sample history (tunable: min_sample_count).
const MinSampleCount = 5

// CPUOverloadThreshold is the aggregate CPU percentage at or above
// which the CPU sub-verdict is Overloaded (tunable: max_cpu_threshold).
const CPUOverloadThreshold = 80.0

const giB = 1 << 30

// standardPerCoreGiB and premiumPerCoreGiB are the plan-dependent
// per-core memory budgets used to derive the memory overload
// threshold. 3.5 GiB is the typical standard-tier budget; 7 GiB
// (double the standard tier) is this module's documented assumption
// for the premium tier, recorded in DESIGN.md.
const (
	standardPerCoreGiB = 3.5
	premiumPerCoreGiB  = 7.0
)

// CoreCounter reports the number of CPU cores this process is
// effectively allowed to use on its hosting plan.
type CoreCounter interface {
	EffectiveCores() int
}

// PlanDetector reports the billing/hosting plan characteristics that
// decide whether memory is evaluated at all and which per-core memory
// budget applies.
type PlanDetector interface {
	Metered() bool
	PremiumMetered() bool
}

// Monitor is the subset of host-health behavior collaborators depend
// on; *HostHealthMonitor satisfies it.
type Monitor interface {
	Register(proc *os.Process, source procsource.Source) error
	Unregister(proc *os.Process)
	Status(ctx context.Context, log logger.Logger) Verdict
	Dispose()
}

// HostHealthMonitor owns one process monitor for the host process and
// one per registered child, and aggregates their recent samples into
// a single Verdict.
type HostHealthMonitor struct {
	effectiveCores       int
	metered              bool
	memoryThresholdBytes uint64

	clock     clock.Clock
	logger    logger.Logger
	telemetry *telemetry.Recorder

	hostMonitor *monitor.Monitor

	mu       sync.Mutex
	children map[*os.Process]*monitor.Monitor
}

// Option configures a HostHealthMonitor at construction.
type Option func(*HostHealthMonitor)

// WithClock overrides the clock propagated to every owned monitor.
func WithClock(c clock.Clock) Option {
	return func(h *HostHealthMonitor) { h.clock = c }
}

// WithLogger attaches a logger used for warnings during status
// computation and monitor sampling.
func WithLogger(l logger.Logger) Option {
	return func(h *HostHealthMonitor) { h.logger = logger.OrNop(l) }
}

// WithTelemetry attaches a Prometheus recorder; every Status call
// publishes the resulting verdict as a gauge when set.
func WithTelemetry(r *telemetry.Recorder) Option {
	return func(h *HostHealthMonitor) { h.telemetry = r }
}

// New constructs a HostHealthMonitor, starting the host process
// monitor immediately.
func New(hostSource procsource.Source, cores CoreCounter, plan PlanDetector, opts ...Option) *HostHealthMonitor {
	h := &HostHealthMonitor{
		effectiveCores: 1,
		clock:          clock.Real,
		logger:         logger.Nop(),
		children:       make(map[*os.Process]*monitor.Monitor),
	}
	for _, opt := range opts {
		opt(h)
	}

	if cores != nil {
		if n := cores.EffectiveCores(); n > 0 {
			h.effectiveCores = n
		}
	}

	if plan != nil && plan.Metered() {
		h.metered = true
		perCoreGiB := standardPerCoreGiB
		if plan.PremiumMetered() {
			perCoreGiB = premiumPerCoreGiB
		}
		h.memoryThresholdBytes = uint64(float64(h.effectiveCores) * perCoreGiB * giB * 0.90)
	}

	h.hostMonitor = monitor.New(hostSource, h.effectiveCores,
		monitor.WithClock(h.clock),
		monitor.WithLogger(h.logger),
	)
	h.hostMonitor.Start()

	return h
}

// Register starts a child monitor for proc, keyed by its process
// handle. Registration is concurrency-safe.
func (h *HostHealthMonitor) Register(proc *os.Process, source procsource.Source) error {
	m := monitor.New(source, h.effectiveCores,
		monitor.WithClock(h.clock),
		monitor.WithLogger(h.logger),
	)
	m.Start()

	h.mu.Lock()
	h.children[proc] = m
	h.mu.Unlock()

	return nil
}

// Unregister disposes and removes the child monitor for proc, if any.
func (h *HostHealthMonitor) Unregister(proc *os.Process) {
	h.mu.Lock()
	m, ok := h.children[proc]
	delete(h.children, proc)
	h.mu.Unlock()

	if ok {
		m.Dispose()
	}
}

// Status computes the aggregate health verdict via the recent-window
// averaging and threshold rules documented on evaluate/evaluateMemory.
// ctx allows an in-flight caller to cancel before the (already
// non-blocking) snapshot walk begins; it is not threaded any deeper
// since nothing here performs I/O.
func (h *HostHealthMonitor) Status(ctx context.Context, log logger.Logger) Verdict {
	log = logger.OrNop(log)

	if ctx != nil && ctx.Err() != nil {
		return Unknown
	}

	hostStats := h.hostMonitor.Stats()

	h.mu.Lock()
	children := make([]*monitor.Monitor, 0, len(h.children))
	for _, m := range h.children {
		children = append(children, m)
	}
	h.mu.Unlock()

	childStats := make([]monitor.Stats, 0, len(children))
	for _, m := range children {
		childStats = append(childStats, m.Stats())
	}

	cpuVerdict := h.evaluate(hostStats.CPUPercent, collectFloats(childStats, func(s monitor.Stats) []float64 { return s.CPUPercent }), CPUOverloadThreshold)

	verdicts := []Verdict{cpuVerdict}

	if h.metered {
		memVerdict := h.evaluateMemory(hostStats.MemoryBytes, collectUints(childStats, func(s monitor.Stats) []uint64 { return s.MemoryBytes }))
		verdicts = append(verdicts, memVerdict)
	}

	combined := Combine(verdicts...)
	if combined == Overloaded {
		log.Warn("health: aggregate verdict overloaded", zap.String("verdict", combined.String()))
	}
	if h.telemetry != nil {
		h.telemetry.ObserveHealthVerdict(int(combined))
	}
	return combined
}

// Dispose stops the host monitor and every registered child monitor.
func (h *HostHealthMonitor) Dispose() {
	h.mu.Lock()
	children := h.children
	h.children = make(map[*os.Process]*monitor.Monitor)
	h.mu.Unlock()

	for _, m := range children {
		m.Dispose()
	}
	h.hostMonitor.Dispose()
}

func (h *HostHealthMonitor) evaluate(hostHistory []float64, childHistories [][]float64, threshold float64) Verdict {
	if len(hostHistory) < MinSampleCount {
		return Unknown
	}

	total := averageLastN(hostHistory, MinSampleCount)
	for _, ch := range childHistories {
		if len(ch) >= MinSampleCount {
			total += averageLastN(ch, MinSampleCount)
		}
	}

	if math.Round(total) >= threshold {
		return Overloaded
	}
	return Ok
}

func (h *HostHealthMonitor) evaluateMemory(hostHistory []uint64, childHistories [][]uint64) Verdict {
	if len(hostHistory) < MinSampleCount {
		return Unknown
	}

	total := averageLastNUint(hostHistory, MinSampleCount)
	for _, ch := range childHistories {
		if len(ch) >= MinSampleCount {
			total += averageLastNUint(ch, MinSampleCount)
		}
	}

	if uint64(math.Round(total)) >= h.memoryThresholdBytes {
		return Overloaded
	}
	return Ok
}

func averageLastN(history []float64, n int) float64 {
	window := history[len(history)-n:]
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	return sum / float64(n)
}

func averageLastNUint(history []uint64, n int) float64 {
	window := history[len(history)-n:]
	sum := 0.0
	for _, v := range window {
		sum += float64(v)
	}
	return sum / float64(n)
}

func collectFloats(stats []monitor.Stats, sel func(monitor.Stats) []float64) [][]float64 {
	out := make([][]float64, 0, len(stats))
	for _, s := range stats {
		out = append(out, sel(s))
	}
	return out
}

func collectUints(stats []monitor.Stats, sel func(monitor.Stats) []uint64) [][]uint64 {
	out := make([][]uint64, 0, len(stats))
	for _, s := range stats {
		out = append(out, sel(s))
	}
	return out
}
