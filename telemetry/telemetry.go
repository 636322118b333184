// Package telemetry exposes the controller's internal state as
// Prometheus metrics. It is entirely optional — nothing in the
// concurrency, health, or throttle packages requires a Recorder; they
// accept one only if the host wants exposition. Grounded on the
// client_golang/promauto usage pattern carried in the example pack's
// rate-limiter repo, adapted here from request-latency histograms to
// this controller's gauge-shaped state.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder owns the Prometheus collectors this module publishes.
type Recorder struct {
	currentParallelism     *prometheus.GaugeVec
	outstandingInvocations *prometheus.GaugeVec
	fetchCount             *prometheus.GaugeVec
	hostHealthVerdict      prometheus.Gauge
	throttleEnabled        prometheus.Gauge
}

// New registers the controller's collectors against reg. Pass
// prometheus.NewRegistry() for an isolated registry in tests, or
// prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		currentParallelism: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dynamic_concurrency",
			Name:      "current_parallelism",
			Help:      "Current per-function parallelism cap.",
		}, []string{"function_id"}),
		outstandingInvocations: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dynamic_concurrency",
			Name:      "outstanding_invocations",
			Help:      "Current outstanding invocation count per function.",
		}, []string{"function_id"}),
		fetchCount: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dynamic_concurrency",
			Name:      "fetch_count",
			Help:      "Most recently computed fetch count per function.",
		}, []string{"function_id"}),
		hostHealthVerdict: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dynamic_concurrency",
			Name:      "host_health_verdict",
			Help:      "Aggregate host health verdict: 0=Unknown, 1=Ok, 2=Overloaded.",
		}),
		throttleEnabled: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dynamic_concurrency",
			Name:      "throttle_enabled",
			Help:      "1 if the manager's cached throttle state is currently enabled, else 0.",
		}),
	}
}

// ObserveStatus records a per-function snapshot's three gauges.
func (r *Recorder) ObserveStatus(functionID string, currentParallelism, outstanding, fetchCount int) {
	r.currentParallelism.WithLabelValues(functionID).Set(float64(currentParallelism))
	r.outstandingInvocations.WithLabelValues(functionID).Set(float64(outstanding))
	r.fetchCount.WithLabelValues(functionID).Set(float64(fetchCount))
}

// ObserveHealthVerdict records the aggregate host health verdict.
// The caller passes an already-encoded ordinal (0/1/2) to keep this
// package free of a dependency on the health package's Verdict type.
func (r *Recorder) ObserveHealthVerdict(ordinal int) {
	r.hostHealthVerdict.Set(float64(ordinal))
}

// ObserveThrottleEnabled records the manager's cached throttle boolean.
func (r *Recorder) ObserveThrottleEnabled(enabled bool) {
	if enabled {
		r.throttleEnabled.Set(1)
		return
	}
	r.throttleEnabled.Set(0)
}
