package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestObserveStatusSetsPerFunctionGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.ObserveStatus("fn-a", 4, 2, 2)

	assert := require.New(t)
	assert.Equal(float64(4), gaugeValue(t, r.currentParallelism.WithLabelValues("fn-a")))
	assert.Equal(float64(2), gaugeValue(t, r.outstandingInvocations.WithLabelValues("fn-a")))
	assert.Equal(float64(2), gaugeValue(t, r.fetchCount.WithLabelValues("fn-a")))
}

func TestObserveHealthVerdictAndThrottle(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.ObserveHealthVerdict(2)
	require.Equal(t, float64(2), gaugeValue(t, r.hostHealthVerdict))

	r.ObserveThrottleEnabled(true)
	require.Equal(t, float64(1), gaugeValue(t, r.throttleEnabled))

	r.ObserveThrottleEnabled(false)
	require.Equal(t, float64(0), gaugeValue(t, r.throttleEnabled))
}
