package throttle

import (
	"context"

	"github.com/corewatch/dynamic-concurrency/health"
	"github.com/corewatch/dynamic-concurrency/logger"
)

// HealthProvider translates a health.Monitor's aggregate verdict into
// a throttle State: Ok maps to Disabled, Overloaded to Enabled,
// Unknown stays Unknown.
type HealthProvider struct {
	monitor health.Monitor
}

// NewHealthProvider wraps monitor as a throttle Provider.
func NewHealthProvider(monitor health.Monitor) *HealthProvider {
	return &HealthProvider{monitor: monitor}
}

// Status reports the throttle state derived from the current health verdict.
func (p *HealthProvider) Status(log logger.Logger) State {
	switch p.monitor.Status(context.Background(), log) {
	case health.Overloaded:
		return Enabled
	case health.Ok:
		return Disabled
	default:
		return Unknown
	}
}
