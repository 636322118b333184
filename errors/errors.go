// Package errors defines the small error taxonomy this module surfaces
// to its callers. Per the controller's failure semantics, only
// configuration mistakes are ever returned as errors from a
// constructor — sampling failures are swallowed inside a monitor tick
// and provider failures are folded into an Unknown verdict, neither of
// which ever reaches a caller as a Go error value.
package errors

import "fmt"

// ConfigError reports a tunable that was rejected at construction time
// because it is out of the range the controller can operate in (for
// example, a parallelism ceiling below 1). It is never logged by this
// package — the caller owns deciding how to surface it.
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration for %s (%v): %s", e.Field, e.Value, e.Reason)
}

// NewConfigError builds a ConfigError for the given field/value/reason.
func NewConfigError(field string, value interface{}, reason string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Reason: reason}
}

// ProviderError wraps a telemetry source's failure to produce a
// sample (e.g. an exited process) or a throttle provider's failure to
// compute a status. It is logged at Debug or Warn depending on the
// caller and otherwise treated as a missing sample or Unknown
// verdict; it is never returned to a listener loop.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("throttle provider %q failed: %v", e.Provider, e.Err)
}

// Unwrap allows errors.Is/errors.As to see through to the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err as having come from the named provider.
func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Err: err}
}
