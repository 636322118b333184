package logger

import (
	"go.uber.org/zap/zapcore"
)

type customCore struct {
	zapcore.Core
}

// With adds structured context to the Core. This method can be used to add additional context or to reorder fields as needed.
func (c *customCore) With(fields []zapcore.Field) zapcore.Core {
	// For simplicity, we're just passing it through in this example
	return &customCore{c.Core.With(fields)}
}

// Write serializes the Entry and any Fields supplied at the log site
// and writes them to their destination. function_id is moved to the
// end of the field list so every log line reads consistently when
// scanning across function ids in a terminal.
func (c *customCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	var functionIDField zapcore.Field
	var haveFunctionID bool
	otherFields := make([]zapcore.Field, 0, len(fields))
	for _, field := range fields {
		if field.Key == "function_id" {
			functionIDField = field
			haveFunctionID = true
			continue
		}
		otherFields = append(otherFields, field)
	}

	if haveFunctionID {
		otherFields = append(otherFields, functionIDField)
	}

	return c.Core.Write(entry, otherFields)
}

// Check determines whether the supplied Entry should be logged.
// It registers this wrapper (not the inner core) so that Write above
// is the one invoked.
func (c *customCore) Check(entry zapcore.Entry, checkedEntry *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checkedEntry.AddCore(entry, c)
	}
	return checkedEntry
}

// Sync flushes buffered logs (if any).
func (c *customCore) Sync() error {
	return c.Core.Sync()
}
