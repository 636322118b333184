// Package logger provides the structured, leveled logging surface
// consumed throughout this module. Every call site that accepts a
// Logger treats it as optional — a nil Logger is never dereferenced;
// callers that don't want logging pass Nop() instead.
package logger

import (
	"errors"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the level of logging. Higher values denote more
// severe log messages, mirroring zap's own ordering.
type LogLevel int

const (
	// LogLevelDebug is for messages useful during active debugging.
	LogLevelDebug LogLevel = -1
	// LogLevelInfo is for informational messages about normal operation.
	LogLevelInfo LogLevel = 0
	// LogLevelWarn highlights a potential issue that does not stop the controller.
	LogLevelWarn LogLevel = 1
	// LogLevelError highlights an error the controller recovered from.
	LogLevelError LogLevel = 2
	// LogLevelDPanic is for conditions that should panic only in development.
	LogLevelDPanic LogLevel = 3
	// LogLevelPanic logs then panics.
	LogLevelPanic LogLevel = 4
	// LogLevelFatal logs then terminates the process. Never used by this
	// module's own code paths — the controller must not be able to take
	// down its host — but kept for hosts that build their own logger
	// with this package.
	LogLevelFatal LogLevel = 5
)

// ParseLogLevelFromString converts a configuration string into a LogLevel,
// defaulting to LogLevelInfo for an unrecognized value.
func ParseLogLevelFromString(levelStr string) LogLevel {
	switch levelStr {
	case "LogLevelDebug":
		return LogLevelDebug
	case "LogLevelInfo":
		return LogLevelInfo
	case "LogLevelWarn":
		return LogLevelWarn
	case "LogLevelError":
		return LogLevelError
	case "LogLevelDPanic":
		return LogLevelDPanic
	case "LogLevelPanic":
		return LogLevelPanic
	case "LogLevelFatal":
		return LogLevelFatal
	default:
		return LogLevelInfo
	}
}

// Logger is the structured logging interface consumed by every
// component in this module. Implementations must be safe for
// concurrent use — monitors, canaries, and the manager all log from
// background goroutines.
type Logger interface {
	SetLevel(level LogLevel)
	GetLogLevel() LogLevel
	Debug(msg string, fields ...zapcore.Field)
	Info(msg string, fields ...zapcore.Field)
	Warn(msg string, fields ...zapcore.Field)
	Error(msg string, fields ...zapcore.Field) error
	With(fields ...zapcore.Field) Logger
}

// defaultLogger implements Logger on top of a *zap.Logger.
type defaultLogger struct {
	logger   *zap.Logger
	logLevel LogLevel
}

func (d *defaultLogger) SetLevel(level LogLevel) {
	d.logLevel = level
}

func (d *defaultLogger) GetLogLevel() LogLevel {
	return d.logLevel
}

func (d *defaultLogger) Debug(msg string, fields ...zapcore.Field) {
	if d.logLevel <= LogLevelDebug {
		d.logger.Debug(msg, fields...)
	}
}

func (d *defaultLogger) Info(msg string, fields ...zapcore.Field) {
	if d.logLevel <= LogLevelInfo {
		d.logger.Info(msg, fields...)
	}
}

func (d *defaultLogger) Warn(msg string, fields ...zapcore.Field) {
	if d.logLevel <= LogLevelWarn {
		d.logger.Warn(msg, fields...)
	}
}

// Error logs the message at Error level and also returns it as an
// error value, letting call sites log and propagate in one statement.
func (d *defaultLogger) Error(msg string, fields ...zapcore.Field) error {
	if d.logLevel <= LogLevelError {
		d.logger.Error(msg, fields...)
	}
	return errors.New(msg)
}

func (d *defaultLogger) With(fields ...zapcore.Field) Logger {
	return &defaultLogger{
		logger:   d.logger.With(fields...),
		logLevel: d.logLevel,
	}
}

// nopLogger discards everything. Used wherever a collaborator passes
// no Logger, so call sites never need a nil check.
type nopLogger struct {
	logLevel LogLevel
}

// Nop returns a Logger that discards all output.
func Nop() Logger {
	return &nopLogger{logLevel: LogLevelInfo}
}

func (n *nopLogger) SetLevel(level LogLevel) {
	n.logLevel = level
}

func (n *nopLogger) GetLogLevel() LogLevel {
	return n.logLevel
}

func (n *nopLogger) Debug(string, ...zapcore.Field) {}

func (n *nopLogger) Info(string, ...zapcore.Field) {}

func (n *nopLogger) Warn(string, ...zapcore.Field) {}

func (n *nopLogger) Error(msg string, _ ...zapcore.Field) error {
	return errors.New(msg)
}

func (n *nopLogger) With(...zapcore.Field) Logger {
	return n
}

// OrNop returns l if it is non-nil, otherwise a no-op Logger. Every
// component in this module that accepts an optional Logger funnels it
// through OrNop once at construction so the rest of the code can call
// the interface unconditionally.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}
