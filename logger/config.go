package logger

// Ref: https://betterstack.com/community/guides/logging/go/zap/#logging-errors-with-zap

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// EncodingJSON produces machine-parseable structured log lines.
	EncodingJSON = "json"
	// EncodingConsole produces human-readable, colorized log lines.
	EncodingConsole = "console"
)

// BuildLogger constructs a Logger backed by zap. encoding is either
// EncodingJSON or EncodingConsole; any other value falls back to JSON.
func BuildLogger(logLevel LogLevel, encoding string) Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	encoderCfg.EncodeDuration = zapcore.StringDurationEncoder
	encoderCfg.MessageKey = "msg"
	encoderCfg.LevelKey = "level"

	if encoding != EncodingConsole {
		encoding = EncodingJSON
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config := zap.Config{
		Level:             zap.NewAtomicLevelAt(convertToZapLevel(logLevel)),
		Development:       false,
		Encoding:          encoding,
		DisableCaller:     true,
		DisableStacktrace: true,
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}

	built, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("logger: failed to build zap logger: %v", err))
	}

	wrapped := zap.New(&customCore{built.Core()})

	return &defaultLogger{
		logger:   wrapped,
		logLevel: logLevel,
	}
}

// convertToZapLevel converts our LogLevel into zap's zapcore.Level.
func convertToZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LogLevelDebug:
		return zap.DebugLevel
	case LogLevelInfo:
		return zap.InfoLevel
	case LogLevelWarn:
		return zap.WarnLevel
	case LogLevelError:
		return zap.ErrorLevel
	case LogLevelDPanic:
		return zap.DPanicLevel
	case LogLevelPanic:
		return zap.PanicLevel
	case LogLevelFatal:
		return zap.FatalLevel
	default:
		return zap.InfoLevel
	}
}
