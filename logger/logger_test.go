package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"LogLevelDebug", LogLevelDebug},
		{"LogLevelInfo", LogLevelInfo},
		{"LogLevelWarn", LogLevelWarn},
		{"LogLevelError", LogLevelError},
		{"LogLevelDPanic", LogLevelDPanic},
		{"LogLevelPanic", LogLevelPanic},
		{"LogLevelFatal", LogLevelFatal},
		{"garbage", LogLevelInfo},
		{"", LogLevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLogLevelFromString(tt.input))
		})
	}
}

func TestNopLoggerDiscardsEverything(t *testing.T) {
	n := Nop()

	n.SetLevel(LogLevelDebug)
	assert.Equal(t, LogLevelDebug, n.GetLogLevel())

	n.Debug("debug")
	n.Info("info")
	n.Warn("warn")
	err := n.Error("boom")
	assert.EqualError(t, err, "boom")

	chained := n.With()
	assert.NotNil(t, chained)
}

func TestOrNopSubstitutesNilLogger(t *testing.T) {
	l := OrNop(nil)
	assert.NotNil(t, l)

	built := BuildLogger(LogLevelInfo, EncodingJSON)
	assert.Same(t, built, OrNop(built))
}
