package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		logLevel string
	}{
		{name: "開発環境", env: "development"},
		{name: "本番環境", env: "production"},
		{name: "LOG_LEVEL指定", env: "development", logLevel: "debug"},
		{name: "無効なLOG_LEVEL", env: "production", logLevel: "invalid_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.logLevel)

			logger := NewLogger(tt.env)
			require.NotNil(t, logger)
			assert.NotPanics(t, func() { logger.Info("test message") })
		})
	}
}

func TestNewLogger_LogLevelOverride(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")

	logger := NewLogger("development")
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestInit(t *testing.T) {
	original := Get()
	defer Set(original)

	l := Init("production")
	require.NotNil(t, l)
	assert.Equal(t, l, Get())
}

func TestSet(t *testing.T) {
	original := Get()
	defer Set(original)

	newLogger := zap.NewNop()
	Set(newLogger)
	assert.Equal(t, newLogger, Get())

	// nil では差し替えない
	Set(nil)
	assert.Equal(t, newLogger, Get())
}

func TestPackageFunctions(t *testing.T) {
	original := Get()
	defer Set(original)

	core, recorded := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))

	Debug("debug message")
	Info("info message", zap.String("code", "abc"))
	Warn("warn message")
	Error("error message", zap.Int("status", 503))
	With(zap.String("component", "worker")).Info("scoped message")

	entries := recorded.All()
	require.Len(t, entries, 5)
	assert.Equal(t, "info message", entries[1].Message)
	assert.Equal(t, "abc", entries[1].ContextMap()["code"])
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "worker", entries[4].ContextMap()["component"])

	assert.NotPanics(t, func() { _ = Sync() })
}
