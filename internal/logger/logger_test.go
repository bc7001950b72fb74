package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"social-go/internal/config"
)

func TestNewRespectsLevel(t *testing.T) {
	l, err := New(config.Config{AppName: "social-go", AppEnv: "production", LogLevel: "warn"})
	require.NoError(t, err)

	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.Config{LogLevel: "loud"})
	assert.Error(t, err)
}

func TestInitReplacesGlobal(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	l, err := Init(config.Config{AppEnv: "development", LogLevel: "debug"})
	require.NoError(t, err)
	assert.Same(t, l, zap.L())
}
