package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	l, err := New("warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = New("debug")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNewBadLevel(t *testing.T) {
	_, err := New("loud")
	assert.Error(t, err)
}

func TestNewWithOptions(t *testing.T) {
	l, err := NewWith(func(cfg *zap.Config) {
		cfg.OutputPaths = []string{"stdout"}
		cfg.Level.SetLevel(zapcore.ErrorLevel)
	})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.WarnLevel))
}
