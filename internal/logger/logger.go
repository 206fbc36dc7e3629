// Package logger builds the zap logger used by the CLI.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a development logger writing to stderr at level ("debug",
// "info", "warn", "error").
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return NewWith(func(cfg *zap.Config) {
		cfg.Level.SetLevel(lvl)
	})
}

// NewWith builds a logger from the CLI defaults after applying opts.
func NewWith(opts ...func(*zap.Config)) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableStacktrace = true
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg.Build()
}
