package logger

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"social-go/internal/config"
)

// InitSentry initialises the Sentry client when a DSN is configured. The
// returned flush func must run before exit; it is a no-op without Sentry.
func InitSentry(cfg config.Config) (enabled bool, flush func(), err error) {
	if cfg.Sentry.DSN == "" {
		return false, func() {}, nil
	}
	env := cfg.Sentry.Environment
	if env == "" {
		env = cfg.AppEnv
	}
	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      env,
		Release:          cfg.AppName + "@" + cfg.AppVersion,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
	})
	if err != nil {
		return false, func() {}, fmt.Errorf("init sentry: %w", err)
	}
	return true, func() { sentry.Flush(2 * time.Second) }, nil
}

// WithSentry forwards error-level entries of l to Sentry.
func WithSentry(l *zap.Logger) *zap.Logger {
	return l.WithOptions(zap.Hooks(func(e zapcore.Entry) error {
		if e.Level >= zapcore.ErrorLevel {
			sentry.CaptureMessage(e.LoggerName + ": " + e.Message)
		}
		return nil
	}))
}
