package logger

import (
	"fmt"
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"social-go/internal/config"
)

// New builds the application logger. Development uses the console encoder,
// everything else logs JSON.
func New(cfg config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}

	var zc zap.Config
	if cfg.IsDevelopment() {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	l, err := zc.Build(zap.Fields(
		zap.String("app", cfg.AppName),
		zap.String("version", cfg.AppVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return l, nil
}

// Init builds the logger and installs it as zap's global logger, so packages
// can log through zap.L() without having it injected.
func Init(cfg config.Config) (*zap.Logger, error) {
	l, err := New(cfg)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(l)
	return l, nil
}

// StdLogger adapts a zap logger to the *log.Logger expected by GORM and
// gorilla's recovery handler.
func StdLogger(l *zap.Logger, name string) *log.Logger {
	return zap.NewStdLog(l.Named(name))
}
