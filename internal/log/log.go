// Package log provides a single process-wide structured logger, configured
// once from the environment and shared by every command and package. The
// lazy, sync.Once-guarded global mirrors the teacher's logging package, but
// self-contained: the teacher's own log/log.go depended on internal
// encoder/field packages this module has no use for.
package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	once   sync.Once
	logger *zap.SugaredLogger
)

// Get returns the process-wide logger, initialising it on first use from
// the SKETCHSRCH_LOG_LEVEL environment variable (default: info).
func Get() *zap.SugaredLogger {
	once.Do(func() {
		logger = build().Sugar()
	})
	return logger
}

func build() *zap.Logger {
	level := zapcore.InfoLevel
	if err := level.Set(os.Getenv("SKETCHSRCH_LOG_LEVEL")); err != nil {
		level = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		// Building the production config only fails on a malformed
		// encoder/sink registration, which this package never does; a
		// minimal fallback keeps the process from dying over logging.
		return zap.NewNop()
	}
	return l
}

// Sync flushes any buffered log entries. Commands should defer this right
// after Get() in main.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
