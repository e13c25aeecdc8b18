package logger

import (
	"go.uber.org/zap"
)

var instance *zap.SugaredLogger

// Initialize sets up the global logger at the given level ("debug", "info",
// "warn", "error"). Must be called once before any logging helper.
func Initialize(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	instance = logger.Sugar()
	return nil
}

// Get returns the global sugared logger. Falls back to a no-op logger so
// library code and tests can log without calling Initialize first.
func Get() *zap.SugaredLogger {
	if instance == nil {
		instance = zap.NewNop().Sugar()
	}
	return instance
}

// Sync flushes any buffered log entries.
func Sync() error {
	if instance != nil {
		return instance.Sync()
	}
	return nil
}

// Infof logs a formatted message at info level.
func Infof(template string, args ...interface{}) {
	Get().Infof(template, args...)
}

// Warnf logs a formatted message at warn level.
func Warnf(template string, args ...interface{}) {
	Get().Warnf(template, args...)
}

// Errorf logs a formatted message at error level.
func Errorf(template string, args ...interface{}) {
	Get().Errorf(template, args...)
}

// Debugf logs a formatted message at debug level.
func Debugf(template string, args ...interface{}) {
	Get().Debugf(template, args...)
}
