// Package logging wraps the process-wide zap logger.
package logging

import (
	"fmt"
	stdlog "log"

	"go.uber.org/zap"
)

var (
	base    = zap.NewNop()
	sugared = base.Sugar()
)

// Init builds the process logger. Debug selects zap's development config.
func Init(debug bool) error {
	var zapLogger *zap.Logger
	var err error

	if debug {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %v", err)
	}

	base = zapLogger
	sugared = zapLogger.Sugar()
	return nil
}

// Get returns the sugared logger. Before Init it is a no-op logger.
func Get() *zap.SugaredLogger {
	return sugared
}

// Named returns a child logger tagged with the given component name
func Named(name string) *zap.SugaredLogger {
	return Get().Named(name)
}

// StdLogger adapts the base logger for libraries that want a *log.Logger
func StdLogger() *stdlog.Logger {
	return zap.NewStdLog(base)
}

// Sync flushes any buffered log entries
func Sync() {
	_ = sugared.Sync()
}
