// Package qlog wraps go.uber.org/zap so that engine code never imports zap
// directly. The simulator engine itself does not log: it emits no scope or
// pruning events and never logs a primitive failure (errors are returned
// to the caller, not swallowed). cmd/qflowdemo logs a failed run via
// Errorw.
package qlog

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.RWMutex
	logger *zap.SugaredLogger
)

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	logger = l.Sugar()
}

// Set replaces the package-level logger, e.g. with a development logger in
// tests or a configured logger in cmd/qflowdemo.
func Set(l *zap.SugaredLogger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debugw logs a structured debug message. Kept as a thin indirection so
// the rest of the module depends on qlog, not zap, directly.
func Debugw(msg string, keysAndValues ...any) {
	get().Debugw(msg, keysAndValues...)
}

// Errorw logs a structured error message; used only by command-line entry
// points, never by the engine itself.
func Errorw(msg string, keysAndValues ...any) {
	get().Errorw(msg, keysAndValues...)
}
