// Package debug provides the library's structured logger using log/slog.
// Compilation warnings (skipped values) and query traces go through here.
package debug

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	mu     sync.RWMutex
)

// Init enables logging to stderr at the given level. Without Init all
// output is discarded.
func Init(level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// SetLogger replaces the logger, e.g. to capture output in tests.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// Warn logs a non-fatal warning.
func Warn(msg string, args ...interface{}) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.Warn(msg, args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...interface{}) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.Debug(msg, args...)
}

// Query traces a generated statement with its bound values.
func Query(sql string, args []interface{}) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.Debug("query", "sql", sql, "args", args)
}
