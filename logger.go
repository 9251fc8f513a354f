package mimetypes

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with registry-specific helpers so log call sites
// stay consistent across the library.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. If handler is nil, a
// text handler to stderr at info level is used.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that writes human-readable text to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewJSONLogger creates a Logger that writes JSON-formatted logs to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// LogDuplicate logs the lenient duplicate-registration warning: the record
// was already present and the insert was skipped, nothing more.
func (l *Logger) LogDuplicate(contentType, simplified string) {
	l.Warn("duplicate type registration skipped",
		"content-type", contentType,
		"simplified", simplified,
	)
}

// LogAdd logs a completed registry insertion.
func (l *Logger) LogAdd(contentType string, extensions int) {
	l.Debug("type registered",
		"content-type", contentType,
		"extensions", extensions,
	)
}

// LogLookup logs a lookup and its result size.
func (l *Logger) LogLookup(key string, results int) {
	l.Debug("lookup completed",
		"key", key,
		"results", results,
	)
}

// LogBuild logs an index build.
func (l *Logger) LogBuild(dir string, count int, err error) {
	if err != nil {
		l.Error("index build failed",
			"dir", dir,
			"error", err,
		)
	} else {
		l.Info("index built",
			"dir", dir,
			"types", count,
		)
	}
}
