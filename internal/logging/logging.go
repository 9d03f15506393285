// Package logging provides structured logging for the tierstat analyzer.
//
// This package wraps the standard library's log/slog package so every
// component logs the same way. Logs are written to stderr; stdout is
// reserved for command output such as summaries and query results.
//
// Usage:
//
//	logging.Init(slog.LevelInfo, false)
//
//	log := logging.Component("engine")
//	log.Info("run finished", "timesteps", n)
//
//	ctx = logging.ContextWithTimestep(ctx, 12)
//	logging.WithContext(ctx).Debug("stepped")
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the global logger instance.
var Logger *slog.Logger

// Init initializes the global logger with the specified level and format.
// If jsonFormat is true, logs are output as JSON; otherwise, human-readable text.
func Init(level slog.Level, jsonFormat bool) {
	InitWriter(os.Stderr, level, jsonFormat)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level slog.Level, jsonFormat bool) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if jsonFormat {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// ParseLevel maps a config/flag level name to a slog level.
// Unknown names fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Component returns a logger for a specific component.
// The component name is added as an attribute to all log entries.
func Component(name string) *slog.Logger {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	return Logger.With("component", name)
}

// WithContext returns a logger carrying the run directory and timestep
// stored in ctx, if any.
func WithContext(ctx context.Context) *slog.Logger {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}

	logger := Logger

	if run, ok := ctx.Value(contextKeyRun).(string); ok {
		logger = logger.With("run", run)
	}
	if ts, ok := ctx.Value(contextKeyTimestep).(int); ok {
		logger = logger.With("timestep", ts)
	}

	return logger
}

type contextKey int

const (
	contextKeyRun contextKey = iota
	contextKeyTimestep
)

// ContextWithRun adds the analyzed run directory to the context for logging.
func ContextWithRun(ctx context.Context, run string) context.Context {
	return context.WithValue(ctx, contextKeyRun, run)
}

// ContextWithTimestep adds a timestep index to the context for logging.
func ContextWithTimestep(ctx context.Context, timestep int) context.Context {
	return context.WithValue(ctx, contextKeyTimestep, timestep)
}
