package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const runIDKey contextKey = "runID"

// LevelTrace is below debug and only enabled with -vv
const LevelTrace = slog.LevelDebug - 4

var logger *slog.Logger

func init() {
	// Stdout carries the diagram, so logs go to stderr
	logger = slog.New(NewCompactHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Setup replaces the package logger. format is "text" (compact) or "json".
func Setup(w io.Writer, level slog.Level, format string) {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		logger = slog.New(slog.NewJSONHandler(w, opts))
		return
	}
	logger = slog.New(NewCompactHandler(w, opts))
}

// ParseLevel maps a verbosity name or a -v count to a slog level.
// An explicit name wins over the count.
func ParseLevel(name string, verbose int) slog.Level {
	switch name {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "quiet":
		return slog.LevelError
	}
	switch {
	case verbose >= 2:
		return LevelTrace
	case verbose == 1:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// NewRun returns a context carrying a fresh run ID, used to correlate the logs of one invocation
func NewRun(ctx context.Context) context.Context {
	return WithRunID(ctx, uuid.NewString())
}

// WithRunID adds a run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetRunID retrieves the run ID from context
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(runIDKey).(string); ok {
		return runID
	}
	return ""
}

func withRunID(ctx context.Context, args []any) []any {
	if runID := GetRunID(ctx); runID != "" {
		return append([]any{"runID", runID}, args...)
	}
	return args
}

// Trace logs at TRACE level (very verbose, debug-time only)
func Trace(msg string, args ...any) {
	logger.Log(context.Background(), LevelTrace, msg, args...)
}

// TraceContext logs at TRACE level with context
func TraceContext(ctx context.Context, msg string, args ...any) {
	logger.Log(ctx, LevelTrace, msg, withRunID(ctx, args)...)
}

// Debug logs at DEBUG level (internal component behavior)
func Debug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

// DebugContext logs at DEBUG level with context
func DebugContext(ctx context.Context, msg string, args ...any) {
	logger.DebugContext(ctx, msg, withRunID(ctx, args)...)
}

// InfoContext logs at INFO level with context
func InfoContext(ctx context.Context, msg string, args ...any) {
	logger.InfoContext(ctx, msg, withRunID(ctx, args)...)
}

// Warn logs at WARN level
func Warn(msg string, args ...any) {
	logger.Warn(msg, args...)
}

// WarnContext logs at WARN level with context
func WarnContext(ctx context.Context, msg string, args ...any) {
	logger.WarnContext(ctx, msg, withRunID(ctx, args)...)
}

