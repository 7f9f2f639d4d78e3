// Package logging provides structured logging for marketstats.
//
// This package wraps the standard library's log/slog package to provide
// consistent logging across all components. It supports both text and JSON
// output formats, configurable log levels, and component-based loggers.
//
// Usage:
//
//	// Initialize at startup
//	logging.Init(slog.LevelInfo, false) // Text format
//	logging.Init(slog.LevelDebug, true) // JSON format for production
//
//	// Get a component logger
//	log := logging.Component("manager.market")
//	log.Info("market created", "code", code)
//
//	// Log with request context
//	logging.WithContext(ctx).Error("save failed", "error", err)
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Logger is the global logger instance.
var Logger *slog.Logger

// Init initializes the global logger with the specified level and format.
// If jsonFormat is true, logs are output as JSON; otherwise, human-readable text.
func Init(level slog.Level, jsonFormat bool) {
	InitWriter(os.Stdout, level, jsonFormat)
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

// InitWithHandler initializes the global logger with a custom handler.
// This is useful for testing or custom output destinations.
func InitWithHandler(handler slog.Handler) {
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// ParseLevel converts a config string ("debug", "info", "warn", "error")
// into a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Component returns a logger for a specific component.
// The component name is added as an attribute to all log entries.
//
// Loggers are resolved lazily so package-level component loggers pick up a
// logger installed by Init after package initialization.
//
// Example:
//
//	log := logging.Component("stats.cache")
//	log.Info("invalidated") // Output: time=... level=INFO component=stats.cache msg=invalidated
func Component(name string) *ComponentLogger {
	return &ComponentLogger{name: name}
}

// ComponentLogger is a named logger bound to the current global Logger.
type ComponentLogger struct {
	name string
}

func (c *ComponentLogger) logger() *slog.Logger {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	return Logger.With("component", c.name)
}

// Ctx returns the component logger enriched with request context values.
func (c *ComponentLogger) Ctx(ctx context.Context) *slog.Logger {
	return withContextValues(ctx, c.logger())
}

// Debug logs at debug level.
func (c *ComponentLogger) Debug(msg string, args ...any) { c.logger().Debug(msg, args...) }

// Info logs at info level.
func (c *ComponentLogger) Info(msg string, args ...any) { c.logger().Info(msg, args...) }

// Warn logs at warning level.
func (c *ComponentLogger) Warn(msg string, args ...any) { c.logger().Warn(msg, args...) }

// Error logs at error level.
func (c *ComponentLogger) Error(msg string, args ...any) { c.logger().Error(msg, args...) }

// With returns a new logger with additional attributes.
// These attributes are included in every log entry from the returned logger.
func With(args ...any) *slog.Logger {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	return Logger.With(args...)
}

// WithContext returns a logger that includes context values.
// The chi request id is attached when the request passed through
// middleware.RequestID.
func WithContext(ctx context.Context) *slog.Logger {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	return withContextValues(ctx, Logger)
}

func withContextValues(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if ctx == nil {
		return logger
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if op, ok := ctx.Value(contextKeyOperation).(string); ok {
		logger = logger.With("operation", op)
	}
	return logger
}

// Context key types for type-safe context value extraction.
type contextKey int

const (
	contextKeyOperation contextKey = iota
)

// ContextWithOperation tags the context with the name of the running operation.
func ContextWithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, contextKeyOperation, op)
}

// =============================================================================
// Convenience Functions
// =============================================================================

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	Logger.Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	Logger.Info(msg, args...)
}

// Warn logs at warning level.
func Warn(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	Logger.Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	Logger.Error(msg, args...)
}
