package ops

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/w3irdrobot/bullhorn/internal/config"
)

// Logger is a structured logger wrapper
type Logger struct {
	*slog.Logger
	level  slog.Level
	format string
}

// NewLogger creates a new structured logger based on config
func NewLogger(cfg *config.Logging) *Logger {
	return NewLoggerWithWriter(cfg, os.Stdout)
}

// NewLoggerWithWriter creates a logger with a custom writer
func NewLoggerWithWriter(cfg *config.Logging, w io.Writer) *Logger {
	level := parseLevel(cfg.Level)

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Customize timestamp format
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
		level:  level,
		format: cfg.Format,
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent adds a component field to all log messages
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", component),
		level:  l.level,
		format: l.format,
	}
}

// IsDebugEnabled returns true if debug logging is enabled
func (l *Logger) IsDebugEnabled() bool {
	return l.level <= slog.LevelDebug
}

// Component-specific logger helpers

// LogEventAccepted logs a classified event being forwarded for notification
func (l *Logger) LogEventAccepted(eventID string, kind int) {
	l.Debug("event accepted",
		"event_id", eventID,
		"kind", kind)
}

// LogEventDropped logs a classified event being discarded
func (l *Logger) LogEventDropped(eventID string, kind int, reason string) {
	l.Debug("event dropped",
		"event_id", eventID,
		"kind", kind,
		"reason", reason)
}

// LogNotificationSent logs the outcome of a push delivery attempt
func (l *Logger) LogNotificationSent(title string, err error) {
	if err != nil {
		l.Warn("notification send failed",
			"title", title,
			"error", err)
	} else {
		l.Info("notification sent",
			"title", title)
	}
}

// LogZapWindow logs zap aggregation window activity
func (l *Logger) LogZapWindow(totalMillisats int64, open bool) {
	if open {
		l.Debug("zap aggregation window opened",
			"total_millisats", totalMillisats)
	} else {
		l.Info("zap aggregation window closed",
			"total_millisats", totalMillisats)
	}
}

// LogReminderScheduled logs a pending live event reminder
func (l *Logger) LogReminderScheduled(eventID string, wait time.Duration) {
	l.Info("live event reminder scheduled",
		"event_id", eventID,
		"wait", wait.String())
}

// LogStartup logs application startup information
func (l *Logger) LogStartup(version string, npub string) {
	l.Info("bullhorn starting",
		"version", version,
		"npub", npub)
}

// LogShutdown logs application shutdown
func (l *Logger) LogShutdown(reason string) {
	l.Info("bullhorn shutting down",
		"reason", reason)
}

// Default logger configuration
var defaultLogger *Logger

func init() {
	// Create a default logger for early startup
	defaultLogger = NewLogger(&config.Logging{
		Level:  "info",
		Format: "text",
	})
}

// Default returns the default logger
func Default() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger
func SetDefault(l *Logger) {
	defaultLogger = l
}

// Helper functions for common logging patterns

// Info logs an info message
func Info(msg string, fields ...any) {
	defaultLogger.Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...any) {
	defaultLogger.Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...any) {
	defaultLogger.Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...any) {
	defaultLogger.Error(msg, fields...)
}
