// Package logging configures the process-wide slog logger for kfix.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup configures the global slog logger. Logs go to stderr so that
// scan tables and diagnoses on stdout stay pipeable.
func Setup(level string) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	slog.SetDefault(slog.New(handler))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Component returns a logger scoped to one kfix component.
func Component(name string) *slog.Logger {
	return slog.Default().With("component", name)
}
