package core

import (
	"io"
	"log/slog"
	"os"
)

// LogConfig mirrors the Level/Format/Output shape marmos91-dittofs uses
// for its own logger package, generalized here to configure the stdlib
// slog.Logger every layer of the runtime is handed at construction time.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string
	// Format is "text" or "json". Defaults to "text".
	Format string
	// Output receives log lines. Defaults to os.Stderr (the adapter's own
	// stdout/stdin are in use for the DAP channel in Stdio transport mode,
	// so logging must never default to stdout).
	Output io.Writer
}

// NewLogger builds a *slog.Logger from cfg. Safe to call with a zero
// LogConfig.
func NewLogger(cfg LogConfig) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}

// NopLogger returns a logger that discards everything, for tests and
// callers that don't care to configure one.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
