// ABOUTME: Structured logger construction for the CLI
// ABOUTME: Colorized slog output via tint; level from config and flags
package commands

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

func parseLevel(level string) slog.Level {
	switch level {
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

// newLogger builds the process logger. --verbose and --quiet override level.
func newLogger(w io.Writer, level string) *slog.Logger {
	lvl := parseLevel(level)
	switch {
	case verbose:
		lvl = slog.LevelDebug
	case quiet:
		lvl = slog.LevelWarn
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: time.DateTime,
	}))
}
