package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/snamp-platform/snamp-go/pkg/version"
)

// parseLevel maps a level name to a slog level. Unknown names are info.
func parseLevel(s string) slog.Level {
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

// newLogger returns a JSON logger tagged with the daemon name and version.
// Debug logs carry their source location.
func newLogger(w io.Writer, level string) *slog.Logger {
	lvl := parseLevel(level)
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	})
	return slog.New(h).With("module", name, "version", version.Version)
}
