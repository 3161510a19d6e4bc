package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a JSON logger writing to w and tags every record with the
// app name. A nil writer selects stdout. Unknown levels fall back to info.
func New(w io.Writer, appName, level string) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	logger := slog.New(handler)
	if name := strings.TrimSpace(appName); name != "" {
		logger = logger.With(slog.String("app", name))
	}
	return logger
}

// ParseLevel maps debug, info, warn or error (any case) to a slog level.
func ParseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Discard returns a logger that drops all output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
