package app

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds the shared JSON logger and installs it as the slog
// default. The one-shot CLI passes stderr so logs stay clear of the
// rendered output; the daemons pass stdout. Unknown level strings fall
// back to info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}
