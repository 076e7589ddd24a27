package logging

import (
	"log/slog"
	"os"
	"strings"
)

type Logger = slog.Logger

func New(level string) *slog.Logger {
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
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(h).With("app", "linkedreach")
}

// Module returns a logger tagged for one subsystem. All packages build
// theirs through here so the module attribute is spelled uniformly.
func Module(level, name string) *slog.Logger {
	return New(level).With("module", name)
}
