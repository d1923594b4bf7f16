package app

import (
	"io"
	"log/slog"
)

// newLogger builds the logger for one run from cfg. Every record carries the
// program path so interleaved runs stay distinguishable. The global logger is
// left alone.
func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch cfg.LogFormat {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("program", cfg.InputPath)
}
