package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. JSON output is for log shipping;
// non-production runs get the text handler at debug level.
func NewLogger(cfg *Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg == nil || !cfg.IsProduction() {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{AddSource: true, Level: level}

	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("app", "meridian"))
}
