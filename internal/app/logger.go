package app

import (
	"log/slog"
	"os"
)

// NewLogger returns the process logger: JSON when LOG_FORMAT=json (the
// deployed shape), text otherwise, at debug level outside production. Every
// record carries the environment so shared log sinks stay searchable.
func NewLogger(cfg *Config) *slog.Logger {
	level := slog.LevelDebug
	if cfg.IsProduction() {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{AddSource: true, Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("env", cfg.AppEnv))
}
