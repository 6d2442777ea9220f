package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process logger: JSON in production, text elsewhere.
// LogLevel overrides the environment's default ("debug", "info", "warn", "error").
func (c *Config) NewLogger() *slog.Logger {
	return c.newLogger(os.Stdout)
}

func (c *Config) newLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: c.IsDevelopment(),
		Level:     slog.LevelDebug,
	}
	if c.IsProduction() {
		opts.Level = slog.LevelInfo
	}

	var lvl slog.Level
	if c.LogLevel != "" && lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))) == nil {
		opts.Level = lvl
	}

	var handler slog.Handler
	if c.IsProduction() {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With("service", "chamada")
}
