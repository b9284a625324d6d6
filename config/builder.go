package config

import (
	"io"
	"log/slog"

	"github.com/jpalmerr/carestore"
)

// Options converts parsed configuration into [carestore.Option] values.
//
// The logger is not included; pair the result with [carestore.WithLogger]
// and a logger built by [NewLogger].
func Options(cfg *Config) []carestore.Option {
	var opts []carestore.Option

	if cfg.Port != 0 {
		opts = append(opts, carestore.WithPort(cfg.Port))
	}

	if cfg.Snapshot.Path != "" {
		opts = append(opts,
			carestore.WithSnapshotPath(cfg.Snapshot.Path),
			carestore.WithFlushInterval(cfg.Snapshot.FlushInterval.Duration()),
		)
	}

	return opts
}

// NewLogger creates a JSON logger writing to w at the configured level.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
}
