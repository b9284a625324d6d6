package carestore

import (
	"errors"
	"log/slog"
	"time"
)

// csConfig holds mutable state during CareStore construction.
type csConfig struct {
	port            int
	snapshotPath    string
	flushInterval   time.Duration
	logger          *slog.Logger
	changeCallbacks []func(Change)
}

// Option is a function that configures a [CareStore] during construction.
//
// Built-in options: [WithPort], [WithSnapshotPath], [WithFlushInterval],
// [WithLogger], [WithChangeCallback].
type Option func(*csConfig) error

// WithPort enables the inspection HTTP server on port.
//
// The server is off by default. Returns an error if the port is outside
// 1-65535.
func WithPort(port int) Option {
	return func(cfg *csConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithSnapshotPath persists all stores to a bbolt file at path.
//
// Existing contents are restored by [New]. While [CareStore.Start] runs,
// changes are flushed every flush interval, and once more on shutdown.
func WithSnapshotPath(path string) Option {
	return func(cfg *csConfig) error {
		if path == "" {
			return errors.New("snapshot path cannot be empty")
		}
		cfg.snapshotPath = path
		return nil
	}
}

// WithFlushInterval sets how often pending changes are written to the
// snapshot file. Defaults to 5 seconds.
//
// Returns an error if the duration is zero or negative.
func WithFlushInterval(d time.Duration) Option {
	return func(cfg *csConfig) error {
		if d <= 0 {
			return errors.New("flush interval must be positive")
		}
		cfg.flushInterval = d
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *csConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithChangeCallback registers a function called after every mutation of any
// store.
//
// Callbacks run synchronously on the goroutine that made the change, in
// registration order, and must not block. Panics are recovered and logged.
//
// Example:
//
//	cs, err := carestore.New(
//	    carestore.WithChangeCallback(func(c carestore.Change) {
//	        log.Printf("%s changed", c.Store)
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithChangeCallback(cb func(Change)) Option {
	return func(cfg *csConfig) error {
		if cb == nil {
			return nil
		}
		cfg.changeCallbacks = append(cfg.changeCallbacks, cb)
		return nil
	}
}
