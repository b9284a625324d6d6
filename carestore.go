package carestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jpalmerr/carestore/appointment"
	"github.com/jpalmerr/carestore/internal/server"
	"github.com/jpalmerr/carestore/profile"
	"github.com/jpalmerr/carestore/training"
)

const defaultFlushInterval = 5 * time.Second

// ErrClosed is returned by operations on a [CareStore] after [CareStore.Close].
var ErrClosed = errors.New("carestore is closed")

// Store names as reported in [Change] and used as snapshot bucket names.
const (
	StoreAppointments = "appointments"
	StoreProfiles     = "profiles"
	StoreTraining     = "training"
)

// Change describes a mutation, delivered to callbacks registered with
// [WithChangeCallback].
type Change struct {
	// Store is the name of the store that changed, e.g. [StoreProfiles].
	Store string

	// At is when the callback was invoked.
	At time.Time
}

// CareStore owns one store of each kind for the life of the process.
//
// The typical lifecycle is:
//
//	cs, err := carestore.New(carestore.WithSnapshotPath("carestore.db"))
//	if err != nil {
//	    slog.Error("failed to create carestore", "error", err)
//	    os.Exit(1)
//	}
//	defer cs.Close()
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	cs.Start(ctx) // blocks until context cancelled
//
// Stores are usable right after New; Start is only needed for background
// flushing and the inspection server.
type CareStore struct {
	appointments *appointment.Store
	profiles     *profile.Store
	training     *training.Store

	port            int
	flushInterval   time.Duration
	logger          *slog.Logger
	changeCallbacks []func(Change)

	mu        sync.Mutex
	persister *persister
	closed    bool
}

// New creates a [CareStore] with the given options.
//
// Defaults:
//   - No inspection server
//   - No persistence
//   - Flush interval: 5 seconds
//
// When [WithSnapshotPath] is given, the snapshot file is opened and every
// store is restored from it before New returns.
func New(opts ...Option) (*CareStore, error) {
	cfg := &csConfig{
		flushInterval: defaultFlushInterval,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	cs := &CareStore{
		appointments:    appointment.NewStore(logger),
		profiles:        profile.NewStore(logger),
		training:        training.NewStore(logger),
		port:            cfg.port,
		flushInterval:   cfg.flushInterval,
		logger:          logger,
		changeCallbacks: cfg.changeCallbacks,
	}

	if cfg.snapshotPath != "" {
		p, err := openPersister(cfg.snapshotPath)
		if err != nil {
			return nil, err
		}
		if err := p.restore(cs); err != nil {
			_ = p.close()
			return nil, err
		}
		cs.persister = p
		logger.Info("snapshot restored",
			"path", cfg.snapshotPath,
			StoreAppointments, cs.appointments.Entities().Len(),
			StoreProfiles, cs.profiles.Entities().Len(),
			StoreTraining, cs.training.Entities().Len(),
		)
	}

	// subscribe after restore so restoring doesn't fire callbacks
	if len(cs.changeCallbacks) > 0 {
		cs.subscribeAll(func(name string) func() {
			return func() { cs.dispatchChange(name) }
		})
	}

	return cs, nil
}

// Appointments returns the appointment store.
func (cs *CareStore) Appointments() *appointment.Store {
	return cs.appointments
}

// Profiles returns the caregiver profile store.
func (cs *CareStore) Profiles() *profile.Store {
	return cs.profiles
}

// Training returns the training progress store.
func (cs *CareStore) Training() *training.Store {
	return cs.training
}

// Port returns the inspection server port, or 0 if the server is disabled.
func (cs *CareStore) Port() int {
	return cs.port
}

// Reset empties every store. Subscriptions are kept.
func (cs *CareStore) Reset() {
	cs.appointments.Entities().Reset()
	cs.profiles.Entities().Reset()
	cs.training.Entities().Reset()
}

// Start runs background work until ctx is cancelled:
//
//   - With a snapshot path, changes are flushed every flush interval and
//     once more on shutdown
//   - With a port, the inspection server is served at http://localhost:<port>
//
// Returns nil on graceful shutdown, or an error if the server fails to start.
func (cs *CareStore) Start(ctx context.Context) error {
	cs.logger.Info("carestore starting",
		"persistence", cs.persisting(),
		"flush_interval", cs.flushInterval.String(),
	)

	if ctx.Err() != nil {
		return nil
	}

	var wg sync.WaitGroup
	var unsubscribe []func()
	if cs.persisting() {
		dirty := make(chan struct{}, 1)
		unsubscribe = cs.subscribeAll(func(string) func() {
			return func() {
				select {
				case dirty <- struct{}{}:
				default:
					// already marked dirty
				}
			}
		})

		wg.Add(1)
		go func() {
			defer wg.Done()
			cs.flushLoop(ctx, dirty)
		}()
	}

	cleanup := func() {
		for _, unsub := range unsubscribe {
			unsub()
		}
		wg.Wait()
		if err := cs.Flush(); err != nil && !errors.Is(err, ErrClosed) {
			cs.logger.Error("final flush failed", "error", err)
		}
	}

	if cs.port > 0 {
		srv := server.NewServer(server.Stores{
			Appointments: cs.appointments,
			Profiles:     cs.profiles,
			Training:     cs.training,
		}, cs.port, cs.logger)
		if err := srv.Start(ctx); err != nil {
			cleanup()
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		cs.logger.Info("inspection server available", "url", fmt.Sprintf("http://localhost:%d", cs.port))
	}

	<-ctx.Done()
	cleanup()
	cs.logger.Info("carestore stopped")
	return nil
}

// Flush writes every store to the snapshot file. It is a no-op without a
// snapshot path and returns [ErrClosed] after [CareStore.Close].
func (cs *CareStore) Flush() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.closed {
		return ErrClosed
	}
	if cs.persister == nil {
		return nil
	}
	return cs.persister.save(cs)
}

// Close flushes pending changes and releases the snapshot file.
// Safe to call multiple times.
func (cs *CareStore) Close() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.closed {
		return nil
	}
	cs.closed = true
	if cs.persister == nil {
		return nil
	}

	saveErr := cs.persister.save(cs)
	closeErr := cs.persister.close()
	cs.persister = nil
	return errors.Join(saveErr, closeErr)
}

func (cs *CareStore) persisting() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.persister != nil
}

// flushLoop writes pending changes on every tick until ctx is done.
func (cs *CareStore) flushLoop(ctx context.Context, dirty <-chan struct{}) {
	ticker := time.NewTicker(cs.flushInterval)
	defer ticker.Stop()

	pending := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-dirty:
			pending = true
		case <-ticker.C:
			if !pending {
				continue
			}
			if err := cs.Flush(); err != nil {
				cs.logger.Warn("snapshot flush failed", "error", err)
				continue
			}
			pending = false
			cs.logger.Debug("snapshot flushed")
		}
	}
}

// subscribeAll subscribes the callback built by mk to every store and returns
// the unsubscribe functions.
func (cs *CareStore) subscribeAll(mk func(name string) func()) []func() {
	return []func(){
		cs.appointments.Subscribe(mk(StoreAppointments)),
		cs.profiles.Subscribe(mk(StoreProfiles)),
		cs.training.Subscribe(mk(StoreTraining)),
	}
}

func (cs *CareStore) dispatchChange(name string) {
	change := Change{Store: name, At: time.Now()}
	for _, cb := range cs.changeCallbacks {
		invokeCallbackSafe(cb, change, cs.logger)
	}
}

// invokeCallbackSafe calls a change callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Change), change Change, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("change callback panicked",
				"store", change.Store,
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
			)
		}
	}()
	cb(change)
}
