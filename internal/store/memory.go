package store

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Config configures a [MemoryStore].
type Config[T any] struct {
	// Name identifies the store in errors and logs (e.g., "appointments").
	Name string

	// Policy decides what happens when a mutation targets a missing id.
	// The zero value is [Upsert].
	Policy Policy

	// Defaults builds the record created by an [Upsert] on a missing id.
	// If nil, the zero value of T is used.
	Defaults func(id string) T

	// Logger receives subscriber panic reports. Defaults to slog.Default().
	Logger *slog.Logger
}

type subscription struct {
	id   uint64
	fn   func()
	live *atomic.Bool
}

// MemoryStore is an in-memory implementation of [Store].
//
// Records are keyed by id and stored as deep copies, so neither the values
// passed into setters nor the values returned from reads alias the store's
// internal state. Every successful mutation triggers exactly one synchronous
// notification round, delivered in subscription order after the write is
// visible to readers.
type MemoryStore[T Record[T]] struct {
	name     string
	policy   Policy
	defaults func(id string) T
	logger   *slog.Logger

	mu      sync.RWMutex
	records map[string]T

	subMu  sync.RWMutex
	subs   []subscription
	nextID uint64
}

// NewMemoryStore creates an empty [MemoryStore].
//
// Each call returns an independent store; tests should build a fresh one per
// case rather than sharing a process-wide instance.
func NewMemoryStore[T Record[T]](cfg Config[T]) *MemoryStore[T] {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.Name
	if name == "" {
		name = "store"
	}
	return &MemoryStore[T]{
		name:     name,
		policy:   cfg.Policy,
		defaults: cfg.Defaults,
		logger:   logger,
		records:  make(map[string]T),
	}
}

// Name returns the store name given in [Config].
func (m *MemoryStore[T]) Name() string {
	return m.name
}

// Policy returns the missing-id policy the store was built with.
func (m *MemoryStore[T]) Policy() Policy {
	return m.policy
}

// Get returns a copy of the record stored under id.
//
// A missing id returns the zero value and false; Get never fails otherwise.
func (m *MemoryStore[T]) Get(id string) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		var zero T
		return zero, false
	}
	return rec.Clone(), true
}

// Has reports whether a record exists for id.
func (m *MemoryStore[T]) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.records[id]
	return ok
}

// Len returns the number of records.
func (m *MemoryStore[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.records)
}

// GetAll returns a snapshot of all records, ordered by id.
//
// The returned slice and its elements are copies; modifications do not
// affect the store.
func (m *MemoryStore[T]) GetAll() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.sortedIDs()
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.records[id].Clone())
	}
	return out
}

// SetField applies a single field change to the record for id and notifies
// all subscribers.
//
// Under [MustExist] a missing id returns an error wrapping [ErrNotFound] and
// no subscriber is notified.
func (m *MemoryStore[T]) SetField(id string, s Setter[T]) error {
	return m.Apply(id, s)
}

// Apply applies setters in order as a single mutation.
//
// Subscribers are notified once, after every setter has been applied. If any
// setter is nil the record is left untouched and [ErrInvalidField] is
// returned. An empty id returns [ErrInvalidID]. Calling Apply with no setters
// is a no-op.
func (m *MemoryStore[T]) Apply(id string, setters ...Setter[T]) error {
	if len(setters) == 0 {
		return nil
	}
	if id == "" {
		return fmt.Errorf("%s: set %s: %w", m.name, setters[0].Field(), ErrInvalidID)
	}
	for i, s := range setters {
		if s == nil {
			return fmt.Errorf("%s: setter %d for %q: %w", m.name, i, id, ErrInvalidField)
		}
	}

	if err := m.write(id, setters); err != nil {
		return err
	}
	m.notify()
	return nil
}

// write applies setters to the record for id under mu. A panicking setter
// leaves the stored record untouched.
func (m *MemoryStore[T]) write(id string, setters []Setter[T]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		if m.policy == MustExist {
			return fmt.Errorf("%s: set %s on %q: %w", m.name, setters[0].Field(), id, ErrNotFound)
		}
		rec = m.newRecord(id)
	} else {
		rec = rec.Clone()
	}
	for _, s := range setters {
		s.Apply(&rec)
	}
	// clone on the way in so values captured by setters don't alias the store
	m.records[id] = rec.Clone()
	return nil
}

// Subscribe registers fn to be called after every mutation of any record.
//
// The returned function removes the subscription. It is safe to call more
// than once. A nil fn is ignored and gets a no-op unsubscribe.
func (m *MemoryStore[T]) Subscribe(fn func()) func() {
	if fn == nil {
		return func() {}
	}

	m.subMu.Lock()
	m.nextID++
	id := m.nextID
	live := new(atomic.Bool)
	live.Store(true)
	m.subs = append(m.subs, subscription{id: id, fn: fn, live: live})
	m.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { m.unsubscribe(id) })
	}
}

// Subscribers returns the number of live subscriptions.
func (m *MemoryStore[T]) Subscribers() int {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	return len(m.subs)
}

// Reset removes all records. Subscribers are notified if anything was removed.
// Subscriptions are kept.
func (m *MemoryStore[T]) Reset() {
	m.mu.Lock()
	n := len(m.records)
	m.records = make(map[string]T)
	m.mu.Unlock()

	if n > 0 {
		m.notify()
	}
}

// Snapshot returns a copy of every record keyed by id.
func (m *MemoryStore[T]) Snapshot() map[string]T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]T, len(m.records))
	for id, rec := range m.records {
		out[id] = rec.Clone()
	}
	return out
}

// Restore replaces the store contents with records and notifies subscribers
// once.
func (m *MemoryStore[T]) Restore(records map[string]T) {
	next := make(map[string]T, len(records))
	for id, rec := range records {
		next[id] = rec.Clone()
	}

	m.mu.Lock()
	m.records = next
	m.mu.Unlock()

	m.notify()
}

func (m *MemoryStore[T]) newRecord(id string) T {
	if m.defaults != nil {
		return m.defaults(id)
	}
	var zero T
	return zero
}

// sortedIDs must be called with mu held.
func (m *MemoryStore[T]) sortedIDs() []string {
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *MemoryStore[T]) unsubscribe(id uint64) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for i, s := range m.subs {
		if s.id == id {
			s.live.Store(false)
			m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
			return
		}
	}
}

// notify calls every subscriber registered at the time of the call, skipping
// any that unsubscribe while the round is in progress.
// Must be called without mu held so subscribers can read the store.
func (m *MemoryStore[T]) notify() {
	m.subMu.RLock()
	subs := make([]subscription, len(m.subs))
	copy(subs, m.subs)
	m.subMu.RUnlock()

	for _, s := range subs {
		if !s.live.Load() {
			continue
		}
		m.invokeSafe(s)
	}
}

// invokeSafe calls a subscriber with panic recovery.
// The panic is logged with a correlation id and does not propagate.
func (m *MemoryStore[T]) invokeSafe(s subscription) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("store subscriber panicked",
				"store", m.name,
				"subscription", s.id,
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	s.fn()
}
