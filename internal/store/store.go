package store

import (
	"errors"
)

var (
	// ErrNotFound is returned by mutations on a missing id when the store was
	// built with [MustExist].
	ErrNotFound = errors.New("record not found")

	// ErrInvalidField is returned when a mutation is given a nil [Setter].
	ErrInvalidField = errors.New("invalid field setter")

	// ErrInvalidID is returned when a mutation targets the empty id.
	ErrInvalidID = errors.New("id cannot be empty")
)

// Record is the constraint for values held by a [MemoryStore].
//
// Clone must return a deep copy: the store hands out clones from Get and
// GetAll, and callers are free to modify what they receive.
type Record[T any] interface {
	Clone() T
}

// Policy decides what a mutation does when the target id has no record.
type Policy int

const (
	// Upsert creates a default record (see [WithDefaults]) and applies the
	// mutation to it.
	Upsert Policy = iota

	// MustExist rejects the mutation with [ErrNotFound].
	MustExist
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case Upsert:
		return "upsert"
	case MustExist:
		return "must-exist"
	default:
		return "unknown"
	}
}

// Setter is a single named field change.
type Setter[T any] interface {
	// Field is the name of the field being set, used in errors and logs.
	Field() string

	// Apply writes the value into rec.
	Apply(rec *T)
}

type fieldSetter[T, V any] struct {
	name   string
	assign func(*T, V)
	value  V
}

func (f fieldSetter[T, V]) Field() string { return f.name }

func (f fieldSetter[T, V]) Apply(rec *T) { f.assign(rec, f.value) }

// Set builds a [Setter] that assigns value to the field called name.
//
// Example:
//
//	func Status(s string) store.Setter[Appointment] {
//	    return store.Set("status", func(a *Appointment, v string) { a.Status = v }, s)
//	}
func Set[T, V any](name string, assign func(*T, V), value V) Setter[T] {
	return fieldSetter[T, V]{name: name, assign: assign, value: value}
}

// Store defines the operations shared by observable entity stores.
//
// Implementations must be safe for concurrent access.
type Store[T any] interface {
	// Get returns a copy of the record for id. ok is false if there is none.
	Get(id string) (rec T, ok bool)

	// Has reports whether a record exists for id.
	Has(id string) bool

	// GetAll returns copies of all records ordered by id.
	GetAll() []T

	// SetField applies one field change and notifies subscribers.
	SetField(id string, s Setter[T]) error

	// Apply applies several field changes as one mutation with one
	// notification round.
	Apply(id string, setters ...Setter[T]) error

	// Subscribe registers fn to run after every mutation. The returned
	// function unsubscribes; calling it more than once is a no-op.
	Subscribe(fn func()) (unsubscribe func())
}
