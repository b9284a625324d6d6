// Package store provides the observable entity store used by every carestore
// domain package.
//
// A store holds records keyed by string id, applies field-level mutations,
// and notifies subscribers synchronously after every mutation. The same
// generic implementation backs appointments, caregiver profiles and training
// progress.
//
// The main components are:
//
//   - [MemoryStore]: In-memory implementation with pub/sub
//   - [Record]: Constraint for stored types (they must deep-copy themselves)
//   - [Setter]: A named field change, built with [Set]
//   - [Policy]: What SetField does when the id is missing
//
// Stores are safe for concurrent use. Subscribers run after the write lock is
// released, so a subscriber may read from (or write to) the store it is
// subscribed to. A subscriber that panics is recovered and logged; the rest
// of the fan-out still runs.
package store
