// Package profile tracks the approval status of caregiver profiles.
//
// A caregiver submits a profile for review, and an operator approves or
// rejects it. Unknown users read as [StatusPending] and every write upserts.
package profile

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jpalmerr/carestore/internal/store"
)

// Status is the review state of a caregiver profile.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRejected Status = "rejected"
	StatusApproved Status = "approved"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusRejected || s == StatusApproved
}

var (
	// ErrInvalidStatus is returned for status values outside the known set.
	ErrInvalidStatus = errors.New("invalid profile status")

	// ErrReasonRequired is returned when rejecting without a reason.
	ErrReasonRequired = errors.New("rejection reason is required")
)

// Profile is the stored approval record for one caregiver.
type Profile struct {
	UserID          string `json:"user_id"`
	Status          Status `json:"status"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

// Clone returns a copy of p.
func (p Profile) Clone() Profile { return p }

func newProfile(userID string) Profile {
	return Profile{UserID: userID, Status: StatusPending}
}

// Store holds caregiver profile approval records.
type Store struct {
	s *store.MemoryStore[Profile]
}

// NewStore creates an empty profile [Store]. A nil logger uses slog.Default().
func NewStore(logger *slog.Logger) *Store {
	return &Store{
		s: store.NewMemoryStore(store.Config[Profile]{
			Name:     "profiles",
			Policy:   store.Upsert,
			Defaults: newProfile,
			Logger:   logger,
		}),
	}
}

// Entities exposes the underlying entity store.
func (st *Store) Entities() *store.MemoryStore[Profile] {
	return st.s
}

// Has reports whether userID has ever submitted or been assigned a status.
func (st *Store) Has(userID string) bool {
	return st.s.Has(userID)
}

// Get returns the stored profile, or false if there is none.
func (st *Store) Get(userID string) (Profile, bool) {
	return st.s.Get(userID)
}

// Status returns the profile for userID. Users with no record read as
// pending; use [Store.Has] to tell the two apart.
func (st *Store) Status(userID string) Profile {
	if p, ok := st.s.Get(userID); ok {
		return p
	}
	return newProfile(userID)
}

// All returns every stored profile ordered by user id.
func (st *Store) All() []Profile {
	return st.s.GetAll()
}

// Subscribe registers fn to run after any profile changes.
func (st *Store) Subscribe(fn func()) func() {
	return st.s.Subscribe(fn)
}

// Set replaces the status and rejection reason of userID in one write.
func (st *Store) Set(userID string, status Status, reason string) error {
	if !status.Valid() {
		return fmt.Errorf("profile %q: %w: %q", userID, ErrInvalidStatus, status)
	}
	return st.s.Apply(userID, setStatus(status), setReason(reason))
}

// SubmitForReview puts the profile back into review and clears any earlier
// rejection reason.
func (st *Store) SubmitForReview(userID string) error {
	return st.Set(userID, StatusPending, "")
}

// Approve marks the profile approved.
func (st *Store) Approve(userID string) error {
	return st.Set(userID, StatusApproved, "")
}

// Reject marks the profile rejected with reason.
func (st *Store) Reject(userID, reason string) error {
	if reason == "" {
		return fmt.Errorf("profile %q: %w", userID, ErrReasonRequired)
	}
	return st.Set(userID, StatusRejected, reason)
}

func setStatus(s Status) store.Setter[Profile] {
	return store.Set("status", func(p *Profile, v Status) { p.Status = v }, s)
}

func setReason(r string) store.Setter[Profile] {
	return store.Set("rejection_reason", func(p *Profile, v string) { p.RejectionReason = v }, r)
}
