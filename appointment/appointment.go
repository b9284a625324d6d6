// Package appointment tracks the mutable state of care appointments: their
// lifecycle status, the care seeker's review, and any complaint raised
// against the visit.
//
// Appointments use upsert semantics throughout. Writing to an unknown id
// creates a record with [DefaultStatus] and no review or complaint, then
// applies the write. Status transitions are not policed here; callers decide
// which transitions are legal.
package appointment

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jpalmerr/carestore/internal/store"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusNew        Status = "new"
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusRejected   Status = "rejected"
)

// DefaultStatus is the status of an appointment created implicitly by a write
// to an unknown id. Reviews and complaints are only filed against finished
// visits, so an implicit record starts out completed.
const DefaultStatus = StatusCompleted

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusPending, StatusConfirmed, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ComplaintStatus is the handling state of a complaint.
type ComplaintStatus string

const (
	ComplaintPending      ComplaintStatus = "pending"
	ComplaintReviewing    ComplaintStatus = "reviewing"
	ComplaintNeedMoreInfo ComplaintStatus = "need_more_info"
	ComplaintResolved     ComplaintStatus = "resolved"
	ComplaintRefunded     ComplaintStatus = "refunded"
	ComplaintRejected     ComplaintStatus = "rejected"
)

// DefaultComplaintStatus is assigned to complaints filed without a status.
const DefaultComplaintStatus = ComplaintReviewing

// Valid reports whether s is one of the known complaint statuses.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case ComplaintPending, ComplaintReviewing, ComplaintNeedMoreInfo,
		ComplaintResolved, ComplaintRefunded, ComplaintRejected:
		return true
	}
	return false
}

var (
	// ErrInvalidStatus is returned for status values outside the known set.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrNoComplaint is returned when updating the complaint of an
	// appointment that has none.
	ErrNoComplaint = errors.New("appointment has no complaint")
)

// Review is the care seeker's rating of a completed appointment.
type Review struct {
	Cooperation        int      `json:"cooperation"`
	Communication      int      `json:"communication"`
	Respect            int      `json:"respect"`
	Readiness          int      `json:"readiness"`
	WorkingEnvironment int      `json:"working_environment"`
	FamilySupport      string   `json:"family_support"`
	Issues             []string `json:"issues"`
	Recommendation     string   `json:"recommendation"`
	AdditionalNotes    string   `json:"additional_notes"`
	SubmittedAt        string   `json:"submitted_at"`
}

// Complaint is a problem report filed against an appointment.
type Complaint struct {
	SelectedTypes []string        `json:"selected_types"`
	Description   string          `json:"description"`
	Urgency       string          `json:"urgency"`
	UploadedFiles []string        `json:"uploaded_files"`
	SubmittedAt   string          `json:"submitted_at"`
	Status        ComplaintStatus `json:"status"`
}

// ComplaintFeedback is the care seeker's verdict on how a complaint was handled.
type ComplaintFeedback struct {
	Rating      int    `json:"rating"`
	Comment     string `json:"comment"`
	SubmittedAt string `json:"submitted_at"`
}

// Appointment is the stored record for one appointment.
type Appointment struct {
	ID                   string             `json:"id"`
	Status               Status             `json:"status"`
	HasReviewed          bool               `json:"has_reviewed"`
	Review               *Review            `json:"review"`
	HasComplained        bool               `json:"has_complained"`
	Complaint            *Complaint         `json:"complaint"`
	HasComplaintFeedback bool               `json:"has_complaint_feedback"`
	ComplaintFeedback    *ComplaintFeedback `json:"complaint_feedback"`
}

// Clone returns a deep copy of a.
func (a Appointment) Clone() Appointment {
	if a.Review != nil {
		r := *a.Review
		r.Issues = slices.Clone(r.Issues)
		a.Review = &r
	}
	if a.Complaint != nil {
		c := *a.Complaint
		c.SelectedTypes = slices.Clone(c.SelectedTypes)
		c.UploadedFiles = slices.Clone(c.UploadedFiles)
		a.Complaint = &c
	}
	if a.ComplaintFeedback != nil {
		f := *a.ComplaintFeedback
		a.ComplaintFeedback = &f
	}
	return a
}

// newAppointment is the default record for an implicit create.
func newAppointment(id string) Appointment {
	return Appointment{ID: id, Status: DefaultStatus}
}

// Store holds appointments and notifies subscribers on every change.
type Store struct {
	s *store.MemoryStore[Appointment]
}

// NewStore creates an empty appointment [Store]. A nil logger uses
// slog.Default().
func NewStore(logger *slog.Logger) *Store {
	return &Store{
		s: store.NewMemoryStore(store.Config[Appointment]{
			Name:     "appointments",
			Policy:   store.Upsert,
			Defaults: newAppointment,
			Logger:   logger,
		}),
	}
}

// Entities exposes the underlying entity store for persistence and
// inspection wiring.
func (st *Store) Entities() *store.MemoryStore[Appointment] {
	return st.s
}

// Get returns a copy of the appointment, or false if it is unknown.
func (st *Store) Get(id string) (Appointment, bool) {
	return st.s.Get(id)
}

// All returns copies of every appointment ordered by id.
func (st *Store) All() []Appointment {
	return st.s.GetAll()
}

// Subscribe registers fn to run after any appointment changes. The returned
// function unsubscribes and may be called more than once.
func (st *Store) Subscribe(fn func()) func() {
	return st.s.Subscribe(fn)
}

// UpdateStatus sets the status of appointment id.
func (st *Store) UpdateStatus(id string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("appointment %q: %w: %q", id, ErrInvalidStatus, status)
	}
	return st.s.SetField(id, setStatus(status))
}

// Status returns the status of appointment id, or false if it is unknown.
func (st *Store) Status(id string) (Status, bool) {
	a, ok := st.s.Get(id)
	if !ok {
		return "", false
	}
	return a.Status, true
}

// MarkReviewed flags the appointment as reviewed. review may be nil, in which
// case any earlier review is kept.
func (st *Store) MarkReviewed(id string, review *Review) error {
	setters := []store.Setter[Appointment]{setHasReviewed(true)}
	if review != nil {
		setters = append(setters, setReview(review))
	}
	return st.s.Apply(id, setters...)
}

// Review returns the review of appointment id, or nil if there is none.
func (st *Store) Review(id string) *Review {
	a, _ := st.s.Get(id)
	return a.Review
}

// HasReviewed reports whether appointment id has been reviewed.
func (st *Store) HasReviewed(id string) bool {
	a, _ := st.s.Get(id)
	return a.HasReviewed
}

// MarkComplained flags the appointment as complained about. If complaint is
// non-nil it is stored, with its status defaulted to [DefaultComplaintStatus].
// A nil complaint keeps any earlier one, or stores an empty complaint with
// the default status if there is none.
func (st *Store) MarkComplained(id string, complaint *Complaint) error {
	if complaint == nil {
		return st.s.Apply(id,
			setHasComplained(true),
			ensureComplaint(&Complaint{Status: DefaultComplaintStatus}),
		)
	}

	c := *complaint
	if c.Status == "" {
		c.Status = DefaultComplaintStatus
	}
	if !c.Status.Valid() {
		return fmt.Errorf("appointment %q: complaint: %w: %q", id, ErrInvalidStatus, c.Status)
	}
	return st.s.Apply(id, setHasComplained(true), setComplaint(&c))
}

// UpdateComplaintStatus sets the status of the appointment's complaint.
//
// Returns an error wrapping [ErrNoComplaint] if no complaint has been filed.
func (st *Store) UpdateComplaintStatus(id string, status ComplaintStatus) error {
	if !status.Valid() {
		return fmt.Errorf("appointment %q: complaint: %w: %q", id, ErrInvalidStatus, status)
	}
	a, _ := st.s.Get(id)
	if a.Complaint == nil {
		return fmt.Errorf("appointment %q: %w", id, ErrNoComplaint)
	}
	return st.s.SetField(id, setComplaintStatus(status))
}

// ComplaintStatus returns the status of the appointment's complaint, or false
// if there is none.
func (st *Store) ComplaintStatus(id string) (ComplaintStatus, bool) {
	a, _ := st.s.Get(id)
	if a.Complaint == nil {
		return "", false
	}
	return a.Complaint.Status, true
}

// Complaint returns the complaint filed against appointment id, or nil.
func (st *Store) Complaint(id string) *Complaint {
	a, _ := st.s.Get(id)
	return a.Complaint
}

// HasComplained reports whether a complaint was filed for appointment id.
func (st *Store) HasComplained(id string) bool {
	a, _ := st.s.Get(id)
	return a.HasComplained
}

// MarkComplaintFeedbackSubmitted records that the care seeker gave feedback
// on the complaint outcome. feedback may be nil.
func (st *Store) MarkComplaintFeedbackSubmitted(id string, feedback *ComplaintFeedback) error {
	setters := []store.Setter[Appointment]{setHasComplaintFeedback(true)}
	if feedback != nil {
		setters = append(setters, setComplaintFeedback(feedback))
	}
	return st.s.Apply(id, setters...)
}

// ComplaintFeedback returns the complaint feedback for appointment id, or nil.
func (st *Store) ComplaintFeedback(id string) *ComplaintFeedback {
	a, _ := st.s.Get(id)
	return a.ComplaintFeedback
}

// HasComplaintFeedback reports whether complaint feedback was submitted.
func (st *Store) HasComplaintFeedback(id string) bool {
	a, _ := st.s.Get(id)
	return a.HasComplaintFeedback
}

func setStatus(s Status) store.Setter[Appointment] {
	return store.Set("status", func(a *Appointment, v Status) { a.Status = v }, s)
}

func setHasReviewed(b bool) store.Setter[Appointment] {
	return store.Set("has_reviewed", func(a *Appointment, v bool) { a.HasReviewed = v }, b)
}

func setReview(r *Review) store.Setter[Appointment] {
	return store.Set("review", func(a *Appointment, v *Review) { a.Review = v }, r)
}

func setHasComplained(b bool) store.Setter[Appointment] {
	return store.Set("has_complained", func(a *Appointment, v bool) { a.HasComplained = v }, b)
}

func setComplaint(c *Complaint) store.Setter[Appointment] {
	return store.Set("complaint", func(a *Appointment, v *Complaint) { a.Complaint = v }, c)
}

func ensureComplaint(c *Complaint) store.Setter[Appointment] {
	return store.Set("complaint", func(a *Appointment, v *Complaint) {
		if a.Complaint == nil {
			a.Complaint = v
		}
	}, c)
}

func setComplaintStatus(s ComplaintStatus) store.Setter[Appointment] {
	return store.Set("complaint.status", func(a *Appointment, v ComplaintStatus) {
		if a.Complaint != nil {
			a.Complaint.Status = v
		}
	}, s)
}

func setHasComplaintFeedback(b bool) store.Setter[Appointment] {
	return store.Set("has_complaint_feedback", func(a *Appointment, v bool) { a.HasComplaintFeedback = v }, b)
}

func setComplaintFeedback(f *ComplaintFeedback) store.Setter[Appointment] {
	return store.Set("complaint_feedback", func(a *Appointment, v *ComplaintFeedback) { a.ComplaintFeedback = v }, f)
}
