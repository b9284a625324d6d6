package appointment

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStatus_Valid(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusNew, true},
		{StatusPending, true},
		{StatusConfirmed, true},
		{StatusInProgress, true},
		{StatusCompleted, true},
		{StatusCancelled, true},
		{StatusRejected, true},
		{"", false},
		{"done", false},
		{"In-Progress", false},
	}
	for _, tt := range tests {
		if got := tt.status.Valid(); got != tt.want {
			t.Errorf("Status(%q).Valid() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestStore_UpdateStatus(t *testing.T) {
	st := newTestStore(t)

	if err := st.UpdateStatus("1", StatusPending); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if err := st.UpdateStatus("1", StatusConfirmed); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	got, ok := st.Status("1")
	if !ok {
		t.Fatal("Status(1) ok = false")
	}
	if got != StatusConfirmed {
		t.Errorf("Status(1) = %q, want %q", got, StatusConfirmed)
	}
}

func TestStore_UpdateStatusUnknownIDUpserts(t *testing.T) {
	st := newTestStore(t)

	if err := st.UpdateStatus("42", StatusInProgress); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	got, ok := st.Get("42")
	if !ok {
		t.Fatal("Get(42) ok = false, want implicit create")
	}
	want := Appointment{ID: "42", Status: StatusInProgress}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Get(42) mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_UpdateStatusInvalid(t *testing.T) {
	st := newTestStore(t)

	var n int
	st.Subscribe(func() { n++ })

	err := st.UpdateStatus("1", "teleported")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("UpdateStatus() error = %v, want ErrInvalidStatus", err)
	}
	if _, ok := st.Get("1"); ok {
		t.Error("invalid status created a record")
	}
	if n != 0 {
		t.Errorf("notifications = %d, want 0", n)
	}
}

func TestStore_StatusMissing(t *testing.T) {
	st := newTestStore(t)

	if s, ok := st.Status("nope"); ok || s != "" {
		t.Errorf("Status(nope) = %q, %v; want \"\", false", s, ok)
	}
	if st.HasReviewed("nope") || st.HasComplained("nope") || st.HasComplaintFeedback("nope") {
		t.Error("flags on missing appointment should all be false")
	}
	if st.Review("nope") != nil || st.Complaint("nope") != nil || st.ComplaintFeedback("nope") != nil {
		t.Error("payloads on missing appointment should all be nil")
	}
}

func TestStore_MarkReviewed(t *testing.T) {
	st := newTestStore(t)
	_ = st.UpdateStatus("1", StatusInProgress)

	review := &Review{
		Cooperation:   5,
		Communication: 4,
		Issues:        []string{"late"},
		SubmittedAt:   "2024-05-01T10:00:00Z",
	}

	var n int
	st.Subscribe(func() { n++ })

	if err := st.MarkReviewed("1", review); err != nil {
		t.Fatalf("MarkReviewed() error = %v", err)
	}
	if n != 1 {
		t.Errorf("notifications = %d, want 1", n)
	}

	// caller mutation after the write must not leak into the store
	review.Issues[0] = "mutated"

	if !st.HasReviewed("1") {
		t.Error("HasReviewed(1) = false, want true")
	}
	got := st.Review("1")
	if got == nil {
		t.Fatal("Review(1) = nil")
	}
	if diff := cmp.Diff([]string{"late"}, got.Issues); diff != "" {
		t.Errorf("Review.Issues mismatch (-want +got):\n%s", diff)
	}

	// status untouched
	if s, _ := st.Status("1"); s != StatusInProgress {
		t.Errorf("Status(1) = %q, want %q", s, StatusInProgress)
	}
}

func TestStore_MarkReviewedWithoutPayloadKeepsReview(t *testing.T) {
	st := newTestStore(t)
	_ = st.MarkReviewed("1", &Review{Respect: 3})
	_ = st.MarkReviewed("1", nil)

	got := st.Review("1")
	if got == nil || got.Respect != 3 {
		t.Errorf("Review(1) = %+v, want earlier review kept", got)
	}
}

func TestStore_MarkReviewedUnknownID(t *testing.T) {
	st := newTestStore(t)

	if err := st.MarkReviewed("9", nil); err != nil {
		t.Fatalf("MarkReviewed() error = %v", err)
	}

	got, ok := st.Get("9")
	if !ok {
		t.Fatal("Get(9) ok = false")
	}
	want := Appointment{ID: "9", Status: DefaultStatus, HasReviewed: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Get(9) mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_MarkComplainedDefaultsStatus(t *testing.T) {
	st := newTestStore(t)

	in := &Complaint{SelectedTypes: []string{"quality"}, Urgency: "high"}
	if err := st.MarkComplained("4", in); err != nil {
		t.Fatalf("MarkComplained() error = %v", err)
	}

	if in.Status != "" {
		t.Errorf("caller's complaint was modified: Status = %q", in.Status)
	}
	if !st.HasComplained("4") {
		t.Error("HasComplained(4) = false, want true")
	}
	cs, ok := st.ComplaintStatus("4")
	if !ok || cs != ComplaintReviewing {
		t.Errorf("ComplaintStatus(4) = %q, %v; want %q, true", cs, ok, ComplaintReviewing)
	}
}

func TestStore_MarkComplainedKeepsExplicitStatus(t *testing.T) {
	st := newTestStore(t)

	_ = st.MarkComplained("4", &Complaint{Status: ComplaintPending})

	if cs, _ := st.ComplaintStatus("4"); cs != ComplaintPending {
		t.Errorf("ComplaintStatus(4) = %q, want %q", cs, ComplaintPending)
	}
}

func TestStore_MarkComplainedInvalidStatus(t *testing.T) {
	st := newTestStore(t)

	err := st.MarkComplained("4", &Complaint{Status: "lost"})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("MarkComplained() error = %v, want ErrInvalidStatus", err)
	}
	if st.HasComplained("4") {
		t.Error("invalid complaint was stored")
	}
}

func TestStore_MarkComplainedNoPayload(t *testing.T) {
	st := newTestStore(t)

	_ = st.MarkComplained("4", nil)

	if !st.HasComplained("4") {
		t.Error("HasComplained(4) = false, want true")
	}
	if got, ok := st.ComplaintStatus("4"); !ok || got != DefaultComplaintStatus {
		t.Errorf("ComplaintStatus(4) = %q, %v, want %q, true", got, ok, DefaultComplaintStatus)
	}

	if err := st.UpdateComplaintStatus("4", ComplaintResolved); err != nil {
		t.Fatalf("UpdateComplaintStatus() error = %v", err)
	}
	if got, _ := st.ComplaintStatus("4"); got != ComplaintResolved {
		t.Errorf("ComplaintStatus(4) = %q, want %q", got, ComplaintResolved)
	}
}

func TestStore_MarkComplainedNoPayloadKeepsComplaint(t *testing.T) {
	st := newTestStore(t)
	_ = st.MarkComplained("5", &Complaint{Description: "late", Status: ComplaintNeedMoreInfo})

	if err := st.MarkComplained("5", nil); err != nil {
		t.Fatalf("MarkComplained() error = %v", err)
	}

	c := st.Complaint("5")
	if c == nil || c.Description != "late" || c.Status != ComplaintNeedMoreInfo {
		t.Errorf("Complaint(5) = %+v, want earlier complaint kept", c)
	}
}

func TestStore_UpdateComplaintStatus(t *testing.T) {
	st := newTestStore(t)
	_ = st.MarkComplained("4", &Complaint{Description: "bad"})

	var n int
	st.Subscribe(func() { n++ })

	if err := st.UpdateComplaintStatus("4", ComplaintResolved); err != nil {
		t.Fatalf("UpdateComplaintStatus() error = %v", err)
	}
	if n != 1 {
		t.Errorf("notifications = %d, want 1", n)
	}

	got := st.Complaint("4")
	if got == nil {
		t.Fatal("Complaint(4) = nil")
	}
	if got.Status != ComplaintResolved || got.Description != "bad" {
		t.Errorf("Complaint(4) = %+v, want resolved with description kept", got)
	}
}

func TestStore_UpdateComplaintStatusWithoutComplaint(t *testing.T) {
	st := newTestStore(t)
	_ = st.UpdateStatus("1", StatusCompleted)

	var n int
	st.Subscribe(func() { n++ })

	err := st.UpdateComplaintStatus("1", ComplaintResolved)
	if !errors.Is(err, ErrNoComplaint) {
		t.Fatalf("UpdateComplaintStatus() error = %v, want ErrNoComplaint", err)
	}
	if n != 0 {
		t.Errorf("notifications = %d, want 0", n)
	}

	err = st.UpdateComplaintStatus("1", "nonsense")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("UpdateComplaintStatus() error = %v, want ErrInvalidStatus", err)
	}
}

func TestStore_ComplaintFeedback(t *testing.T) {
	st := newTestStore(t)

	if err := st.MarkComplaintFeedbackSubmitted("4", &ComplaintFeedback{Rating: 4, Comment: "ok"}); err != nil {
		t.Fatalf("MarkComplaintFeedbackSubmitted() error = %v", err)
	}

	if !st.HasComplaintFeedback("4") {
		t.Error("HasComplaintFeedback(4) = false, want true")
	}
	want := &ComplaintFeedback{Rating: 4, Comment: "ok"}
	if diff := cmp.Diff(want, st.ComplaintFeedback("4")); diff != "" {
		t.Errorf("ComplaintFeedback(4) mismatch (-want +got):\n%s", diff)
	}

	a, _ := st.Get("4")
	if a.Status != DefaultStatus || a.HasReviewed || a.HasComplained {
		t.Errorf("implicit record = %+v, want default shape", a)
	}
}

func TestAppointment_Clone(t *testing.T) {
	orig := Appointment{
		ID:                "1",
		Review:            &Review{Issues: []string{"a"}},
		Complaint:         &Complaint{SelectedTypes: []string{"b"}, UploadedFiles: []string{"c"}},
		ComplaintFeedback: &ComplaintFeedback{Rating: 1},
	}

	cp := orig.Clone()
	cp.Review.Issues[0] = "x"
	cp.Complaint.SelectedTypes[0] = "x"
	cp.Complaint.UploadedFiles[0] = "x"
	cp.ComplaintFeedback.Rating = 5

	if orig.Review.Issues[0] != "a" || orig.Complaint.SelectedTypes[0] != "b" ||
		orig.Complaint.UploadedFiles[0] != "c" || orig.ComplaintFeedback.Rating != 1 {
		t.Errorf("Clone() shares state with original: %+v", orig)
	}
}

func TestStore_All(t *testing.T) {
	st := newTestStore(t)
	_ = st.UpdateStatus("2", StatusPending)
	_ = st.UpdateStatus("1", StatusNew)

	all := st.All()
	if len(all) != 2 {
		t.Fatalf("All() = %d items, want 2", len(all))
	}
	if all[0].ID != "1" || all[1].ID != "2" {
		t.Errorf("All() ids = %q, %q; want 1, 2", all[0].ID, all[1].ID)
	}
}
