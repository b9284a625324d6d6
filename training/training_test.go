package training

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestStore() *Store {
	return NewStore(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var testCourse = []Module{
	{ID: "m1", Lessons: 2},
	{ID: "m2", Lessons: 1},
}

func TestStore_MarkLessonCompletedIdempotent(t *testing.T) {
	st := newTestStore()

	var n int
	st.Subscribe(func() { n++ })

	for i := 0; i < 2; i++ {
		if err := st.MarkLessonCompleted("c1", "m1", 0); err != nil {
			t.Fatalf("MarkLessonCompleted() error = %v", err)
		}
	}

	if got := st.CompletedCount("c1"); got != 1 {
		t.Errorf("CompletedCount(c1) = %d, want 1", got)
	}
	if !st.IsLessonCompleted("c1", "m1", 0) {
		t.Error("IsLessonCompleted(c1, m1, 0) = false, want true")
	}
	// every write notifies, even if nothing changed
	if n != 2 {
		t.Errorf("notifications = %d, want 2", n)
	}

	ref, ok := st.FirstIncompleteLesson("c1", testCourse)
	if !ok {
		t.Fatal("FirstIncompleteLesson() ok = false")
	}
	if diff := cmp.Diff(LessonRef{ModuleID: "m1", LessonIndex: 1}, ref); diff != "" {
		t.Errorf("FirstIncompleteLesson() mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_FirstIncompleteLesson(t *testing.T) {
	tests := []struct {
		name     string
		complete []LessonRef
		want     LessonRef
		wantOK   bool
	}{
		{
			name:   "nothing done",
			want:   LessonRef{ModuleID: "m1", LessonIndex: 0},
			wantOK: true,
		},
		{
			name:     "gap in first module",
			complete: []LessonRef{{"m1", 1}},
			want:     LessonRef{ModuleID: "m1", LessonIndex: 0},
			wantOK:   true,
		},
		{
			name:     "first module done",
			complete: []LessonRef{{"m1", 0}, {"m1", 1}},
			want:     LessonRef{ModuleID: "m2", LessonIndex: 0},
			wantOK:   true,
		},
		{
			name:     "all done",
			complete: []LessonRef{{"m1", 0}, {"m1", 1}, {"m2", 0}},
			wantOK:   false,
		},
		{
			name:     "other modules ignored",
			complete: []LessonRef{{"m1", 0}, {"m1", 1}, {"m9", 0}},
			want:     LessonRef{ModuleID: "m2", LessonIndex: 0},
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newTestStore()
			for _, ref := range tt.complete {
				if err := st.MarkLessonCompleted("c1", ref.ModuleID, ref.LessonIndex); err != nil {
					t.Fatalf("MarkLessonCompleted() error = %v", err)
				}
			}

			got, ok := st.FirstIncompleteLesson("c1", testCourse)
			if ok != tt.wantOK {
				t.Fatalf("FirstIncompleteLesson() ok = %v, want %v", ok, tt.wantOK)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FirstIncompleteLesson() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_CoursesAreIndependent(t *testing.T) {
	st := newTestStore()
	_ = st.MarkLessonCompleted("c1", "m1", 0)

	if st.IsLessonCompleted("c2", "m1", 0) {
		t.Error("completion leaked across courses")
	}
	if _, ok := st.Get("c2"); ok {
		t.Error("read created a record for c2")
	}
}

func TestStore_InvalidLesson(t *testing.T) {
	st := newTestStore()

	tests := []struct {
		name   string
		module string
		index  int
	}{
		{"empty module", "", 0},
		{"negative index", "m1", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := st.MarkLessonCompleted("c1", tt.module, tt.index); !errors.Is(err, ErrInvalidLesson) {
				t.Errorf("MarkLessonCompleted() error = %v, want ErrInvalidLesson", err)
			}
			if err := st.SetCurrentLesson("c1", tt.module, tt.index); !errors.Is(err, ErrInvalidLesson) {
				t.Errorf("SetCurrentLesson() error = %v, want ErrInvalidLesson", err)
			}
		})
	}

	if _, ok := st.Get("c1"); ok {
		t.Error("invalid lesson created a record")
	}
}

func TestStore_CurrentLesson(t *testing.T) {
	st := newTestStore()

	if _, ok := st.CurrentLesson("c1"); ok {
		t.Error("CurrentLesson() ok = true on empty store")
	}

	_ = st.SetCurrentLesson("c1", "m2", 0)
	_ = st.SetCurrentLesson("c1", "m1", 1)

	got, ok := st.CurrentLesson("c1")
	if !ok {
		t.Fatal("CurrentLesson() ok = false")
	}
	if diff := cmp.Diff(LessonRef{ModuleID: "m1", LessonIndex: 1}, got); diff != "" {
		t.Errorf("CurrentLesson() mismatch (-want +got):\n%s", diff)
	}

	// setting the current lesson doesn't complete it
	if st.IsLessonCompleted("c1", "m1", 1) {
		t.Error("SetCurrentLesson() marked the lesson complete")
	}
}

func TestProgress_CloneIsDeep(t *testing.T) {
	p := Progress{
		CourseID: "c1",
		Modules:  map[string]map[int]bool{"m1": {0: true}},
		Current:  &LessonRef{ModuleID: "m1", LessonIndex: 0},
	}

	cp := p.Clone()
	cp.Modules["m1"][1] = true
	cp.Modules["m2"] = map[int]bool{0: true}
	cp.Current.LessonIndex = 5

	if p.CompletedCount() != 1 || len(p.Modules) != 1 || p.Current.LessonIndex != 0 {
		t.Errorf("Clone() shares state with original: %+v", p)
	}
}

func TestProgress_JSON(t *testing.T) {
	st := newTestStore()
	_ = st.MarkLessonCompleted("c1", "m1", 0)
	_ = st.MarkLessonCompleted("c1", "m1", 3)

	p, _ := st.Get("c1")
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var back Progress
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if !back.Completed("m1", 3) || back.CompletedCount() != 2 {
		t.Errorf("decoded progress = %+v from %s", back, data)
	}
}
