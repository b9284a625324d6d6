// Package training tracks caregiver progress through training courses.
//
// Progress is kept per course as a mapping from (module, lesson index) to
// completion. Marking a lesson complete is idempotent.
package training

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/jpalmerr/carestore/internal/store"
)

// ErrInvalidLesson is returned for an empty module id or negative lesson index.
var ErrInvalidLesson = errors.New("invalid lesson reference")

// LessonRef identifies one lesson within a course.
type LessonRef struct {
	ModuleID    string `json:"module_id"`
	LessonIndex int    `json:"lesson_index"`
}

func (r LessonRef) validate() error {
	if r.ModuleID == "" || r.LessonIndex < 0 {
		return fmt.Errorf("%w: module %q lesson %d", ErrInvalidLesson, r.ModuleID, r.LessonIndex)
	}
	return nil
}

// Module describes the shape of a course module: its id and how many lessons
// it has. Lessons are addressed by index, 0 through Lessons-1.
type Module struct {
	ID      string
	Lessons int
}

// Progress is the stored record for one course.
type Progress struct {
	CourseID string `json:"course_id"`

	// Modules maps module id to the lesson indexes completed in it.
	Modules map[string]map[int]bool `json:"modules"`

	// Current is the lesson the caregiver last opened, if any.
	Current *LessonRef `json:"current,omitempty"`
}

// Clone returns a deep copy of p.
func (p Progress) Clone() Progress {
	if p.Modules != nil {
		mods := make(map[string]map[int]bool, len(p.Modules))
		for id, lessons := range p.Modules {
			mods[id] = maps.Clone(lessons)
		}
		p.Modules = mods
	}
	if p.Current != nil {
		c := *p.Current
		p.Current = &c
	}
	return p
}

// Completed reports whether the lesson is marked complete.
func (p Progress) Completed(moduleID string, lessonIndex int) bool {
	return p.Modules[moduleID][lessonIndex]
}

// CompletedCount returns the number of completed lessons across all modules.
func (p Progress) CompletedCount() int {
	n := 0
	for _, lessons := range p.Modules {
		for _, done := range lessons {
			if done {
				n++
			}
		}
	}
	return n
}

func newProgress(courseID string) Progress {
	return Progress{CourseID: courseID, Modules: map[string]map[int]bool{}}
}

// Store holds training progress keyed by course id.
type Store struct {
	s *store.MemoryStore[Progress]
}

// NewStore creates an empty training [Store]. A nil logger uses slog.Default().
func NewStore(logger *slog.Logger) *Store {
	return &Store{
		s: store.NewMemoryStore(store.Config[Progress]{
			Name:     "training",
			Policy:   store.Upsert,
			Defaults: newProgress,
			Logger:   logger,
		}),
	}
}

// Entities exposes the underlying entity store.
func (st *Store) Entities() *store.MemoryStore[Progress] {
	return st.s
}

// Get returns the progress for courseID, or false if none was recorded.
func (st *Store) Get(courseID string) (Progress, bool) {
	return st.s.Get(courseID)
}

// All returns progress for every course ordered by course id.
func (st *Store) All() []Progress {
	return st.s.GetAll()
}

// Subscribe registers fn to run after any progress changes.
func (st *Store) Subscribe(fn func()) func() {
	return st.s.Subscribe(fn)
}

// MarkLessonCompleted records the lesson as complete. Marking a completed
// lesson again leaves progress unchanged.
func (st *Store) MarkLessonCompleted(courseID, moduleID string, lessonIndex int) error {
	ref := LessonRef{ModuleID: moduleID, LessonIndex: lessonIndex}
	if err := ref.validate(); err != nil {
		return fmt.Errorf("course %q: %w", courseID, err)
	}
	return st.s.SetField(courseID, setCompleted(ref))
}

// IsLessonCompleted reports whether the lesson is complete. Unknown courses
// have no completed lessons.
func (st *Store) IsLessonCompleted(courseID, moduleID string, lessonIndex int) bool {
	p, _ := st.s.Get(courseID)
	return p.Completed(moduleID, lessonIndex)
}

// CompletedCount returns the number of completed lessons in the course.
func (st *Store) CompletedCount(courseID string) int {
	p, _ := st.s.Get(courseID)
	return p.CompletedCount()
}

// FirstIncompleteLesson walks modules in order and returns the first lesson
// not yet completed. ok is false when every lesson is done.
func (st *Store) FirstIncompleteLesson(courseID string, modules []Module) (ref LessonRef, ok bool) {
	p, _ := st.s.Get(courseID)
	for _, m := range modules {
		for i := 0; i < m.Lessons; i++ {
			if !p.Completed(m.ID, i) {
				return LessonRef{ModuleID: m.ID, LessonIndex: i}, true
			}
		}
	}
	return LessonRef{}, false
}

// SetCurrentLesson records the lesson the caregiver is working on.
func (st *Store) SetCurrentLesson(courseID, moduleID string, lessonIndex int) error {
	ref := LessonRef{ModuleID: moduleID, LessonIndex: lessonIndex}
	if err := ref.validate(); err != nil {
		return fmt.Errorf("course %q: %w", courseID, err)
	}
	return st.s.SetField(courseID, setCurrent(ref))
}

// CurrentLesson returns the lesson last set with [Store.SetCurrentLesson].
func (st *Store) CurrentLesson(courseID string) (LessonRef, bool) {
	p, _ := st.s.Get(courseID)
	if p.Current == nil {
		return LessonRef{}, false
	}
	return *p.Current, true
}

func setCompleted(ref LessonRef) store.Setter[Progress] {
	return store.Set("modules", func(p *Progress, r LessonRef) {
		if p.Modules == nil {
			p.Modules = map[string]map[int]bool{}
		}
		if p.Modules[r.ModuleID] == nil {
			p.Modules[r.ModuleID] = map[int]bool{}
		}
		p.Modules[r.ModuleID][r.LessonIndex] = true
	}, ref)
}

func setCurrent(ref LessonRef) store.Setter[Progress] {
	return store.Set("current", func(p *Progress, r LessonRef) { p.Current = &r }, ref)
}
