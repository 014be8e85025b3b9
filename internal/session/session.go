package session

import (
	"errors"
	"sync"
	"time"

	"github.com/dgallion1/formlens/internal/form"
	"github.com/dgallion1/formlens/internal/geometry"
	"github.com/dgallion1/formlens/internal/raster"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrBusy         = errors.New("a document is already being processed")
	ErrSubmitting   = errors.New("submission in progress")
	ErrUnknownField = errors.New("unknown field")
	ErrNoPage       = errors.New("page not found")
)

// Document is everything produced by one successful extraction. Fields
// and Layout always come from the same extraction response.
type Document struct {
	Pages       []raster.Page
	Fields      []form.Field
	Layout      *geometry.Layout
	FormTitle   string
	Description string
	Cached      bool
}

// Session holds the document-scoped state of one user.
type Session struct {
	mu sync.Mutex

	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	filename    string
	pages       []raster.Page
	form        *form.State
	layout      *geometry.Layout
	selection   form.Selection
	formTitle   string
	description string
	cached      bool
	generation  int

	loading    bool
	submitting bool
	submitted  bool
	lastError  string

	noticeTimer *time.Timer
}

// New returns an empty session.
func New(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		form:      form.NewState(nil),
		layout:    geometry.NewLayout(),
	}
}

func (s *Session) touchLocked() {
	s.UpdatedAt = time.Now()
}

// BeginLoad marks an upload as in flight. A second upload while one is
// loading, or while a submit is pending, is rejected.
func (s *Session) BeginLoad(filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return ErrBusy
	}
	if s.submitting {
		return ErrSubmitting
	}
	s.loading = true
	s.filename = filename
	s.lastError = ""
	s.touchLocked()
	return nil
}

// Loading reports whether an upload is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Commit replaces pages, fields, layout and selection in one step.
func (s *Session) Commit(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = doc.Pages
	s.form.Replace(doc.Fields)
	s.layout = doc.Layout
	if s.layout == nil {
		s.layout = geometry.NewLayout()
	}
	s.selection = form.None()
	s.formTitle = doc.FormTitle
	s.description = doc.Description
	s.cached = doc.Cached
	s.generation++
	s.loading = false
	s.lastError = ""
	s.touchLocked()
}

// Fail ends a load without touching the previous document.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastError = err.Error()
	}
	s.touchLocked()
}

// Focus selects a field from its form control.
func (s *Session) Focus(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.form.Lookup(name); !ok {
		return ErrUnknownField
	}
	s.selection = form.Selected(name)
	s.touchLocked()
	return nil
}

// Blur clears the selection.
func (s *Session) Blur() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = form.None()
	s.touchLocked()
}

// Click hit-tests a point in render pixels on page. A hit selects the
// field; a miss clears the selection.
func (s *Session) Click(page int, x, y float64) form.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name, ok := s.layout.HitTest(page, x, y); ok {
		s.selection = form.Selected(name)
	} else {
		s.selection = form.None()
	}
	s.touchLocked()
	return s.selection
}

// Selection returns the current selection.
func (s *Session) Selection() form.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// SetField stores value verbatim. It reports false for unknown names.
func (s *Session) SetField(name, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.form.SetFieldValue(name, value)
	if ok {
		s.touchLocked()
	}
	return ok
}

// EditField stores a value coming from the field's control.
func (s *Session) EditField(name, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.form.EditFromControl(name, value)
	if ok {
		s.touchLocked()
	}
	return ok
}

// Page returns one rendered page.
func (s *Session) Page(i int) (raster.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.pages) {
		return raster.Page{}, false
	}
	return s.pages[i], true
}

// PageEntries returns the positioned fields of a page and the current
// selection, read under one lock.
func (s *Session) PageEntries(page int) ([]geometry.Entry, form.Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout.OnPage(page), s.selection
}

// Fields returns the current field list with positions.
func (s *Session) Fields() ([]form.Field, *geometry.Layout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.Fields(), s.layout
}

// Submit starts the simulated submission. After delay the document is
// discarded and a success notice is raised for notice.
func (s *Session) Submit(delay, notice time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return ErrSubmitting
	}
	if s.loading {
		return ErrBusy
	}
	s.submitting = true
	s.touchLocked()

	time.AfterFunc(delay, func() { s.finishSubmit(notice) })
	return nil
}

func (s *Session) finishSubmit(notice time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = nil
	s.form.Clear()
	s.layout = geometry.NewLayout()
	s.selection = form.None()
	s.formTitle = ""
	s.description = ""
	s.filename = ""
	s.cached = false
	s.lastError = ""
	s.submitting = false
	s.submitted = true
	s.touchLocked()

	if s.noticeTimer != nil {
		s.noticeTimer.Stop()
	}
	s.noticeTimer = time.AfterFunc(notice, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.submitted = false
		s.noticeTimer = nil
	})
}
