package session

import (
	"time"

	"github.com/dgallion1/formlens/internal/form"
	"github.com/dgallion1/formlens/internal/geometry"
)

// PageInfo describes one rendered page without its image bytes.
type PageInfo struct {
	Index int               `json:"index"`
	Dims  geometry.PageDims `json:"dims"`
	Image string            `json:"image_url"`
}

// FieldView is a field as a client renders it.
type FieldView struct {
	form.Field
	Control      form.Control       `json:"control"`
	ControlValue string             `json:"control_value"`
	Checked      bool               `json:"checked,omitempty"`
	Highlighted  bool               `json:"highlighted"`
	Position     *geometry.Position `json:"position,omitempty"`
}

// Snapshot is a read-only, JSON-safe copy of session state.
type Snapshot struct {
	ID          string         `json:"session_id"`
	Filename    string         `json:"filename,omitempty"`
	Loading     bool           `json:"loading"`
	Submitting  bool           `json:"submitting"`
	Submitted   bool           `json:"submitted"`
	Error       string         `json:"error,omitempty"`
	FormTitle   string         `json:"formTitle,omitempty"`
	Description string         `json:"description,omitempty"`
	Cached      bool           `json:"cached"`
	Generation  int            `json:"generation"`
	Pages       []PageInfo     `json:"pages"`
	Fields      []FieldView    `json:"fields"`
	Selection   form.Selection `json:"selection"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the session state. imageURL builds
// the link for a page image.
func (s *Session) Snapshot(imageURL func(page int) string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	pages := make([]PageInfo, 0, len(s.pages))
	for _, p := range s.pages {
		info := PageInfo{Index: p.Index, Dims: p.Dims}
		if imageURL != nil {
			info.Image = imageURL(p.Index)
		}
		pages = append(pages, info)
	}

	fields := make([]FieldView, 0, s.form.Len())
	for _, f := range s.form.Fields() {
		ctrl := form.ControlFor(f.Type)
		v := FieldView{
			Field:        f,
			Control:      ctrl,
			ControlValue: f.Value,
			Highlighted:  s.selection.Is(f.Name),
		}
		if f.Type == form.TypeDate {
			v.ControlValue = form.ToInputDate(f.Value)
		}
		if ctrl == form.ControlCheckbox {
			v.Checked = form.Checked(f.Value)
		}
		if pos, ok := s.layout.Lookup(f.Name); ok {
			v.Position = &pos
		}
		fields = append(fields, v)
	}

	return Snapshot{
		ID:          s.ID,
		Filename:    s.filename,
		Loading:     s.loading,
		Submitting:  s.submitting,
		Submitted:   s.submitted,
		Error:       s.lastError,
		FormTitle:   s.formTitle,
		Description: s.description,
		Cached:      s.cached,
		Generation:  s.generation,
		Pages:       pages,
		Fields:      fields,
		Selection:   s.selection,
		UpdatedAt:   s.UpdatedAt,
	}
}
