package form

import "strings"

// FieldType is the kind of control a detected field represents.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeCheckbox FieldType = "checkbox"
	TypeRadio    FieldType = "radio"
	TypeDropdown FieldType = "dropdown"
	TypeDate     FieldType = "date"
	TypeEmail    FieldType = "email"
	TypePhone    FieldType = "phone"
	TypeAddress  FieldType = "address"
	TypeOther    FieldType = "other"
)

var knownTypes = map[FieldType]bool{
	TypeText: true, TypeCheckbox: true, TypeRadio: true, TypeDropdown: true,
	TypeDate: true, TypeEmail: true, TypePhone: true, TypeAddress: true, TypeOther: true,
}

// ParseFieldType maps a reported type onto the known set. Empty means
// text; anything unrecognized is other.
func ParseFieldType(s string) FieldType {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TypeText
	}
	if t := FieldType(s); knownTypes[t] {
		return t
	}
	return TypeOther
}

// Field is one editable form value.
type Field struct {
	Name       string    `json:"name"`
	Value      string    `json:"value"`
	Type       FieldType `json:"type"`
	Label      string    `json:"label,omitempty"`
	PageNumber int       `json:"pageNumber"`
	Confidence *float64  `json:"confidence,omitempty"`
}

// State is the ordered list of editable fields for one document.
// It is not safe for concurrent use; callers hold their own lock.
type State struct {
	fields []Field
}

// NewState copies fields into a new State.
func NewState(fields []Field) *State {
	s := &State{}
	s.Replace(fields)
	return s
}

// Replace swaps the whole field list.
func (s *State) Replace(fields []Field) {
	s.fields = append([]Field(nil), fields...)
}

// Clear drops every field.
func (s *State) Clear() {
	s.fields = nil
}

// Len returns the number of fields.
func (s *State) Len() int {
	return len(s.fields)
}

// Fields returns a copy of the field list.
func (s *State) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Lookup returns the field called name.
func (s *State) Lookup(name string) (Field, bool) {
	if i := s.index(name); i >= 0 {
		return s.fields[i], true
	}
	return Field{}, false
}

// SetFieldValue replaces the value of the named field and leaves every
// other field and the order untouched. Unknown names are ignored; the
// return value reports whether a field was changed.
func (s *State) SetFieldValue(name, value string) bool {
	i := s.index(name)
	if i < 0 {
		return false
	}
	s.fields[i].Value = value
	return true
}

// EditFromControl stores a value coming from the field's control,
// converting date control values back to display form.
func (s *State) EditFromControl(name, value string) bool {
	f, ok := s.Lookup(name)
	if !ok {
		return false
	}
	if f.Type == TypeDate {
		value = ToDisplayDate(value)
	}
	return s.SetFieldValue(name, value)
}

// ControlValue returns the value the field's control should show.
func (s *State) ControlValue(name string) (string, bool) {
	f, ok := s.Lookup(name)
	if !ok {
		return "", false
	}
	if f.Type == TypeDate {
		return ToInputDate(f.Value), true
	}
	return f.Value, true
}

func (s *State) index(name string) int {
	for i := range s.fields {
		if s.fields[i].Name == name {
			return i
		}
	}
	return -1
}
