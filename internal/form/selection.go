package form

import "encoding/json"

// Selection is either None or Selected(name).
type Selection struct {
	name string
	set  bool
}

// None is the empty selection.
func None() Selection { return Selection{} }

// Selected highlights one field.
func Selected(name string) Selection { return Selection{name: name, set: true} }

// Field returns the selected field name, if any.
func (s Selection) Field() (string, bool) { return s.name, s.set }

// IsNone reports whether nothing is selected.
func (s Selection) IsNone() bool { return !s.set }

// Is reports whether name is the selected field.
func (s Selection) Is(name string) bool { return s.set && s.name == name }

func (s Selection) String() string {
	if !s.set {
		return "None"
	}
	return "Selected(" + s.name + ")"
}

type selectionJSON struct {
	State string `json:"state"`
	Field string `json:"field,omitempty"`
}

func (s Selection) MarshalJSON() ([]byte, error) {
	if !s.set {
		return json.Marshal(selectionJSON{State: "none"})
	}
	return json.Marshal(selectionJSON{State: "selected", Field: s.name})
}

// Control is the input element used to edit a field.
type Control string

const (
	ControlCheckbox Control = "checkbox"
	ControlRadio    Control = "radio"
	ControlSelect   Control = "select"
	ControlDate     Control = "date"
	ControlEmail    Control = "email"
	ControlTel      Control = "tel"
	ControlText     Control = "text"
)

// ControlFor picks the control for a field type.
func ControlFor(t FieldType) Control {
	switch t {
	case TypeCheckbox:
		return ControlCheckbox
	case TypeRadio:
		return ControlRadio
	case TypeDropdown:
		return ControlSelect
	case TypeDate:
		return ControlDate
	case TypeEmail:
		return ControlEmail
	case TypePhone:
		return ControlTel
	default:
		return ControlText
	}
}

// Checked reports whether a checkbox value counts as ticked.
func Checked(value string) bool {
	return value == "true" || value == "checked"
}

// CheckboxValue is the stored value for a checkbox state.
func CheckboxValue(checked bool) string {
	if checked {
		return "true"
	}
	return "false"
}
