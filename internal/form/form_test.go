package form

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDisplayDate(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"25/12/2024":        "25/12/2024",
		"25-12-2024":        "25/12/2024",
		"2024-12-25":        "25/12/2024",
		"not a date":        "not a date",
		"October 7, 1970":   "07/10/1970",
		"December 25, 2024": "25/12/2024",
	}
	for in, want := range cases {
		assert.Equal(t, want, ToDisplayDate(in), "input %q", in)
	}
}

func TestToInputDate(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"25/12/2024": "2024-12-25",
		"25-12-2024": "2024-12-25",
		"2024-12-25": "2024-12-25",
		"tomorrow":   "tomorrow",
	}
	for in, want := range cases {
		assert.Equal(t, want, ToInputDate(in), "input %q", in)
	}
}

func TestDateRoundTripIdempotent(t *testing.T) {
	for _, x := range []string{"25/12/2024", "2024-12-25", "25-12-2024"} {
		assert.Equal(t, ToInputDate(x), ToInputDate(ToDisplayDate(x)), "input %q", x)
	}
}

func TestParseFieldType(t *testing.T) {
	assert.Equal(t, TypeText, ParseFieldType(""))
	assert.Equal(t, TypeDate, ParseFieldType("Date"))
	assert.Equal(t, TypePhone, ParseFieldType(" phone "))
	assert.Equal(t, TypeOther, ParseFieldType("signature"))
}

func sampleState() *State {
	return NewState([]Field{
		{Name: "first", Value: "Ada", Type: TypeText},
		{Name: "dob", Value: "10/12/1815", Type: TypeDate},
		{Name: "agree", Value: "false", Type: TypeCheckbox},
	})
}

func TestSetFieldValue(t *testing.T) {
	s := sampleState()
	require.True(t, s.SetFieldValue("first", "Grace"))

	fields := s.Fields()
	assert.Equal(t, "Grace", fields[0].Value)
	assert.Equal(t, "10/12/1815", fields[1].Value)
	assert.Equal(t, []string{"first", "dob", "agree"}, []string{fields[0].Name, fields[1].Name, fields[2].Name})
}

func TestSetFieldValueUnknownIsNoop(t *testing.T) {
	s := sampleState()
	before := s.Fields()
	assert.False(t, s.SetFieldValue("missing", "x"))
	assert.Equal(t, before, s.Fields())
}

func TestEditFromControlConvertsDates(t *testing.T) {
	s := sampleState()
	require.True(t, s.EditFromControl("dob", "1990-03-04"))
	f, _ := s.Lookup("dob")
	assert.Equal(t, "04/03/1990", f.Value)

	v, ok := s.ControlValue("dob")
	require.True(t, ok)
	assert.Equal(t, "1990-03-04", v)

	require.True(t, s.EditFromControl("first", "2020-01-01"))
	f, _ = s.Lookup("first")
	assert.Equal(t, "2020-01-01", f.Value, "non-date fields are stored verbatim")
}

func TestFieldsReturnsCopy(t *testing.T) {
	s := sampleState()
	fields := s.Fields()
	fields[0].Value = "mutated"
	f, _ := s.Lookup("first")
	assert.Equal(t, "Ada", f.Value)
}

func TestClearAndReplace(t *testing.T) {
	s := sampleState()
	s.Clear()
	assert.Equal(t, 0, s.Len())
	s.Replace([]Field{{Name: "n"}})
	assert.Equal(t, 1, s.Len())
}

func TestSelection(t *testing.T) {
	sel := None()
	assert.True(t, sel.IsNone())
	_, ok := sel.Field()
	assert.False(t, ok)

	sel = Selected("email")
	name, ok := sel.Field()
	require.True(t, ok)
	assert.Equal(t, "email", name)
	assert.True(t, sel.Is("email"))
	assert.False(t, sel.Is("phone"))

	b, err := json.Marshal(sel)
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"selected","field":"email"}`, string(b))

	b, err = json.Marshal(None())
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"none"}`, string(b))
}

func TestControlFor(t *testing.T) {
	assert.Equal(t, ControlSelect, ControlFor(TypeDropdown))
	assert.Equal(t, ControlTel, ControlFor(TypePhone))
	assert.Equal(t, ControlText, ControlFor(TypeAddress))
	assert.Equal(t, ControlText, ControlFor(TypeOther))
}

func TestChecked(t *testing.T) {
	assert.True(t, Checked("true"))
	assert.True(t, Checked("checked"))
	assert.False(t, Checked("yes"))
	assert.Equal(t, "true", CheckboxValue(true))
	assert.Equal(t, "false", CheckboxValue(false))
}
