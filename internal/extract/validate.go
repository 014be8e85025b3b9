package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dgallion1/formlens/internal/form"
	"github.com/dgallion1/formlens/internal/geometry"
)

// Field is one detected form field as reported by the model, after
// normalization.
type Field struct {
	Name            string         `json:"name"`
	Value           string         `json:"value"`
	Type            form.FieldType `json:"type"`
	Label           string         `json:"label,omitempty"`
	PageNumber      int            `json:"pageNumber"`
	Confidence      *float64       `json:"confidence,omitempty"`
	Coordinates     *geometry.Box  `json:"coordinates,omitempty"`
	CoordinatesNorm *geometry.Box  `json:"coordinates_norm,omitempty"`
}

// Result is the structured outcome of one extraction.
type Result struct {
	Fields      []Field `json:"fields"`
	FormTitle   string  `json:"formTitle,omitempty"`
	Description string  `json:"description,omitempty"`

	// Cached is set when the result came from the response cache.
	Cached bool `json:"-"`
}

// Placement returns the spatial part of f.
func (f Field) Placement() geometry.Placement {
	return geometry.Placement{
		Name: f.Name,
		Page: f.PageNumber,
		Norm: f.CoordinatesNorm,
		Abs:  f.Coordinates,
	}
}

func (r *Result) clone() *Result {
	out := *r
	out.Fields = make([]Field, len(r.Fields))
	for i, f := range r.Fields {
		if f.Confidence != nil {
			c := *f.Confidence
			f.Confidence = &c
		}
		if f.Coordinates != nil {
			b := *f.Coordinates
			f.Coordinates = &b
		}
		if f.CoordinatesNorm != nil {
			b := *f.CoordinatesNorm
			f.CoordinatesNorm = &b
		}
		out.Fields[i] = f
	}
	return &out
}

var resultSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"fields": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":             map[string]any{"type": []string{"string", "null"}},
					"type":             map[string]any{"type": []string{"string", "null"}},
					"label":            map[string]any{"type": []string{"string", "null"}},
					"pageNumber":       map[string]any{"type": []string{"number", "null"}},
					"confidence":       map[string]any{"type": []string{"number", "null"}},
					"coordinates":      boxSchema,
					"coordinates_norm": boxSchema,
				},
			},
		},
		"formTitle":   map[string]any{"type": []string{"string", "null"}},
		"description": map[string]any{"type": []string{"string", "null"}},
	},
	"required": []string{"fields"},
}

var boxSchema = map[string]any{
	"type": []string{"object", "null"},
	"properties": map[string]any{
		"x":      map[string]any{"type": []string{"number", "null"}},
		"y":      map[string]any{"type": []string{"number", "null"}},
		"width":  map[string]any{"type": []string{"number", "null"}},
		"height": map[string]any{"type": []string{"number", "null"}},
	},
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		b, err := json.Marshal(resultSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("result.json", bytes.NewReader(b)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile("result.json")
	})
	return compiledSchema, compileErr
}

type rawBox struct {
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
}

type rawField struct {
	Name            *string         `json:"name"`
	Value           json.RawMessage `json:"value"`
	Type            *string         `json:"type"`
	Label           *string         `json:"label"`
	PageNumber      *float64        `json:"pageNumber"`
	Confidence      *float64        `json:"confidence"`
	Coordinates     *rawBox         `json:"coordinates"`
	CoordinatesNorm *rawBox         `json:"coordinates_norm"`
}

type rawResult struct {
	Fields      []rawField `json:"fields"`
	FormTitle   *string    `json:"formTitle"`
	Description *string    `json:"description"`
}

// DecodeResult checks data against the result schema and normalizes it.
// Any mismatch is a ResponseFormatError carrying raw.
func DecodeResult(data []byte, raw string) (*Result, error) {
	sch, err := schema()
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, &ResponseFormatError{Raw: raw, Err: err}
	}
	if err := sch.Validate(v); err != nil {
		return nil, &ResponseFormatError{Raw: raw, Err: fmt.Errorf("json does not match schema: %w", err)}
	}

	var rr rawResult
	if err := json.Unmarshal(data, &rr); err != nil {
		return nil, &ResponseFormatError{Raw: raw, Err: err}
	}

	res := &Result{
		Fields:      make([]Field, 0, len(rr.Fields)),
		FormTitle:   deref(rr.FormTitle),
		Description: deref(rr.Description),
	}
	used := make(map[string]bool, len(rr.Fields))
	for i, rf := range rr.Fields {
		f := normalizeField(rf, i)
		f.Name = uniqueName(f.Name, used)
		used[f.Name] = true
		res.Fields = append(res.Fields, f)
	}
	return res, nil
}

// uniqueName suffixes name with " (n)" until it is not in used.
func uniqueName(name string, used map[string]bool) string {
	if !used[name] {
		return name
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", name, n)
		if !used[candidate] {
			return candidate
		}
	}
}

func normalizeField(rf rawField, index int) Field {
	f := Field{
		Name:            strings.TrimSpace(deref(rf.Name)),
		Value:           stringValue(rf.Value),
		Type:            form.ParseFieldType(deref(rf.Type)),
		Label:           deref(rf.Label),
		Coordinates:     rf.Coordinates.box(),
		CoordinatesNorm: rf.CoordinatesNorm.box(),
	}
	if f.Name == "" {
		f.Name = fmt.Sprintf("Field %d", index+1)
	}
	if rf.PageNumber != nil {
		f.PageNumber = int(*rf.PageNumber)
	}
	if rf.Confidence != nil {
		c := *rf.Confidence
		if c < 0 {
			c = 0
		}
		if c > 1 {
			c = 1
		}
		f.Confidence = &c
	}
	return f
}

func (b *rawBox) box() *geometry.Box {
	if b == nil {
		return nil
	}
	return &geometry.Box{
		X:      derefFloat(b.X),
		Y:      derefFloat(b.Y),
		Width:  derefFloat(b.Width),
		Height: derefFloat(b.Height),
	}
}

// stringValue renders a JSON scalar as form text. Null and missing values
// become the empty string.
func stringValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return string(raw)
		}
		return buf.String()
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
