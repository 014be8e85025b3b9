package extract

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/formlens/internal/form"
)

func TestScrapeJSONFencedBlock(t *testing.T) {
	data, err := ScrapeJSON("```json\n{\"fields\":[]}\n```")
	require.NoError(t, err)

	res, err := DecodeResult(data, "")
	require.NoError(t, err)
	assert.NotNil(t, res.Fields)
	assert.Empty(t, res.Fields)
}

func TestScrapeJSONFencedBlockWithProse(t *testing.T) {
	text := "Here you go:\n\n```json\n{\"fields\":[{\"name\":\"a\"}]}\n```\n\nLet me know {if} you need more."
	data, err := ScrapeJSON(text)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fields":[{"name":"a"}]}`, string(data))
}

func TestScrapeJSONBraceSpan(t *testing.T) {
	data, err := ScrapeJSON(`Sure! {"fields":[{"name":"x","coordinates":{"x":1}}]} Hope that helps.`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fields":[{"name":"x","coordinates":{"x":1}}]}`, string(data))
}

func TestScrapeJSONFallsThroughBrokenFence(t *testing.T) {
	text := "```json\n{broken\n```"
	_, err := ScrapeJSON(text)
	var rfe *ResponseFormatError
	require.True(t, errors.As(err, &rfe))
	assert.Equal(t, text, rfe.Raw)
}

func TestScrapeJSONNotJSON(t *testing.T) {
	_, err := ScrapeJSON("not json at all")
	var rfe *ResponseFormatError
	require.True(t, errors.As(err, &rfe))
	assert.Equal(t, "not json at all", rfe.Raw)
}

func TestScrapeJSONRawArrayParses(t *testing.T) {
	data, err := ScrapeJSON("  [1,2]  ")
	require.NoError(t, err)
	assert.Equal(t, "[1,2]", string(data))
}

func TestDecodeResultSchemaMismatch(t *testing.T) {
	raw := `{"fields":"nope"}`
	_, err := DecodeResult([]byte(raw), raw)
	var rfe *ResponseFormatError
	require.True(t, errors.As(err, &rfe))
	assert.Equal(t, raw, rfe.Raw)

	_, err = DecodeResult([]byte(`{"formTitle":"x"}`), "x")
	require.True(t, errors.As(err, &rfe), "fields is required")

	_, err = DecodeResult([]byte(`{"fields":[{"name":"a","coordinates":{"x":"left"}}]}`), "x")
	require.True(t, errors.As(err, &rfe), "box components are numbers")
}

func TestDecodeResultNormalizesFields(t *testing.T) {
	raw := `{
		"formTitle": "Enrollment",
		"fields": [
			{"name": "Agree", "value": true, "type": "checkbox", "pageNumber": 1, "confidence": 1.7,
			 "coordinates": {"x": 5, "y": 6}},
			{"name": "Age", "value": 42, "type": ""},
			{"value": null, "type": "signature", "coordinates_norm": {"x": 0.5, "y": 0.5, "width": 0.1, "height": 0.1}},
			{"name": "Age", "value": "x"}
		]
	}`
	res, err := DecodeResult([]byte(raw), raw)
	require.NoError(t, err)
	require.Len(t, res.Fields, 4)
	assert.Equal(t, "Enrollment", res.FormTitle)

	agree := res.Fields[0]
	assert.Equal(t, "true", agree.Value)
	assert.Equal(t, form.TypeCheckbox, agree.Type)
	assert.Equal(t, 1, agree.PageNumber)
	require.NotNil(t, agree.Confidence)
	assert.Equal(t, 1.0, *agree.Confidence)
	require.NotNil(t, agree.Coordinates)
	assert.Equal(t, 0.0, agree.Coordinates.Width)
	assert.Nil(t, agree.CoordinatesNorm)

	age := res.Fields[1]
	assert.Equal(t, "42", age.Value)
	assert.Equal(t, form.TypeText, age.Type)

	unnamed := res.Fields[2]
	assert.Equal(t, "Field 3", unnamed.Name)
	assert.Equal(t, "", unnamed.Value)
	assert.Equal(t, form.TypeOther, unnamed.Type)

	assert.Equal(t, "Age (2)", res.Fields[3].Name)
}

func TestDecodeResultDuplicateNamesNeverCollide(t *testing.T) {
	raw := `{"fields":[{"name":"A"},{"name":"A"},{"name":"A (2)"},{"name":"Field 5"},{}]}`
	res, err := DecodeResult([]byte(raw), raw)
	require.NoError(t, err)

	names := make([]string, len(res.Fields))
	for i, f := range res.Fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"A", "A (2)", "A (2) (2)", "Field 5", "Field 5 (2)"}, names)
}

func TestScrapeJSONUntaggedFence(t *testing.T) {
	text := "Result:\n```\n{\"fields\":[]}\n```\nNote {x}"
	data, err := ScrapeJSON(text)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fields":[]}`, string(data))
}

func TestScrapeJSONSkipsOtherLanguages(t *testing.T) {
	text := "```python\nprint(1)\n```\n```json\n{\"fields\":[]}\n```"
	data, err := ScrapeJSON(text)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fields":[]}`, string(data))
}

func TestResponseFormatErrorKeepsValidUTF8(t *testing.T) {
	raw := "a" + strings.Repeat("é", 150)
	msg := (&ResponseFormatError{Raw: raw, Err: errors.New("bad")}).Error()
	assert.True(t, utf8.ValidString(msg))
	assert.True(t, strings.HasSuffix(msg, "..."))
	assert.Equal(t, raw, (&ResponseFormatError{Raw: raw}).Raw)

	up := (&UpstreamError{StatusCode: 500, Body: raw}).Error()
	assert.True(t, utf8.ValidString(up))
}

func TestResultCloneIsDeep(t *testing.T) {
	raw := `{"fields":[{"name":"a","confidence":0.5,"coordinates":{"x":1}}]}`
	res, err := DecodeResult([]byte(raw), raw)
	require.NoError(t, err)

	cp := res.clone()
	cp.Fields[0].Coordinates.X = 99
	*cp.Fields[0].Confidence = 0.1
	cp.Fields[0].Name = "b"

	assert.Equal(t, 1.0, res.Fields[0].Coordinates.X)
	assert.Equal(t, 0.5, *res.Fields[0].Confidence)
	assert.Equal(t, "a", res.Fields[0].Name)
}

func TestParseImage(t *testing.T) {
	img := ParseImage("data:image/jpeg;base64,QUJD")
	assert.Equal(t, Image{MIMEType: "image/jpeg", Data: "QUJD"}, img)

	img = ParseImage("QUJD")
	assert.Equal(t, Image{MIMEType: "image/png", Data: "QUJD"}, img)
	assert.Equal(t, "data:image/png;base64,QUJD", img.DataURL())
}

func TestBuildPromptListsPages(t *testing.T) {
	p := BuildPrompt([]PageSize{{Width: 1224, Height: 1584}, {Width: 1224, Height: 1584}}, 2)
	assert.Contains(t, p, "Page 0: 1224px wide x 1584px high")
	assert.Contains(t, p, "Page 1: 1224px wide")
	assert.Contains(t, p, "Render scale: 2")
	assert.Contains(t, p, "coordinates_norm")
}
