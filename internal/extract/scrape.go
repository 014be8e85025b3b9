package extract

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type strategy struct {
	name string
	find func(string) (string, bool)
}

// Tried in order; the first candidate that parses as JSON wins.
var strategies = []strategy{
	{name: "fenced", find: fencedJSON},
	{name: "braces", find: braceSpan},
	{name: "raw", find: rawText},
}

// ScrapeJSON pulls a JSON document out of free-form model output. It never
// repairs malformed JSON: if no strategy yields valid JSON the result is a
// ResponseFormatError carrying the original text.
func ScrapeJSON(s string) ([]byte, error) {
	var lastErr error
	for _, st := range strategies {
		candidate, ok := st.find(s)
		if !ok {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(candidate), &v); err != nil {
			lastErr = err
			continue
		}
		return []byte(candidate), nil
	}
	if lastErr == nil {
		lastErr = errors.New("no json found")
	}
	return nil, &ResponseFormatError{Raw: s, Err: lastErr}
}

// fencedJSON returns the body of the first fenced code block tagged json
// or left untagged.
func fencedJSON(s string) (string, bool) {
	src := []byte(s)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var body string
	found := false
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if lang := string(block.Language(src)); lang != "" && !strings.EqualFold(lang, "json") {
			return ast.WalkSkipChildren, nil
		}
		var b strings.Builder
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(src))
		}
		body = b.String()
		found = true
		return ast.WalkStop, nil
	})
	return body, found
}

// braceSpan returns everything from the first '{' to the last '}'.
func braceSpan(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func rawText(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}
