package geometry

import "encoding/json"

// Entry is a named position.
type Entry struct {
	Name string `json:"name"`
	Position
}

// Layout maps field names to positions and remembers insertion order,
// which decides hit-test ties. A Layout is never edited after it is
// built; a new extraction produces a new Layout.
type Layout struct {
	order  []string
	byName map[string]Position
}

// NewLayout returns an empty layout.
func NewLayout() *Layout {
	return &Layout{byName: make(map[string]Position)}
}

// BuildLayout maps every placement that resolves to a page, in order.
func BuildLayout(placements []Placement, pages []PageDims) *Layout {
	l := NewLayout()
	for _, p := range placements {
		if pos, ok := Map(p, pages); ok {
			l.set(p.Name, pos)
		}
	}
	return l
}

// set overwrites an existing name in place, keeping its original slot.
func (l *Layout) set(name string, pos Position) {
	if _, exists := l.byName[name]; !exists {
		l.order = append(l.order, name)
	}
	l.byName[name] = pos
}

// Len returns the number of positioned fields.
func (l *Layout) Len() int {
	if l == nil {
		return 0
	}
	return len(l.order)
}

// Lookup returns the position for name.
func (l *Layout) Lookup(name string) (Position, bool) {
	if l == nil {
		return Position{}, false
	}
	pos, ok := l.byName[name]
	return pos, ok
}

// All returns every entry in insertion order.
func (l *Layout) All() []Entry {
	if l == nil {
		return []Entry{}
	}
	out := make([]Entry, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, Entry{Name: name, Position: l.byName[name]})
	}
	return out
}

// OnPage returns the entries on one page in insertion order.
func (l *Layout) OnPage(page int) []Entry {
	var out []Entry
	for _, e := range l.All() {
		if e.Page == page {
			out = append(out, e)
		}
	}
	return out
}

// HitTest returns the first field, in insertion order, whose box on page
// contains (x, y).
func (l *Layout) HitTest(page int, x, y float64) (string, bool) {
	if l == nil {
		return "", false
	}
	for _, name := range l.order {
		pos := l.byName[name]
		if pos.Page == page && pos.Contains(x, y) {
			return name, true
		}
	}
	return "", false
}

// MarshalJSON encodes the layout as an ordered array.
func (l *Layout) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.All())
}
