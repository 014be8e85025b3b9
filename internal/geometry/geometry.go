package geometry

import "math"

// Default box size, in original page units, used when an absolute box
// omits its width or height.
const (
	DefaultWidth  = 100
	DefaultHeight = 30
)

// Box is a rectangle with a top-left origin. Depending on context the
// components are fractions of the render size or original page units.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PageDims describes one rendered page.
type PageDims struct {
	OriginalWidth  float64 `json:"original_width"`
	OriginalHeight float64 `json:"original_height"`
	RenderWidth    int     `json:"render_width"`
	RenderHeight   int     `json:"render_height"`
	ScaleX         float64 `json:"scale_x"`
	ScaleY         float64 `json:"scale_y"`
}

// Position is a rounded rectangle in render-pixel space.
type Position struct {
	Page   int `json:"page"`
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Contains reports whether (x, y) lies inside p, edges included.
func (p Position) Contains(x, y float64) bool {
	return x >= float64(p.X) && x <= float64(p.X+p.Width) &&
		y >= float64(p.Y) && y <= float64(p.Y+p.Height)
}

// Placement is the spatial part of an extracted field.
type Placement struct {
	Name string
	Page int
	Norm *Box
	Abs  *Box
}

// Map converts a placement into render pixels. It returns false when the
// page index is out of range or the placement carries no box at all.
// A normalized box wins over an absolute one.
func Map(p Placement, pages []PageDims) (Position, bool) {
	if p.Page < 0 || p.Page >= len(pages) {
		return Position{}, false
	}
	d := pages[p.Page]

	var x, y, w, h float64
	switch {
	case p.Norm != nil:
		rw, rh := float64(d.RenderWidth), float64(d.RenderHeight)
		x = p.Norm.X * rw
		y = p.Norm.Y * rh
		w = p.Norm.Width * rw
		h = p.Norm.Height * rh
	case p.Abs != nil:
		aw, ah := p.Abs.Width, p.Abs.Height
		if aw == 0 {
			aw = DefaultWidth
		}
		if ah == 0 {
			ah = DefaultHeight
		}
		x = p.Abs.X * d.ScaleX
		y = p.Abs.Y * d.ScaleY
		w = aw * d.ScaleX
		h = ah * d.ScaleY
	default:
		return Position{}, false
	}

	return Position{
		Page:   p.Page,
		X:      int(math.Round(x)),
		Y:      int(math.Round(y)),
		Width:  int(math.Round(w)),
		Height: int(math.Round(h)),
	}, true
}

// ToNatural converts a point measured on a page displayed at
// displayW x displayH into the page's natural pixel space. Non-positive
// display sizes leave the point unchanged.
func ToNatural(x, y, displayW, displayH float64, naturalW, naturalH int) (float64, float64) {
	if displayW <= 0 || displayH <= 0 {
		return x, y
	}
	return x * float64(naturalW) / displayW, y * float64(naturalH) / displayH
}
