package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/dgallion1/formlens/internal/geometry"
)

// Stroke describes how a box outline is drawn.
type Stroke struct {
	Color color.RGBA
	Width int
	// Dash and Gap are segment lengths in pixels; Dash == 0 draws solid.
	Dash int
	Gap  int
}

var (
	// Standard outlines every positioned field on a page.
	Standard = Stroke{Color: color.RGBA{R: 0xFF, G: 0xA5, A: 0xFF}, Width: 2}
	// Highlight outlines the selected field on top of Standard.
	Highlight = Stroke{Color: color.RGBA{R: 0xE5, G: 0x3E, B: 0x3E, A: 0xFF}, Width: 4, Dash: 8, Gap: 5}
)

// Render draws every entry with Standard and, if highlighted names one of
// them, that entry again with Highlight. It always starts from the
// untouched page image, so repeated calls never accumulate strokes.
func Render(pagePNG []byte, entries []geometry.Entry, highlighted string) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(pagePNG))
	if err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	canvas := image.NewRGBA(src.Bounds())
	draw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, draw.Src)

	for _, e := range entries {
		Outline(canvas, e.Position, Standard)
	}
	if highlighted != "" {
		for _, e := range entries {
			if e.Name == highlighted {
				Outline(canvas, e.Position, Highlight)
				break
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode overlay: %w", err)
	}
	return buf.Bytes(), nil
}

// Outline strokes the border of pos inward, clipped to the canvas.
func Outline(canvas *image.RGBA, pos geometry.Position, s Stroke) {
	if s.Width <= 0 || pos.Width <= 0 || pos.Height <= 0 {
		return
	}
	r := image.Rect(pos.X, pos.Y, pos.X+pos.Width, pos.Y+pos.Height)
	w := s.Width
	if w*2 > r.Dx() {
		w = max(1, r.Dx()/2)
	}
	if w*2 > r.Dy() {
		w = max(1, r.Dy()/2)
	}

	// top and bottom run along x, left and right along y
	for i := r.Min.X; i < r.Max.X; i++ {
		if s.on(i - r.Min.X) {
			fill(canvas, image.Rect(i, r.Min.Y, i+1, r.Min.Y+w), s.Color)
			fill(canvas, image.Rect(i, r.Max.Y-w, i+1, r.Max.Y), s.Color)
		}
	}
	for j := r.Min.Y; j < r.Max.Y; j++ {
		if s.on(j - r.Min.Y) {
			fill(canvas, image.Rect(r.Min.X, j, r.Min.X+w, j+1), s.Color)
			fill(canvas, image.Rect(r.Max.X-w, j, r.Max.X, j+1), s.Color)
		}
	}
}

func (s Stroke) on(offset int) bool {
	if s.Dash <= 0 {
		return true
	}
	return offset%(s.Dash+s.Gap) < s.Dash
}

func fill(canvas *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(canvas.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(canvas, r, image.NewUniform(c), image.Point{}, draw.Src)
}
