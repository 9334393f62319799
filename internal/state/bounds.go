package state

import (
	"bytes"
	"image"
	"math"

	"SmartBoard/internal/viewport"
)

// strokeBounds is the bounding box of a stroke's samples, padded by half
// its width so round caps are included.
func strokeBounds(s Stroke) viewport.Rect {
	if len(s.Points) == 0 {
		return viewport.Rect{}
	}
	minX, minY := s.Points[0].X, s.Points[0].Y
	maxX, maxY := minX, minY
	for _, p := range s.Points[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	pad := s.Size / 2
	return viewport.Rect{
		X: minX - pad,
		Y: minY - pad,
		W: maxX - minX + 2*pad,
		H: maxY - minY + 2*pad,
	}
}

// ObjectBounds returns the normalised rectangle an object covers.
func ObjectBounds(o Object) viewport.Rect {
	g := o.Geom
	r := viewport.Rect{
		X: math.Min(g.X, g.X+g.W),
		Y: math.Min(g.Y, g.Y+g.H),
		W: math.Abs(g.W),
		H: math.Abs(g.H),
	}
	if o.Kind == KindLine || o.Kind == KindArrow {
		pad := math.Max(o.Style.Width, 1) / 2
		r.X -= pad
		r.Y -= pad
		r.W += 2 * pad
		r.H += 2 * pad
	}
	return r
}

// union merges two rectangles; an empty operand is ignored.
func union(a, b viewport.Rect) viewport.Rect {
	if a.Empty() {
		return b
	}
	if b.Empty() {
		return a
	}
	minX := math.Min(a.X, b.X)
	minY := math.Min(a.Y, b.Y)
	maxX := math.Max(a.X+a.W, b.X+b.W)
	maxY := math.Max(a.Y+a.H, b.Y+b.H)
	return viewport.Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

func contains(r viewport.Rect, x, y float64) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// BackgroundBounds returns the logical area of a page's background image:
// its pixel size anchored at the origin. It is empty when the page has no
// background or the image header cannot be read.
func BackgroundBounds(p *Page) viewport.Rect {
	if p.BG == nil || len(p.BG.Data) == 0 {
		return viewport.Rect{}
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(p.BG.Data))
	if err != nil {
		return viewport.Rect{}
	}
	return viewport.Rect{W: float64(cfg.Width), H: float64(cfg.Height)}
}

// ContentBounds returns the area covered by a page's background, strokes
// and visible objects. Eraser strokes do not add content.
func ContentBounds(p *Page) viewport.Rect {
	r := BackgroundBounds(p)
	for _, s := range p.Strokes {
		if s.Mode == ModeEraser {
			continue
		}
		r = union(r, strokeBounds(s))
	}
	for _, o := range p.Objects {
		if o.Visible {
			r = union(r, ObjectBounds(o))
		}
	}
	return r
}

// ObjectAt returns the id of the topmost visible object under the logical
// point (x, y).
func ObjectAt(p *Page, x, y float64) (string, bool) {
	for i := len(p.Objects) - 1; i >= 0; i-- {
		o := p.Objects[i]
		if o.Visible && contains(ObjectBounds(o), x, y) {
			return o.ID, true
		}
	}
	return "", false
}
