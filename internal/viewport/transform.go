// Package viewport maps between screen and logical board coordinates.
package viewport

import "math"

// Default zoom bounds.
const (
	DefaultMinScale = 0.4
	DefaultMaxScale = 3.0
)

// Point is a 2D position in either screen or logical space.
type Point struct {
	X, Y float64
}

// Size is a viewport size in screen pixels.
type Size struct {
	W, H float64
}

// Rect is an axis-aligned rectangle in logical coordinates.
type Rect struct {
	X, Y, W, H float64
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Transform is the process-wide pan/zoom state.
// A screen point s maps to the logical point (s - Pan) / Scale.
type Transform struct {
	Scale    float64
	Pan      Point
	MinScale float64
	MaxScale float64
}

// New returns an identity transform with the given zoom bounds.
// Invalid bounds fall back to the defaults.
func New(minScale, maxScale float64) *Transform {
	if minScale <= 0 || maxScale < minScale {
		minScale, maxScale = DefaultMinScale, DefaultMaxScale
	}
	return &Transform{Scale: 1, MinScale: minScale, MaxScale: maxScale}
}

// Clamp bounds s to [MinScale, MaxScale].
func (t *Transform) Clamp(s float64) float64 {
	if math.IsNaN(s) {
		return t.Scale
	}
	return math.Min(t.MaxScale, math.Max(t.MinScale, s))
}

// ToLogical maps a screen point to board coordinates.
func (t *Transform) ToLogical(p Point) Point {
	return Point{
		X: (p.X - t.Pan.X) / t.Scale,
		Y: (p.Y - t.Pan.Y) / t.Scale,
	}
}

// ToScreen maps a board point to screen coordinates.
func (t *Transform) ToScreen(p Point) Point {
	return Point{
		X: p.X*t.Scale + t.Pan.X,
		Y: p.Y*t.Scale + t.Pan.Y,
	}
}

// SetScale changes the zoom around the screen origin.
func (t *Transform) SetScale(s float64) {
	t.ZoomAbout(Point{}, s)
}

// ZoomAbout changes the scale so that the logical point under pivot stays put.
// Out-of-range scales are clamped.
func (t *Transform) ZoomAbout(pivot Point, s float64) {
	logical := t.ToLogical(pivot)
	t.Scale = t.Clamp(s)
	t.Pan = Point{
		X: pivot.X - logical.X*t.Scale,
		Y: pivot.Y - logical.Y*t.Scale,
	}
}

// ZoomBy multiplies the scale by factor around pivot.
func (t *Transform) ZoomBy(pivot Point, factor float64) {
	t.ZoomAbout(pivot, t.Scale*factor)
}

// PanBy shifts the view by a screen-space delta.
func (t *Transform) PanBy(dx, dy float64) {
	t.Pan.X += dx
	t.Pan.Y += dy
}

// Reset restores scale 1 and no pan.
func (t *Transform) Reset() {
	t.Scale = t.Clamp(1)
	t.Pan = Point{}
}

// Fit centres content inside view with padding screen pixels on each side.
// Empty content resets the transform.
func (t *Transform) Fit(content Rect, view Size, padding float64) {
	if content.Empty() || view.W <= 2*padding || view.H <= 2*padding {
		t.Reset()
		return
	}
	s := math.Min((view.W-2*padding)/content.W, (view.H-2*padding)/content.H)
	t.Scale = t.Clamp(s)
	t.Pan = Point{
		X: view.W/2 - (content.X+content.W/2)*t.Scale,
		Y: view.H/2 - (content.Y+content.H/2)*t.Scale,
	}
}

// GridOffset returns the screen offset of the first grid line for step.
func (t *Transform) GridOffset(step float64) Point {
	return Point{X: math.Mod(t.Pan.X, step), Y: math.Mod(t.Pan.Y, step)}
}
