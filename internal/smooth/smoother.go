// Package smooth turns raw pointer samples into drawable curve segments and
// rasterises them.
package smooth

import (
	"image/color"
	"math"

	"github.com/gogpu/gg"

	"SmartBoard/internal/state"
	"SmartBoard/internal/viewport"
)

// Options controls how samples become segments.
type Options struct {
	Smoothing bool
	Pressure  bool
}

// DefaultOptions enables both smoothing and pressure sensitivity.
func DefaultOptions() Options { return Options{Smoothing: true, Pressure: true} }

// DefaultHighlighterAlpha applies to highlighter strokes without an alpha.
const DefaultHighlighterAlpha = 0.35

// minWidth is the thinnest pressure-scaled segment.
const minWidth = 0.5

// Segment is one quadratic Bézier piece of a stroke in logical coordinates.
type Segment struct {
	From, Ctrl, To viewport.Point
	Width          float64
}

// Width returns the line width for a sample of pressure p.
func Width(size, p float64, pressure bool) float64 {
	if !pressure || p <= 0 {
		return size
	}
	return math.Max(minWidth, size*(0.4+0.6*p))
}

func pt(p state.Point) viewport.Point { return viewport.Point{X: p.X, Y: p.Y} }

func mid(a, b viewport.Point) viewport.Point {
	return viewport.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Segments converts samples into curve pieces. With smoothing, each interior
// sample is the control point of a quadratic between consecutive midpoints,
// and a final piece runs to the last sample. Fewer than two samples yield
// nothing.
func Segments(pts []state.Point, size float64, opts Options) []Segment {
	if len(pts) < 2 {
		return nil
	}
	if !opts.Smoothing {
		segs := make([]Segment, 0, len(pts)-1)
		for i := 1; i < len(pts); i++ {
			a, b := pt(pts[i-1]), pt(pts[i])
			segs = append(segs, Segment{From: a, Ctrl: mid(a, b), To: b, Width: Width(size, pts[i].P, opts.Pressure)})
		}
		return segs
	}

	segs := make([]Segment, 0, len(pts)-1)
	from := pt(pts[0])
	for i := 1; i < len(pts)-1; i++ {
		to := mid(pt(pts[i]), pt(pts[i+1]))
		segs = append(segs, Segment{From: from, Ctrl: pt(pts[i]), To: to, Width: Width(size, pts[i].P, opts.Pressure)})
		from = to
	}
	last := pts[len(pts)-1]
	segs = append(segs, Segment{From: from, Ctrl: mid(from, pt(last)), To: pt(last), Width: Width(size, last.P, opts.Pressure)})
	return segs
}

// Style is how a stroke's coverage is applied to the stroke layer.
type Style struct {
	Color color.NRGBA
	Erase bool
}

// StyleFor returns the paint style of a stroke's mode.
func StyleFor(s state.Stroke) Style {
	switch s.Mode {
	case state.ModeEraser:
		return Style{Color: color.NRGBA{A: 0xff}, Erase: true}
	case state.ModeHighlighter:
		c := ParseColor(s.Color)
		a := s.Alpha
		if a <= 0 || a > 1 {
			a = DefaultHighlighterAlpha
		}
		c.A = uint8(math.Round(float64(c.A) * a))
		return Style{Color: c}
	default:
		return Style{Color: ParseColor(s.Color)}
	}
}

// ParseColor parses #RGB, #RGBA, #RRGGBB or #RRGGBBAA. Anything else is
// opaque black.
func ParseColor(hex string) color.NRGBA {
	c, ok := gg.Hex(hex).Color().(color.NRGBA)
	if !ok {
		return color.NRGBA{A: 0xff}
	}
	return c
}
