package smooth

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"

	"SmartBoard/internal/state"
	"SmartBoard/internal/viewport"
)

// Painter rasterises strokes onto a stroke layer. Each stroke is first
// scanned into a coverage mask so overlapping segments of one translucent
// stroke do not double up, then the mask is composited: source-over for pen
// and highlighter, destination-out for the eraser.
//
// A Painter is not safe for concurrent use.
type Painter struct {
	mask   *image.Alpha
	dasher *rasterx.Dasher
	opts   Options
}

// NewPainter returns a painter for layers of the given bounds.
func NewPainter(bounds image.Rectangle, opts Options) *Painter {
	p := &Painter{opts: opts}
	p.resize(bounds)
	return p
}

// SetOptions changes the smoothing options for subsequent strokes.
func (p *Painter) SetOptions(opts Options) { p.opts = opts }

func (p *Painter) resize(bounds image.Rectangle) {
	p.mask = image.NewAlpha(bounds)
	w, h := bounds.Dx(), bounds.Dy()
	scanner := rasterx.NewScannerGV(w, h, p.mask, bounds)
	p.dasher = rasterx.NewDasher(w, h, scanner)
	p.dasher.SetColor(color.White)
}

// Draw paints stroke s onto layer through the view transform.
func (p *Painter) Draw(layer *image.RGBA, s state.Stroke, view viewport.Transform) {
	segs := Segments(s.Points, s.Size, p.opts)
	if len(segs) == 0 {
		return
	}
	if layer.Bounds() != p.mask.Bounds() {
		p.resize(layer.Bounds())
	}
	dirty := p.scan(segs, view)
	if dirty.Empty() {
		return
	}
	style := StyleFor(s)
	if style.Erase {
		destinationOut(layer, p.mask, dirty)
	} else {
		draw.DrawMask(layer, dirty, image.NewUniform(style.Color), image.Point{}, p.mask, dirty.Min, draw.Over)
	}
	clearAlpha(p.mask, dirty)
}

// scan fills the mask with the coverage of segs and returns the touched area.
func (p *Painter) scan(segs []Segment, view viewport.Transform) image.Rectangle {
	var dirty image.Rectangle
	origin := p.mask.Bounds().Min
	for _, sg := range segs {
		a, c, b := view.ToScreen(sg.From), view.ToScreen(sg.Ctrl), view.ToScreen(sg.To)
		w := sg.Width * view.Scale
		p.dasher.SetStroke(fixed.Int26_6(w*64), 0, rasterx.RoundCap, rasterx.RoundCap, rasterx.RoundGap, rasterx.ArcClip, nil, 0)
		p.dasher.Start(rasterx.ToFixedP(a.X-float64(origin.X), a.Y-float64(origin.Y)))
		p.dasher.QuadBezier(
			rasterx.ToFixedP(c.X-float64(origin.X), c.Y-float64(origin.Y)),
			rasterx.ToFixedP(b.X-float64(origin.X), b.Y-float64(origin.Y)),
		)
		p.dasher.Stop(false)
		p.dasher.Draw()
		p.dasher.Clear()
		dirty = dirty.Union(segmentRect(a, c, b, w))
	}
	return dirty.Intersect(p.mask.Bounds())
}

func segmentRect(a, c, b viewport.Point, w float64) image.Rectangle {
	pad := w/2 + 1
	minX := math.Min(a.X, math.Min(b.X, c.X)) - pad
	minY := math.Min(a.Y, math.Min(b.Y, c.Y)) - pad
	maxX := math.Max(a.X, math.Max(b.X, c.X)) + pad
	maxY := math.Max(a.Y, math.Max(b.Y, c.Y)) + pad
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

// destinationOut scales every premultiplied channel of dst by the inverse
// coverage of mask.
func destinationOut(dst *image.RGBA, mask *image.Alpha, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		mo := mask.PixOffset(r.Min.X, y)
		do := dst.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x, mo, do = x+1, mo+1, do+4 {
			m := uint32(mask.Pix[mo])
			if m == 0 {
				continue
			}
			keep := 255 - m
			for i := 0; i < 4; i++ {
				dst.Pix[do+i] = uint8((uint32(dst.Pix[do+i])*keep + 127) / 255)
			}
		}
	}
}

func clearAlpha(m *image.Alpha, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		o := m.PixOffset(r.Min.X, y)
		clear(m.Pix[o : o+r.Dx()])
	}
}
