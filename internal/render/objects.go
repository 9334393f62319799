package render

import (
	"math"
	"strings"

	"github.com/gogpu/gg"

	"SmartBoard/internal/smooth"
	"SmartBoard/internal/state"
	"SmartBoard/internal/viewport"
)

const (
	shapeRadius = 8
	boxRadius   = 6
	textInsetX  = 10
	textInsetY  = 5
	lineSpacing = 1.25
	// arrowHead is the head length in multiples of the line width.
	arrowHead = 6
)

// screenRect maps an object's geometry to screen space, normalised.
func screenRect(view viewport.Transform, g state.Geometry) (x, y, w, h float64) {
	a := view.ToScreen(viewport.Point{X: g.X, Y: g.Y})
	w, h = g.W*view.Scale, g.H*view.Scale
	x, y = a.X, a.Y
	if w < 0 {
		x, w = x+w, -w
	}
	if h < 0 {
		y, h = y+h, -h
	}
	return x, y, w, h
}

func (r *Renderer) drawObject(dc *gg.Context, f Frame, o *state.Object) {
	switch o.Kind {
	case state.KindRect:
		x, y, w, h := screenRect(f.View, o.Geom)
		dc.DrawRoundedRectangle(x, y, w, h, shapeRadius*f.View.Scale)
		r.paint(dc, o.Style, f.View.Scale)
	case state.KindEllipse:
		x, y, w, h := screenRect(f.View, o.Geom)
		dc.DrawEllipse(x+w/2, y+h/2, w/2, h/2)
		r.paint(dc, o.Style, f.View.Scale)
	case state.KindLine, state.KindArrow:
		r.drawLine(dc, f.View, o)
	case state.KindText, state.KindSticky:
		r.drawTextBox(dc, f.View, o)
	case state.KindImage:
		r.drawImage(dc, f, o)
	default:
		r.log.Debug("unknown object kind", "kind", o.Kind, "id", o.ID)
	}
}

// paint fills then strokes the current path.
func (r *Renderer) paint(dc *gg.Context, st state.Style, scale float64) {
	if fill := smooth.ParseColor(st.Fill); st.Fill != "" && fill.A > 0 {
		dc.SetColor(fill)
		if err := dc.FillPreserve(); err != nil {
			r.log.Debug("fill failed", "err", err)
		}
	}
	if st.Stroke == "" || st.Width <= 0 {
		dc.ClearPath()
		return
	}
	dc.SetColor(smooth.ParseColor(st.Stroke))
	dc.SetLineWidth(st.Width * scale)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)
	if err := dc.Stroke(); err != nil {
		r.log.Debug("stroke failed", "err", err)
	}
}

func (r *Renderer) drawLine(dc *gg.Context, view viewport.Transform, o *state.Object) {
	a := view.ToScreen(viewport.Point{X: o.Geom.X, Y: o.Geom.Y})
	b := view.ToScreen(viewport.Point{X: o.Geom.X + o.Geom.W, Y: o.Geom.Y + o.Geom.H})
	width := math.Max(o.Style.Width, 1) * view.Scale
	col := smooth.ParseColor(o.Style.Stroke)

	end := b
	if o.Kind == state.KindArrow {
		// Stop the shaft at the head's base so the round cap stays hidden.
		dx, dy := b.X-a.X, b.Y-a.Y
		if l := math.Hypot(dx, dy); l > 0 {
			head := math.Min(arrowHead*width, l)
			end = viewport.Point{X: b.X - dx/l*head*0.8, Y: b.Y - dy/l*head*0.8}
		}
	}
	dc.SetColor(col)
	dc.SetLineWidth(width)
	dc.SetLineCap(gg.LineCapRound)
	dc.DrawLine(a.X, a.Y, end.X, end.Y)
	if err := dc.Stroke(); err != nil {
		r.log.Debug("line stroke failed", "err", err)
	}
	if o.Kind == state.KindArrow {
		r.drawArrowHead(dc, a, b, width)
	}
}

func (r *Renderer) drawArrowHead(dc *gg.Context, from, tip viewport.Point, width float64) {
	dx, dy := tip.X-from.X, tip.Y-from.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	ux, uy := dx/l, dy/l
	head := math.Min(arrowHead*width, l)
	half := head / 2
	bx, by := tip.X-ux*head, tip.Y-uy*head
	dc.MoveTo(tip.X, tip.Y)
	dc.LineTo(bx-uy*half, by+ux*half)
	dc.LineTo(bx+uy*half, by-ux*half)
	dc.ClosePath()
	if err := dc.Fill(); err != nil {
		r.log.Debug("arrow head fill failed", "err", err)
	}
}

func (r *Renderer) drawTextBox(dc *gg.Context, view viewport.Transform, o *state.Object) {
	x, y, w, h := screenRect(view, o.Geom)
	dc.DrawRoundedRectangle(x, y, w, h, boxRadius*view.Scale)
	r.paint(dc, o.Style, view.Scale)
	if o.Text == "" {
		return
	}

	size := o.Style.FontSize
	if size <= 0 {
		size = 16
	}
	px := size * view.Scale
	if px < 3 {
		return
	}
	dc.Push()
	defer dc.Pop()
	dc.DrawRectangle(x, y, w, h)
	dc.Clip()
	dc.SetFont(r.face(px))
	dc.SetColor(smooth.ParseColor(o.Style.TextColor))
	tx := x + textInsetX*view.Scale
	ty := y + textInsetY*view.Scale + px
	for _, line := range strings.Split(o.Text, "\n") {
		if ty-px > y+h {
			break
		}
		dc.DrawString(line, tx, ty)
		ty += px * lineSpacing
	}
}

func (r *Renderer) drawImage(dc *gg.Context, f Frame, o *state.Object) {
	if f.Images == nil {
		return
	}
	img, ok := f.Images.Image(o.ID)
	if !ok {
		return
	}
	x, y, w, h := screenRect(f.View, o.Geom)
	dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		X:             x,
		Y:             y,
		DstWidth:      w,
		DstHeight:     h,
		Interpolation: gg.InterpBilinear,
		BlendMode:     gg.BlendNormal,
	})
}

func (r *Renderer) drawSelection(dc *gg.Context, view viewport.Transform, o state.Object) {
	b := state.ObjectBounds(o)
	x, y, w, h := screenRect(view, state.Geometry{X: b.X, Y: b.Y, W: b.W, H: b.H})
	dc.SetColor(smooth.ParseColor("#38BDF8"))
	dc.SetLineWidth(1)
	dc.SetDash(4, 3)
	dc.DrawRectangle(x-4, y-4, w+8, h+8)
	if err := dc.Stroke(); err != nil {
		r.log.Debug("selection stroke failed", "err", err)
	}
	dc.SetDash()
}

func drawLaser(dc *gg.Context, at viewport.Point) {
	dc.SetColor(smooth.ParseColor("#EF444466"))
	dc.DrawCircle(at.X, at.Y, 12)
	_ = dc.Fill()
	dc.SetColor(smooth.ParseColor("#EF4444"))
	dc.DrawCircle(at.X, at.Y, 5)
	_ = dc.Fill()
}
