package export

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"image/color"
	"io"
	"math"
	"net/http"
	"strings"

	"SmartBoard/internal/smooth"
	"SmartBoard/internal/state"
	"SmartBoard/internal/viewport"
)

// emptyView is the SVG viewBox of a page without content.
var emptyView = viewport.Rect{W: 1280, H: 800}

// WriteSVG writes page p as a standalone SVG in logical coordinates, with
// strokes curved and sized per so. Each eraser stroke becomes a mask over
// all ink drawn before it, so repeated erasing nests masks. Objects are
// never masked.
func WriteSVG(w io.Writer, p *state.Page, so smooth.Options) error {
	vb := state.ContentBounds(p)
	if vb.Empty() {
		vb = emptyView
	} else {
		vb = viewport.Rect{X: vb.X - fitPadding, Y: vb.Y - fitPadding, W: vb.W + 2*fitPadding, H: vb.H + 2*fitPadding}
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%s %s %s %s" width="%.0f" height="%.0f">`+"\n",
		num(vb.X), num(vb.Y), num(vb.W), num(vb.H), vb.W, vb.H)

	if p.BG != nil && len(p.BG.Data) > 0 {
		fmt.Fprintf(&buf, `<image x="0" y="0" href="%s"/>`+"\n", DataURLFor(p.BG.Data, p.BG.Format))
	}

	var defs bytes.Buffer
	ink := strokeInk(p.Strokes, vb, so, &defs)
	if defs.Len() > 0 {
		buf.WriteString("<defs>\n")
		buf.Write(defs.Bytes())
		buf.WriteString("</defs>\n")
	}
	buf.WriteString(ink)

	for _, o := range p.Objects {
		if o.Visible {
			writeObject(&buf, o)
		}
	}
	buf.WriteString("</svg>\n")

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

// strokeInk returns the markup of the stroke layer, writing eraser masks
// into defs.
func strokeInk(strokes []state.Stroke, vb viewport.Rect, so smooth.Options, defs *bytes.Buffer) string {
	var ink strings.Builder
	for i, s := range strokes {
		segs := smooth.Segments(s.Points, s.Size, so)
		if len(segs) == 0 {
			continue
		}
		if s.Mode == state.ModeEraser {
			id := fmt.Sprintf("erase%d", i)
			fmt.Fprintf(defs, `<mask id="%s" maskUnits="userSpaceOnUse" x="%s" y="%s" width="%s" height="%s">`+"\n",
				id, num(vb.X), num(vb.Y), num(vb.W), num(vb.H))
			fmt.Fprintf(defs, `<rect x="%s" y="%s" width="%s" height="%s" fill="white"/>`+"\n",
				num(vb.X), num(vb.Y), num(vb.W), num(vb.H))
			writeSegments(defs, segs, `stroke="black"`)
			defs.WriteString("</mask>\n")
			prev := ink.String()
			ink.Reset()
			fmt.Fprintf(&ink, `<g mask="url(#%s)">`+"\n%s</g>\n", id, prev)
			continue
		}
		st := smooth.StyleFor(s)
		attrs := fmt.Sprintf(`stroke="%s"`, hexRGB(st.Color))
		if st.Color.A < 0xff {
			attrs += fmt.Sprintf(` opacity="%s"`, num(float64(st.Color.A)/255))
		}
		var b bytes.Buffer
		writeSegments(&b, segs, attrs)
		ink.Write(b.Bytes())
	}
	return ink.String()
}

func writeSegments(w *bytes.Buffer, segs []smooth.Segment, attrs string) {
	fmt.Fprintf(w, `<g %s fill="none" stroke-linecap="round" stroke-linejoin="round">`+"\n", attrs)
	for _, sg := range segs {
		fmt.Fprintf(w, `<path d="M%s %s Q%s %s %s %s" stroke-width="%s"/>`+"\n",
			num(sg.From.X), num(sg.From.Y), num(sg.Ctrl.X), num(sg.Ctrl.Y), num(sg.To.X), num(sg.To.Y), num(sg.Width))
	}
	w.WriteString("</g>\n")
}

func writeObject(w *bytes.Buffer, o state.Object) {
	g := o.Geom
	r := state.ObjectBounds(o)
	paint := func() string {
		fill := "none"
		if o.Style.Fill != "" {
			fill = colorAttr(o.Style.Fill)
		}
		return fmt.Sprintf(`fill="%s" stroke="%s" stroke-width="%s"`, fill, colorAttr(o.Style.Stroke), num(o.Style.Width))
	}
	switch o.Kind {
	case state.KindRect:
		fmt.Fprintf(w, `<rect x="%s" y="%s" width="%s" height="%s" rx="8" ry="8" %s/>`+"\n",
			num(r.X), num(r.Y), num(r.W), num(r.H), paint())
	case state.KindEllipse:
		fmt.Fprintf(w, `<ellipse cx="%s" cy="%s" rx="%s" ry="%s" %s/>`+"\n",
			num(r.X+r.W/2), num(r.Y+r.H/2), num(r.W/2), num(r.H/2), paint())
	case state.KindLine, state.KindArrow:
		x2, y2 := g.X+g.W, g.Y+g.H
		width := math.Max(o.Style.Width, 1)
		stroke := colorAttr(o.Style.Stroke)
		fmt.Fprintf(w, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="%s" stroke-linecap="round"/>`+"\n",
			num(g.X), num(g.Y), num(x2), num(y2), stroke, num(width))
		if o.Kind == state.KindArrow {
			if l := math.Hypot(g.W, g.H); l > 0 {
				ux, uy := g.W/l, g.H/l
				head := math.Min(6*width, l)
				bx, by := x2-ux*head, y2-uy*head
				fmt.Fprintf(w, `<polygon points="%s,%s %s,%s %s,%s" fill="%s"/>`+"\n",
					num(x2), num(y2), num(bx-uy*head/2), num(by+ux*head/2), num(bx+uy*head/2), num(by-ux*head/2), stroke)
			}
		}
	case state.KindText, state.KindSticky:
		fmt.Fprintf(w, `<rect x="%s" y="%s" width="%s" height="%s" rx="6" ry="6" %s/>`+"\n",
			num(r.X), num(r.Y), num(r.W), num(r.H), paint())
		size := o.Style.FontSize
		if size <= 0 {
			size = 16
		}
		fmt.Fprintf(w, `<text x="%s" y="%s" font-family="sans-serif" font-size="%s" fill="%s">`,
			num(r.X+10), num(r.Y+5+size), num(size), colorAttr(o.Style.TextColor))
		for i, line := range strings.Split(o.Text, "\n") {
			dy := "0"
			if i > 0 {
				dy = num(size * 1.25)
			}
			fmt.Fprintf(w, `<tspan x="%s" dy="%s">`, num(r.X+10), dy)
			xml.EscapeText(w, []byte(line))
			w.WriteString("</tspan>")
		}
		w.WriteString("</text>\n")
	case state.KindImage:
		if len(o.Image) == 0 {
			return
		}
		fmt.Fprintf(w, `<image x="%s" y="%s" width="%s" height="%s" preserveAspectRatio="none" href="%s"/>`+"\n",
			num(r.X), num(r.Y), num(r.W), num(r.H), DataURLFor(o.Image, ""))
	}
}

// DataURLFor encodes image bytes as a data URL, sniffing the type when
// format is empty.
func DataURLFor(data []byte, format string) string {
	mime := "image/" + format
	if format == "" {
		mime = http.DetectContentType(data)
	}
	var b strings.Builder
	b.WriteString("data:")
	b.WriteString(mime)
	b.WriteString(";base64,")
	enc := base64.NewEncoder(base64.StdEncoding, &b)
	enc.Write(data)
	enc.Close()
	return b.String()
}

// colorAttr converts #RRGGBBAA to an SVG colour, using rgba() when the
// colour is translucent.
func colorAttr(hex string) string {
	if hex == "" {
		return "none"
	}
	c := smooth.ParseColor(hex)
	if c.A == 0xff {
		return hexRGB(c)
	}
	if c.A == 0 {
		return "none"
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", c.R, c.G, c.B, num(float64(c.A)/255))
}

func hexRGB(c color.NRGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

func num(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}
