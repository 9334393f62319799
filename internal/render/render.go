// Package render composites a board page into a raster frame: board colour,
// grid, page background, the stroke layer, then vector objects and previews.
package render

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/charmbracelet/log"
	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"SmartBoard/internal/smooth"
	"SmartBoard/internal/state"
	"SmartBoard/internal/viewport"
)

// ImageSource resolves decoded images by cache key.
type ImageSource interface {
	Image(key string) (image.Image, bool)
}

// Frame is everything needed to draw one picture of a page.
type Frame struct {
	Page     *state.Page
	View     viewport.Transform
	Drawing  state.Drawing
	Images   ImageSource
	Grid     bool
	Selected string
	Laser    *viewport.Point
	Smooth   smooth.Options
}

// Options are the fixed colours of the board surface.
type Options struct {
	Background string
	GridColor  string
	GridStep   float64
	GridAlpha  float64
}

// DefaultOptions returns the dark board theme.
func DefaultOptions() Options {
	return Options{
		Background: "#0B1220",
		GridColor:  "#24404F",
		GridStep:   32,
		GridAlpha:  0.25,
	}
}

// Renderer draws frames. It keeps scratch buffers between calls and is not
// safe for concurrent use.
type Renderer struct {
	opts    Options
	font    *text.FontSource
	faces   map[float64]text.Face
	painter *smooth.Painter
	layer   *image.RGBA
	log     *log.Logger
}

// New returns a renderer using the bundled Go font for text.
func New(opts Options, logger *log.Logger) (*Renderer, error) {
	if logger == nil {
		logger = log.Default()
	}
	def := DefaultOptions()
	if opts.Background == "" {
		opts.Background = def.Background
	}
	if opts.GridColor == "" {
		opts.GridColor = def.GridColor
	}
	if opts.GridStep <= 0 {
		opts.GridStep = def.GridStep
	}
	if opts.GridAlpha <= 0 {
		opts.GridAlpha = def.GridAlpha
	}
	src, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	return &Renderer{
		opts:  opts,
		font:  src,
		faces: make(map[float64]text.Face),
		log:   logger.WithPrefix("render"),
	}, nil
}

// Render draws f into a new image of the given size.
func (r *Renderer) Render(f Frame, size image.Point) *image.RGBA {
	if size.X <= 0 || size.Y <= 0 {
		return image.NewRGBA(image.Rectangle{})
	}
	dc := gg.NewContext(size.X, size.Y)
	defer dc.Close()

	dc.ClearWithColor(gg.Hex(r.opts.Background))
	if f.Grid {
		r.drawGrid(dc, f.View, size)
	}
	if f.Page != nil {
		r.drawBackground(dc, f)
		r.drawStrokes(dc, f, size)
		for i := range f.Page.Objects {
			o := &f.Page.Objects[i]
			if !o.Visible {
				continue
			}
			r.drawObject(dc, f, o)
		}
		if f.Selected != "" {
			if i := f.Page.ObjectIndex(f.Selected); i >= 0 && f.Page.Objects[i].Visible {
				r.drawSelection(dc, f.View, f.Page.Objects[i])
			}
		}
	}
	if d := f.Drawing; d.Active && d.Shape != nil {
		r.drawObject(dc, f, d.Shape)
	}
	if f.Laser != nil {
		drawLaser(dc, *f.Laser)
	}
	return toRGBA(dc.Image())
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

func (r *Renderer) drawGrid(dc *gg.Context, view viewport.Transform, size image.Point) {
	step := r.opts.GridStep * view.Scale
	if step < 4 {
		return
	}
	c := smooth.ParseColor(r.opts.GridColor)
	c.A = uint8(math.Round(float64(c.A) * r.opts.GridAlpha))
	dc.SetColor(c)
	dc.SetLineWidth(1)
	off := view.GridOffset(step)
	for x := off.X; x < float64(size.X); x += step {
		dc.DrawLine(x, 0, x, float64(size.Y))
	}
	for y := off.Y; y < float64(size.Y); y += step {
		dc.DrawLine(0, y, float64(size.X), y)
	}
	if err := dc.Stroke(); err != nil {
		r.log.Debug("grid stroke failed", "err", err)
	}
}

func (r *Renderer) drawBackground(dc *gg.Context, f Frame) {
	if f.Page.BG == nil || f.Images == nil {
		return
	}
	img, ok := f.Images.Image(state.BackgroundKey(f.Page.ID))
	if !ok {
		return
	}
	b := img.Bounds()
	at := f.View.ToScreen(viewport.Point{})
	dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		X:             at.X,
		Y:             at.Y,
		DstWidth:      float64(b.Dx()) * f.View.Scale,
		DstHeight:     float64(b.Dy()) * f.View.Scale,
		Interpolation: gg.InterpBilinear,
		BlendMode:     gg.BlendNormal,
	})
}

// drawStrokes rasterises committed strokes and the in-progress stroke into
// a transparent layer so the eraser only removes ink, then lays the layer
// over the base.
func (r *Renderer) drawStrokes(dc *gg.Context, f Frame, size image.Point) {
	active := f.Drawing.Active && f.Drawing.Stroke != nil
	if len(f.Page.Strokes) == 0 && !active {
		return
	}
	bounds := image.Rect(0, 0, size.X, size.Y)
	if r.layer == nil || r.layer.Bounds() != bounds {
		r.layer = image.NewRGBA(bounds)
		r.painter = smooth.NewPainter(bounds, f.Smooth)
	} else {
		clear(r.layer.Pix)
		r.painter.SetOptions(f.Smooth)
	}
	for _, s := range f.Page.Strokes {
		r.painter.Draw(r.layer, s, f.View)
	}
	if active {
		r.painter.Draw(r.layer, *f.Drawing.Stroke, f.View)
	}
	dc.DrawImageEx(gg.ImageBufFromImage(r.layer), gg.DrawImageOptions{
		Interpolation: gg.InterpNearest,
		BlendMode:     gg.BlendNormal,
	})
}

func (r *Renderer) face(size float64) text.Face {
	size = math.Round(size*2) / 2
	if f, ok := r.faces[size]; ok {
		return f
	}
	f := r.font.Face(size)
	r.faces[size] = f
	return f
}
