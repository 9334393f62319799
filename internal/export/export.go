// Package export writes board pages as PNG, PDF and SVG files.
package export

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"SmartBoard/internal/render"
	"SmartBoard/internal/smooth"
	"SmartBoard/internal/state"
	"SmartBoard/internal/viewport"
)

// PDFName is the file name of a PDF export.
const PDFName = "smartboard.pdf"

// PNGName returns the file name of page n (1-based) as PNG.
func PNGName(n int) string { return fmt.Sprintf("smartboard_page_%d.png", n) }

// SVGName returns the file name of page n (1-based) as SVG.
func SVGName(n int) string { return fmt.Sprintf("smartboard_page_%d.svg", n) }

// Renderer draws a frame; *render.Renderer satisfies it.
type Renderer interface {
	Render(f render.Frame, size image.Point) *image.RGBA
}

// Options controls how pages are framed.
type Options struct {
	// Size is the output size in pixels.
	Size image.Point
	// View, when set, is used as is instead of fitting each page's content.
	View   *viewport.Transform
	Grid   bool
	Smooth smooth.Options
	// Images resolves decoded images. Nil decodes each page's images.
	Images render.ImageSource
}

// DefaultSize is the output size when Options.Size is zero.
var DefaultSize = image.Pt(1600, 1000)

const fitPadding = 32

// minFitScale lets large pages shrink into the output instead of being
// cropped at the interactive zoom floor.
const minFitScale = 0.01

func (o Options) size() image.Point {
	if o.Size.X <= 0 || o.Size.Y <= 0 {
		return DefaultSize
	}
	return o.Size
}

// Frame builds the render frame for page p.
func Frame(p *state.Page, opts Options) render.Frame {
	size := opts.size()
	var view viewport.Transform
	if opts.View != nil {
		view = *opts.View
	} else {
		view = *viewport.New(minFitScale, viewport.DefaultMaxScale)
		view.Fit(state.ContentBounds(p), viewport.Size{W: float64(size.X), H: float64(size.Y)}, fitPadding)
	}
	images := opts.Images
	if images == nil {
		images = DecodePage(p)
	}
	return render.Frame{Page: p, View: view, Images: images, Grid: opts.Grid, Smooth: opts.Smooth}
}

// RenderPage draws page p.
func RenderPage(r Renderer, p *state.Page, opts Options) *image.RGBA {
	return r.Render(Frame(p, opts), opts.size())
}

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// ExportPNG writes every page to dir as smartboard_page_<n>.png and returns
// the written paths.
func ExportPNG(ctx context.Context, r Renderer, pages []state.Page, dir string, opts Options) ([]string, error) {
	var paths []string
	for i := range pages {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		path := filepath.Join(dir, PNGName(i+1))
		if err := writeFile(path, func(w io.Writer) error {
			return WritePNG(w, RenderPage(r, &pages[i], opts))
		}); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ExportSVG writes every page to dir as smartboard_page_<n>.svg.
func ExportSVG(ctx context.Context, pages []state.Page, dir string, so smooth.Options) ([]string, error) {
	var paths []string
	for i := range pages {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		path := filepath.Join(dir, SVGName(i+1))
		if err := writeFile(path, func(w io.Writer) error {
			return WriteSVG(w, &pages[i], so)
		}); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// decoded is an ImageSource over eagerly decoded images.
type decoded map[string]image.Image

func (d decoded) Image(key string) (image.Image, bool) {
	img, ok := d[key]
	return img, ok
}

// DecodePage decodes the background and image objects of p. Images that
// fail to decode are left out and simply not drawn.
func DecodePage(p *state.Page) render.ImageSource {
	d := decoded{}
	if p.BG != nil {
		if img, err := state.DecodeImage(p.BG.Data); err == nil {
			d[state.BackgroundKey(p.ID)] = img
		}
	}
	for _, o := range p.Objects {
		if o.Kind != state.KindImage || len(o.Image) == 0 {
			continue
		}
		if img, err := state.DecodeImage(o.Image); err == nil {
			d[o.ID] = img
		}
	}
	return d
}
