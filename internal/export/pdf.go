package export

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"SmartBoard/internal/state"
)

// pxToPt maps output pixels to PDF points at 96 dpi.
const pxToPt = 72.0 / 96.0

// WritePDF renders every page and writes them as one PDF, one board page per
// PDF page. Pages are embedded as images so erased ink stays erased.
func WritePDF(ctx context.Context, w io.Writer, r Renderer, pages []state.Page, opts Options) error {
	size := opts.size()
	wd, ht := float64(size.X)*pxToPt, float64(size.Y)*pxToPt
	orientation := "L"
	if ht > wd {
		orientation = "P"
	}
	p := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: orientation,
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: wd, Ht: ht},
	})
	p.SetCreator("SmartBoard", true)
	p.SetTitle("SmartBoard", true)
	p.SetAutoPageBreak(false, 0)

	for i := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, RenderPage(r, &pages[i], opts)); err != nil {
			return fmt.Errorf("encode page %d: %w", i+1, err)
		}
		name := fmt.Sprintf("page%d", i+1)
		imgOpts := gofpdf.ImageOptions{ImageType: "PNG"}
		p.AddPage()
		p.RegisterImageOptionsReader(name, imgOpts, &buf)
		p.ImageOptions(name, 0, 0, wd, ht, false, imgOpts, 0, "")
		if err := p.Error(); err != nil {
			return fmt.Errorf("pdf page %d: %w", i+1, err)
		}
	}
	if err := p.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// ExportPDF writes smartboard.pdf into dir and returns its path.
func ExportPDF(ctx context.Context, r Renderer, pages []state.Page, dir string, opts Options) (string, error) {
	path := filepath.Join(dir, PDFName)
	err := writeFile(path, func(w io.Writer) error {
		return WritePDF(ctx, w, r, pages, opts)
	})
	return path, err
}
