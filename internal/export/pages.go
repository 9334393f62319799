package export

import (
	"context"
	"fmt"

	"SmartBoard/internal/render"
	"SmartBoard/internal/state"
)

// Kind is an output format.
type Kind string

const (
	KindPNG Kind = "png"
	KindPDF Kind = "pdf"
	KindSVG Kind = "svg"
)

// Kinds lists the supported formats.
var Kinds = []Kind{KindPNG, KindPDF, KindSVG}

// Pages writes pages to dir in the given format and returns the files
// written. Raster formats get a renderer of their own, so Pages may run on
// any goroutine.
func Pages(ctx context.Context, kind Kind, pages []state.Page, dir string, ro render.Options, opts Options) ([]string, error) {
	switch kind {
	case KindSVG:
		return ExportSVG(ctx, pages, dir, opts.Smooth)
	case KindPNG, KindPDF:
	default:
		return nil, fmt.Errorf("unknown export format %q", kind)
	}
	r, err := render.New(ro, nil)
	if err != nil {
		return nil, err
	}
	if kind == KindPNG {
		return ExportPNG(ctx, r, pages, dir, opts)
	}
	path, err := ExportPDF(ctx, r, pages, dir, opts)
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}
