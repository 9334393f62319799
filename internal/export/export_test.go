package export

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"SmartBoard/internal/render"
	"SmartBoard/internal/smooth"
	"SmartBoard/internal/state"
)

func testPages() []state.Page {
	a := state.NewPage()
	a.Strokes = []state.Stroke{
		{ID: "st_1", Mode: state.ModePen, Color: "#22D3EE", Size: 4, Points: []state.Point{{X: 0, Y: 0}, {X: 50, Y: 20}, {X: 100, Y: 0}}},
		{ID: "st_2", Mode: state.ModeEraser, Size: 10, Points: []state.Point{{X: 50, Y: -10}, {X: 50, Y: 30}}},
		{ID: "st_3", Mode: state.ModeHighlighter, Color: "#FDE047", Size: 20, Alpha: 0.35, Points: []state.Point{{X: 0, Y: 40}, {X: 100, Y: 40}}},
		{ID: "st_4", Mode: state.ModeEraser, Size: 10, Points: []state.Point{{X: 10, Y: -10}, {X: 10, Y: 50}}},
	}
	a.Objects = []state.Object{
		{ID: "ob_1", Kind: state.KindText, Text: "a < b\nline two", Visible: true, Geom: state.Geometry{X: 0, Y: 60, W: 200, H: 40}, Style: state.Style{FontSize: 18, TextColor: "#E6F3FF"}},
		{ID: "ob_2", Kind: state.KindArrow, Visible: true, Geom: state.Geometry{X: 0, Y: 0, W: 40, H: 40}, Style: state.Style{Stroke: "#22D3EE", Width: 2}},
		{ID: "ob_3", Kind: state.KindRect, Visible: false, Geom: state.Geometry{X: 0, Y: 0, W: 40, H: 40}},
	}
	return []state.Page{a, state.NewPage()}
}

func newRenderer(t *testing.T) *render.Renderer {
	t.Helper()
	r, err := render.New(render.DefaultOptions(), log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestNames(t *testing.T) {
	if got := PNGName(3); got != "smartboard_page_3.png" {
		t.Errorf("PNGName(3) = %q", got)
	}
	if got := SVGName(1); got != "smartboard_page_1.svg" {
		t.Errorf("SVGName(1) = %q", got)
	}
}

func TestExportPNG(t *testing.T) {
	dir := t.TempDir()
	paths, err := ExportPNG(context.Background(), newRenderer(t), testPages(), dir, Options{Size: image.Pt(320, 200)})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 || filepath.Base(paths[1]) != "smartboard_page_2.png" {
		t.Fatalf("paths = %v", paths)
	}
	f, err := os.Open(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 320 || cfg.Height != 200 {
		t.Errorf("png size = %dx%d, want 320x200", cfg.Width, cfg.Height)
	}
}

func TestExportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ExportPNG(ctx, newRenderer(t), testPages(), t.TempDir(), Options{}); err == nil {
		t.Error("expected cancellation error")
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(context.Background(), &buf, newRenderer(t), testPages(), Options{Size: image.Pt(200, 120)}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "%PDF-") {
		t.Fatalf("not a PDF: %q", out[:min(16, len(out))])
	}
}

func TestWriteSVG(t *testing.T) {
	pages := testPages()
	var buf bytes.Buffer
	if err := WriteSVG(&buf, &pages[0], smooth.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "<svg") || !strings.HasSuffix(out, "</svg>\n") {
		t.Fatal("not a standalone svg document")
	}
	if n := strings.Count(out, "<mask "); n != 2 {
		t.Errorf("masks = %d, want 2", n)
	}
	// The second eraser wraps everything drawn before it, including the
	// group masked by the first eraser.
	outer := strings.Index(out, `mask="url(#erase3)"`)
	inner := strings.Index(out, `mask="url(#erase1)"`)
	if outer < 0 || inner < 0 || outer > inner {
		t.Errorf("masks not nested: outer=%d inner=%d", outer, inner)
	}
	if !strings.Contains(out, `opacity="0.35"`) {
		t.Error("highlighter opacity missing")
	}
	if !strings.Contains(out, "a &lt; b") || !strings.Contains(out, "line two") {
		t.Error("text not escaped or missing")
	}
	if !strings.Contains(out, "<polygon") {
		t.Error("arrow head missing")
	}
	if strings.Count(out, "<rect") != 3 {
		// two mask backgrounds plus the text box; the hidden rect is skipped
		t.Errorf("rect count = %d, want 3", strings.Count(out, "<rect"))
	}
}

func TestExportSVGEmptyPage(t *testing.T) {
	dir := t.TempDir()
	paths, err := ExportSVG(context.Background(), []state.Page{state.NewPage()}, dir, smooth.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `viewBox="0 0 1280 800"`) {
		t.Errorf("empty page viewBox wrong: %s", data)
	}
}

func redPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+3] = 0xff, 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRenderPageFramesBackground(t *testing.T) {
	page := state.NewPage()
	page.BG = &state.Background{Format: "png", Data: redPNG(t, 400, 300)}
	page.Strokes = []state.Stroke{{ID: "st_1", Mode: state.ModePen, Color: "#22D3EE", Size: 4,
		Points: []state.Point{{X: 1000, Y: 1000}, {X: 1010, Y: 1005}}}}

	img := RenderPage(newRenderer(t), &page, Options{Size: image.Pt(320, 200)})
	red := 0
	for y := 0; y < 200; y++ {
		for x := 0; x < 320; x++ {
			c := img.RGBAAt(x, y)
			if c.R > 200 && c.G < 60 && c.B < 60 {
				red++
			}
		}
	}
	if red == 0 {
		t.Error("background missing from exported page")
	}

	page.Strokes = nil
	img = RenderPage(newRenderer(t), &page, Options{Size: image.Pt(320, 200)})
	// 400x300 fits 320x200 less padding at scale 136/300, centred
	for _, p := range []image.Point{{75, 38}, {245, 38}, {75, 162}, {245, 162}, {160, 100}} {
		if got := img.RGBAAt(p.X, p.Y); got.R < 200 || got.G > 60 || got.B > 60 {
			t.Errorf("pixel %v = %v, want the whole background in frame", p, got)
		}
	}
}

func TestWriteSVGFramesBackground(t *testing.T) {
	page := state.NewPage()
	page.BG = &state.Background{Format: "png", Data: redPNG(t, 400, 300)}
	var buf bytes.Buffer
	if err := WriteSVG(&buf, &page, smooth.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `viewBox="-32 -32 464 364"`) {
		t.Errorf("viewBox does not cover the background: %s", buf.String()[:120])
	}
}

func TestWriteSVGSmoothOptions(t *testing.T) {
	page := state.NewPage()
	page.Strokes = []state.Stroke{{ID: "st_1", Mode: state.ModePen, Color: "#FF0000", Size: 10,
		Points: []state.Point{{X: 0, Y: 0, P: 0.5}, {X: 20, Y: 0, P: 0.5}, {X: 40, Y: 0, P: 0.5}}}}
	svg := func(so smooth.Options) string {
		var buf bytes.Buffer
		if err := WriteSVG(&buf, &page, so); err != nil {
			t.Fatal(err)
		}
		return buf.String()
	}
	if out := svg(smooth.Options{Smoothing: true, Pressure: true}); !strings.Contains(out, `stroke-width="7"`) {
		t.Errorf("pressure on: want width 7 in %s", out)
	}
	if out := svg(smooth.Options{}); strings.Contains(out, `stroke-width="7"`) || !strings.Contains(out, `stroke-width="10"`) {
		t.Errorf("pressure off: want width 10 in %s", out)
	}
}

func TestDataURLFor(t *testing.T) {
	var buf bytes.Buffer
	png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1)))
	if got := DataURLFor(buf.Bytes(), ""); !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Errorf("DataURLFor sniffed %q", got[:30])
	}
}

func TestPages(t *testing.T) {
	dir := t.TempDir()
	want := map[Kind]int{KindPNG: 2, KindPDF: 1, KindSVG: 2}
	for _, kind := range Kinds {
		paths, err := Pages(context.Background(), kind, testPages(), dir, render.DefaultOptions(), Options{Size: image.Pt(160, 100)})
		if err != nil {
			t.Fatalf("Pages(%s): %v", kind, err)
		}
		if len(paths) != want[kind] {
			t.Fatalf("Pages(%s) wrote %v, want %d files", kind, paths, want[kind])
		}
		for _, p := range paths {
			if !strings.HasSuffix(p, "."+string(kind)) {
				t.Errorf("Pages(%s) wrote %s", kind, p)
			}
		}
	}
	if _, err := Pages(context.Background(), "bmp", testPages(), dir, render.DefaultOptions(), Options{}); err == nil {
		t.Error("Pages accepted an unknown format")
	}
}
