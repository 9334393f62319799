package state

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"reflect"
	"testing"

	"github.com/charmbracelet/log"

	"SmartBoard/internal/viewport"
)

func newTestBoard(t *testing.T) *Board {
	t.Helper()
	opts := DefaultOptions()
	opts.Logger = log.New(io.Discard)
	return NewBoard(opts)
}

func drawStroke(b *Board, pts ...viewport.Point) {
	b.PointerDown(pts[0], 0.5)
	for _, p := range pts[1:] {
		b.PointerMove(p, 0.5)
	}
	b.PointerUp()
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestBoardStrokeUndoRedo(t *testing.T) {
	b := newTestBoard(t)
	b.SetTool(ToolPen)
	drawStroke(b, viewport.Point{X: 10, Y: 10}, viewport.Point{X: 20, Y: 20}, viewport.Point{X: 30, Y: 15})

	if n := len(b.CurrentPage().Strokes); n != 1 {
		t.Fatalf("strokes = %d, want 1", n)
	}
	s := b.CurrentPage().Strokes[0]
	if s.Mode != ModePen || s.Color != "#22D3EE" || s.Size != 4 || len(s.Points) != 3 {
		t.Errorf("unexpected stroke %+v", s)
	}
	if !b.Undo() {
		t.Fatal("Undo() = false")
	}
	if n := len(b.CurrentPage().Strokes); n != 0 {
		t.Fatalf("strokes after undo = %d, want 0", n)
	}
	if !b.Redo() {
		t.Fatal("Redo() = false")
	}
	if n := len(b.CurrentPage().Strokes); n != 1 {
		t.Fatalf("strokes after redo = %d, want 1", n)
	}
	if got := b.CurrentPage().Strokes[0]; !reflect.DeepEqual(got, s) {
		t.Errorf("stroke after redo = %+v, want %+v", got, s)
	}
}

func TestBoardStrokeUsesLogicalCoordinates(t *testing.T) {
	b := newTestBoard(t)
	b.ZoomAbout(viewport.Point{}, 2)
	b.PanBy(10, 0)
	drawStroke(b, viewport.Point{X: 30, Y: 40}, viewport.Point{X: 50, Y: 40})

	p := b.CurrentPage().Strokes[0].Points[0]
	if p.X != 10 || p.Y != 20 {
		t.Errorf("first point = (%v, %v), want (10, 20)", p.X, p.Y)
	}
}

func TestBoardSinglePointStrokeDropped(t *testing.T) {
	b := newTestBoard(t)
	b.PointerDown(viewport.Point{X: 5, Y: 5}, 0.5)
	b.PointerUp()
	if n := len(b.CurrentPage().Strokes); n != 0 {
		t.Errorf("strokes = %d, want 0", n)
	}
	if b.CanUndo() {
		t.Error("a dropped stroke should not be recorded")
	}
}

func TestBoardHighlighterAndEraser(t *testing.T) {
	b := newTestBoard(t)
	b.SetTool(ToolHighlighter)
	drawStroke(b, viewport.Point{X: 0, Y: 0}, viewport.Point{X: 10, Y: 0})
	b.SetTool(ToolEraser)
	drawStroke(b, viewport.Point{X: 0, Y: 0}, viewport.Point{X: 10, Y: 0})

	got := b.CurrentPage().Strokes
	if got[0].Mode != ModeHighlighter || got[0].Alpha != 0.35 || got[0].Size != 20 {
		t.Errorf("highlighter stroke = %+v", got[0])
	}
	if got[1].Mode != ModeEraser {
		t.Errorf("eraser stroke mode = %q", got[1].Mode)
	}
}

func TestBoardShape(t *testing.T) {
	b := newTestBoard(t)
	b.SetTool(ToolShapes)
	b.PointerDown(viewport.Point{X: 100, Y: 100}, 0)
	b.PointerMove(viewport.Point{X: 40, Y: 60}, 0)
	if d := b.Drawing(); !d.Active || d.Shape == nil {
		t.Fatal("expected a shape preview")
	}
	b.PointerUp()

	objs := b.CurrentPage().Objects
	if len(objs) != 1 {
		t.Fatalf("objects = %d, want 1", len(objs))
	}
	if g := objs[0].Geom; g.X != 40 || g.Y != 60 || g.W != 60 || g.H != 40 {
		t.Errorf("rect geometry = %+v, want normalised 40,60 60x40", g)
	}

	b.PointerDown(viewport.Point{X: 5, Y: 5}, 0)
	b.PointerUp()
	if len(b.CurrentPage().Objects) != 1 {
		t.Error("zero-size shape should not be added")
	}
}

func TestBoardPagesScenario(t *testing.T) {
	b := newTestBoard(t)
	b.AddPage()
	if b.PageCount() != 2 || b.PageIndex() != 1 {
		t.Fatalf("after add: count=%d idx=%d", b.PageCount(), b.PageIndex())
	}
	if err := b.SwitchPage(0); err != nil {
		t.Fatal(err)
	}
	if !b.DeletePage(1) {
		t.Fatal("DeletePage(1) refused")
	}
	if b.PageCount() != 1 || b.PageIndex() != 0 {
		t.Fatalf("after delete: count=%d idx=%d", b.PageCount(), b.PageIndex())
	}
	if b.DeletePage(0) {
		t.Error("deleting the last page should be refused")
	}
	if err := b.SwitchPage(4); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("SwitchPage(4) err = %v", err)
	}
}

func TestBoardUndoAllReturnsToInitial(t *testing.T) {
	b := newTestBoard(t)
	initial := b.Pages()

	drawStroke(b, viewport.Point{X: 1, Y: 1}, viewport.Point{X: 9, Y: 9})
	b.AddPage()
	b.AddText(viewport.Point{X: 50, Y: 50}, "hi")
	b.DuplicatePage()
	b.ClearPage()
	b.PrevPage()

	for b.Undo() {
	}
	got := b.Pages()
	if len(got) != len(initial) || got[0].ID != initial[0].ID {
		t.Fatalf("pages after undo-all = %d (%s), want %d (%s)", len(got), got[0].ID, len(initial), initial[0].ID)
	}
	if len(got[0].Strokes) != 0 || len(got[0].Objects) != 0 {
		t.Error("initial page not restored empty")
	}
	if b.PageIndex() != 0 {
		t.Errorf("PageIndex() = %d, want 0", b.PageIndex())
	}
}

func TestBoardRecordAfterUndoClearsRedo(t *testing.T) {
	b := newTestBoard(t)
	drawStroke(b, viewport.Point{X: 1, Y: 1}, viewport.Point{X: 9, Y: 9})
	b.Undo()
	if !b.CanRedo() {
		t.Fatal("expected redo to be available")
	}
	b.AddSticky(viewport.Point{X: 10, Y: 10}, "Note")
	if b.CanRedo() {
		t.Error("new action should discard redo")
	}
}

func TestBoardTextEditAndLock(t *testing.T) {
	b := newTestBoard(t)
	var edited string
	b.OnEditText = func(id, _ string) { edited = id }
	b.SetTool(ToolText)
	b.PointerDown(viewport.Point{X: 100, Y: 100}, 0)

	if edited == "" {
		t.Fatal("OnEditText not called")
	}
	o := b.CurrentPage().Objects[0]
	if o.Kind != KindText || o.Text != "Edit me" || o.Geom.Y != 80 || o.Geom.W != 200 {
		t.Errorf("text object = %+v", o)
	}
	if err := b.SetText(edited, "hello"); err != nil {
		t.Fatal(err)
	}
	if err := b.ToggleLock(edited); err != nil {
		t.Fatal(err)
	}
	if err := b.SetText(edited, "nope"); !errors.Is(err, ErrObjectLocked) {
		t.Errorf("SetText on locked err = %v", err)
	}
	if err := b.DeleteObject(edited); !errors.Is(err, ErrObjectLocked) {
		t.Errorf("DeleteObject on locked err = %v", err)
	}
	b.ToggleLock(edited)
	if err := b.DeleteObject(edited); err != nil {
		t.Fatal(err)
	}
	if err := b.DeleteObject(edited); !IsNotFound(err) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestBoardToggleVisibleNotRecorded(t *testing.T) {
	b := newTestBoard(t)
	id := b.AddSticky(viewport.Point{}, "x")
	n := len(b.HistoryLabels())
	if err := b.ToggleVisible(id); err != nil {
		t.Fatal(err)
	}
	if b.CurrentPage().Objects[0].Visible {
		t.Error("object still visible")
	}
	if len(b.HistoryLabels()) != n {
		t.Error("visibility toggle should not add a history entry")
	}
}

func TestBoardSelectAndDelete(t *testing.T) {
	b := newTestBoard(t)
	id := b.AddSticky(viewport.Point{X: 10, Y: 10}, "x")
	b.SetTool(ToolSelect)
	b.PointerDown(viewport.Point{X: 20, Y: 20}, 0)
	if b.Selected() != id {
		t.Fatalf("Selected() = %q, want %q", b.Selected(), id)
	}
	b.DeleteSelected()
	if len(b.CurrentPage().Objects) != 0 {
		t.Error("selected object not deleted")
	}
}

func TestBoardHandPans(t *testing.T) {
	b := newTestBoard(t)
	b.SetTool(ToolHand)
	b.PointerDown(viewport.Point{X: 0, Y: 0}, 0)
	b.PointerMove(viewport.Point{X: 15, Y: -5}, 0)
	b.PointerUp()
	if v := b.View(); v.Pan.X != 15 || v.Pan.Y != -5 {
		t.Errorf("pan = %+v, want (15,-5)", v.Pan)
	}
	if len(b.CurrentPage().Strokes) != 0 {
		t.Error("panning should not draw")
	}
}

func TestBoardAddImage(t *testing.T) {
	b := newTestBoard(t)
	b.AddImage(viewport.Point{X: 5, Y: 6}, pngBytes(t, 960, 480))

	objs := b.CurrentPage().Objects
	if len(objs) != 1 || objs[0].Kind != KindImage {
		t.Fatalf("objects = %+v", objs)
	}
	if g := objs[0].Geom; g.W != 480 || g.H != 240 {
		t.Errorf("image size = %vx%v, want 480x240", g.W, g.H)
	}
	if _, ok := b.Image(objs[0].ID); !ok {
		t.Error("decoded image not cached")
	}

	b.AddImage(viewport.Point{}, []byte("not an image"))
	if len(b.CurrentPage().Objects) != 1 {
		t.Error("undecodable image should be dropped")
	}
}

func TestBoardAddImageStalePage(t *testing.T) {
	var queued []func()
	opts := DefaultOptions()
	opts.Logger = log.New(io.Discard)
	done := make(chan struct{}, 1)
	opts.Post = func(f func()) {
		queued = append(queued, f)
		done <- struct{}{}
	}
	b := NewBoard(opts)

	b.AddImage(viewport.Point{}, pngBytes(t, 4, 4))
	b.AddPage()
	<-done
	for _, f := range queued {
		f()
	}
	if b.PageCount() != 2 {
		t.Fatal("unexpected page count")
	}
	for i, p := range b.Pages() {
		if len(p.Objects) != 0 {
			t.Errorf("page %d got a stale image", i)
		}
	}
}

func TestBoardLoadResetsHistory(t *testing.T) {
	b := newTestBoard(t)
	drawStroke(b, viewport.Point{X: 1, Y: 1}, viewport.Point{X: 9, Y: 9})
	pages := []Page{NewPage(), NewPage()}
	b.Load(pages, 1)
	if b.PageCount() != 2 || b.PageIndex() != 1 {
		t.Fatalf("after load count=%d idx=%d", b.PageCount(), b.PageIndex())
	}
	if b.CanUndo() {
		t.Error("history should start fresh after Load")
	}
}

func TestContentBoundsIncludesBackground(t *testing.T) {
	p := NewPage()
	p.BG = &Background{Format: "png", Data: pngBytes(t, 400, 300)}
	if got, want := ContentBounds(&p), (viewport.Rect{W: 400, H: 300}); got != want {
		t.Errorf("background only: ContentBounds = %+v, want %+v", got, want)
	}
	p.Strokes = []Stroke{{ID: "st_1", Mode: ModePen, Size: 4, Points: []Point{{X: 1000, Y: 1000}, {X: 1010, Y: 1000}}}}
	got := ContentBounds(&p)
	if got.X != 0 || got.Y != 0 || got.X+got.W < 1010 || got.Y+got.H < 1000 {
		t.Errorf("background and stroke: ContentBounds = %+v", got)
	}
	p.BG.Data = []byte("not an image")
	if got := BackgroundBounds(&p); !got.Empty() {
		t.Errorf("undecodable background bounds = %+v, want empty", got)
	}
}

func TestBoardFit(t *testing.T) {
	b := newTestBoard(t)
	b.AddSticky(viewport.Point{X: 100, Y: 100}, "x")
	b.Fit(viewport.Size{W: 800, H: 600})
	v := b.View()
	c := v.ToScreen(viewport.Point{X: 190, Y: 170})
	if c.X < 399 || c.X > 401 || c.Y < 299 || c.Y > 301 {
		t.Errorf("content centre maps to %+v, want near (400,300)", c)
	}
}
