// Package state holds the whiteboard document and the operations that
// mutate it: the page store, snapshot history and the Board that ties them
// to tools and pointer input.
package state

import (
	"errors"
	"image"
	"time"

	"github.com/charmbracelet/log"

	"SmartBoard/internal/viewport"
)

// Tool is the active input tool.
type Tool string

const (
	ToolSelect      Tool = "select"
	ToolPen         Tool = "pen"
	ToolHighlighter Tool = "highlighter"
	ToolEraser      Tool = "eraser"
	ToolShapes      Tool = "shapes"
	ToolText        Tool = "text"
	ToolSticky      Tool = "sticky"
	ToolImage       Tool = "image"
	ToolHand        Tool = "hand"
	ToolLaser       Tool = "laser"
)

// Tools lists every tool in toolbar order.
var Tools = []Tool{
	ToolSelect, ToolPen, ToolHighlighter, ToolEraser, ToolShapes,
	ToolText, ToolSticky, ToolImage, ToolHand, ToolLaser,
}

// Default pressure used when the input device reports none.
const DefaultPressure = 0.5

// PenStyle configures the pen tool.
type PenStyle struct {
	Color     string
	Size      float64
	Smoothing bool
	Pressure  bool
}

// HighlighterStyle configures the highlighter tool.
type HighlighterStyle struct {
	Color string
	Size  float64
	Alpha float64
}

// ShapeStyle configures the shapes tool.
type ShapeStyle struct {
	Kind   Kind
	Stroke string
	Fill   string
	Width  float64
}

// Options configures a new Board.
type Options struct {
	Pen          PenStyle
	Highlighter  HighlighterStyle
	Shape        ShapeStyle
	EraserSize   float64
	MinZoom      float64
	MaxZoom      float64
	HistoryLimit int

	// Post marshals a function onto the goroutine that owns the board.
	// Nil decodes images synchronously.
	Post   func(func())
	Logger *log.Logger
	Now    func() time.Time
}

// DefaultOptions returns the stock tool styles.
func DefaultOptions() Options {
	return Options{
		Pen:          PenStyle{Color: "#22D3EE", Size: 4, Smoothing: true, Pressure: true},
		Highlighter:  HighlighterStyle{Color: "#FDE047", Size: 20, Alpha: 0.35},
		Shape:        ShapeStyle{Kind: KindRect, Stroke: "#22D3EE", Fill: "#00000000", Width: 2},
		EraserSize:   24,
		MinZoom:      viewport.DefaultMinScale,
		MaxZoom:      viewport.DefaultMaxScale,
		HistoryLimit: DefaultHistoryLimit,
	}
}

// Drawing is the in-progress pointer session. At most one of Stroke and
// Shape is set while Active.
type Drawing struct {
	Active bool
	Stroke *Stroke
	Shape  *Object
}

// Board is the whole application state. All methods must be called from
// the goroutine that owns the board.
type Board struct {
	tool        Tool
	pen         PenStyle
	highlighter HighlighterStyle
	shape       ShapeStyle
	eraserSize  float64
	grid        bool

	view    *viewport.Transform
	pages   *PageStore
	history *History
	loader  *Loader
	images  map[string]image.Image

	drawing  Drawing
	start    time.Time
	origin   Point
	spacePan bool
	panning  bool
	panFrom  viewport.Point
	laser    *viewport.Point
	selected string

	now func() time.Time
	log *log.Logger

	// OnChange fires after every change that needs a re-render.
	OnChange func()
	// OnEditText fires when the text tool places a new text object.
	OnEditText func(id, text string)
	// OnRequestImage fires when the image tool is used at a logical point.
	OnRequestImage func(at viewport.Point)
}

// NewBoard returns a board with one blank page and the initial history entry.
func NewBoard(opts Options) *Board {
	def := DefaultOptions()
	if opts.Pen.Size <= 0 {
		opts.Pen = def.Pen
	}
	if opts.Highlighter.Size <= 0 {
		opts.Highlighter = def.Highlighter
	}
	if opts.Shape.Kind == "" {
		opts.Shape = def.Shape
	}
	if opts.EraserSize <= 0 {
		opts.EraserSize = def.EraserSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	b := &Board{
		tool:        ToolPen,
		pen:         opts.Pen,
		highlighter: opts.Highlighter,
		shape:       opts.Shape,
		eraserSize:  opts.EraserSize,
		view:        viewport.New(opts.MinZoom, opts.MaxZoom),
		pages:       NewPageStore(),
		history:     NewHistory(opts.HistoryLimit),
		loader:      NewLoader(opts.Post, logger),
		images:      make(map[string]image.Image),
		now:         opts.Now,
		log:         logger.WithPrefix("board"),
	}
	b.record("init")
	return b
}

func (b *Board) changed() {
	if b.OnChange != nil {
		b.OnChange()
	}
}

// record stores the post-mutation state as one history entry.
func (b *Board) record(label string) {
	b.history.Record(b.pages.Snapshot(label))
	b.log.Debug("recorded", "label", label, "entries", b.history.Len(), "ptr", b.history.Pointer())
}

// Tool returns the active tool.
func (b *Board) Tool() Tool { return b.tool }

// SetTool switches tools, abandoning any drawing in progress.
func (b *Board) SetTool(t Tool) {
	b.CancelDrawing()
	if t != ToolLaser {
		b.laser = nil
	}
	if t != ToolSelect {
		b.selected = ""
	}
	b.tool = t
	b.changed()
}

// Pen returns the pen style.
func (b *Board) Pen() PenStyle { return b.pen }

// SetPen replaces the pen style.
func (b *Board) SetPen(p PenStyle) {
	if p.Size > 0 {
		b.pen = p
	}
}

// Highlighter returns the highlighter style.
func (b *Board) Highlighter() HighlighterStyle { return b.highlighter }

// SetHighlighter replaces the highlighter style.
func (b *Board) SetHighlighter(h HighlighterStyle) {
	if h.Size > 0 {
		b.highlighter = h
	}
}

// ShapeStyle returns the shapes tool style.
func (b *Board) ShapeStyle() ShapeStyle { return b.shape }

// SetShapeStyle replaces the shapes tool style.
func (b *Board) SetShapeStyle(s ShapeStyle) {
	if s.Kind.IsShape() {
		b.shape = s
	}
}

// SetColor sets the colour of the active colour-bearing tool.
func (b *Board) SetColor(c string) {
	switch b.tool {
	case ToolHighlighter:
		b.highlighter.Color = c
	case ToolShapes:
		b.shape.Stroke = c
	default:
		b.pen.Color = c
	}
}

// SetSize sets the width of the active tool.
func (b *Board) SetSize(size float64) {
	if size <= 0 {
		return
	}
	switch b.tool {
	case ToolHighlighter:
		b.highlighter.Size = size
	case ToolEraser:
		b.eraserSize = size
	case ToolShapes:
		b.shape.Width = size
	default:
		b.pen.Size = size
	}
}

// View returns the shared pan/zoom transform. It is read-only for callers;
// use the Board's zoom and pan operations to change it.
func (b *Board) View() viewport.Transform { return *b.view }

// Grid reports whether the background grid is shown.
func (b *Board) Grid() bool { return b.grid }

// ToggleGrid shows or hides the background grid.
func (b *Board) ToggleGrid() {
	b.grid = !b.grid
	b.changed()
}

// PointerDown starts an interaction at a screen point.
func (b *Board) PointerDown(at viewport.Point, pressure float64) {
	if b.spacePan || b.tool == ToolHand {
		b.panning = true
		b.panFrom = at
		return
	}
	p := b.view.ToLogical(at)
	switch b.tool {
	case ToolPen, ToolHighlighter, ToolEraser:
		b.beginStroke(p, pressure)
	case ToolShapes:
		b.beginShape(p)
	case ToolText:
		id := b.AddText(p, "Edit me")
		if b.OnEditText != nil {
			b.OnEditText(id, "Edit me")
		}
	case ToolSticky:
		id := b.AddSticky(p, "Note")
		if b.OnEditText != nil {
			b.OnEditText(id, "Note")
		}
	case ToolImage:
		if b.OnRequestImage != nil {
			b.OnRequestImage(p)
		}
	case ToolSelect:
		b.selected, _ = ObjectAt(b.pages.Current(), p.X, p.Y)
		b.changed()
	case ToolLaser:
		b.laser = &at
		b.changed()
	}
}

// PointerMove extends the current interaction.
func (b *Board) PointerMove(at viewport.Point, pressure float64) {
	switch {
	case b.panning:
		b.view.PanBy(at.X-b.panFrom.X, at.Y-b.panFrom.Y)
		b.panFrom = at
		b.changed()
	case b.tool == ToolLaser:
		b.laser = &at
		b.changed()
	case b.drawing.Active && b.drawing.Stroke != nil:
		b.drawing.Stroke.Points = append(b.drawing.Stroke.Points, b.sample(b.view.ToLogical(at), pressure))
		b.changed()
	case b.drawing.Active && b.drawing.Shape != nil:
		p := b.view.ToLogical(at)
		b.drawing.Shape.Geom.W = p.X - b.origin.X
		b.drawing.Shape.Geom.H = p.Y - b.origin.Y
		b.changed()
	}
}

// PointerUp commits the current interaction.
func (b *Board) PointerUp() {
	if b.panning {
		b.panning = false
		return
	}
	if !b.drawing.Active {
		return
	}
	d := b.drawing
	b.drawing = Drawing{}
	switch {
	case d.Stroke != nil:
		b.commitStroke(*d.Stroke)
	case d.Shape != nil:
		b.commitShape(*d.Shape)
	}
	b.changed()
}

// CancelDrawing drops the in-progress stroke or shape without committing.
func (b *Board) CancelDrawing() {
	if b.drawing.Active {
		b.drawing = Drawing{}
		b.changed()
	}
}

// Drawing returns the in-progress session for preview rendering.
func (b *Board) Drawing() Drawing { return b.drawing }

// BeginPan enables temporary panning (space held).
func (b *Board) BeginPan() { b.spacePan = true }

// EndPan ends temporary panning.
func (b *Board) EndPan() {
	b.spacePan = false
	b.panning = false
}

// Panning reports whether pointer drags currently pan the view.
func (b *Board) Panning() bool { return b.spacePan || b.tool == ToolHand }

// Laser returns the laser pointer position in screen coordinates.
func (b *Board) Laser() (viewport.Point, bool) {
	if b.laser == nil {
		return viewport.Point{}, false
	}
	return *b.laser, true
}

func (b *Board) sample(p viewport.Point, pressure float64) Point {
	if pressure <= 0 {
		pressure = DefaultPressure
	}
	return Point{
		X: p.X,
		Y: p.Y,
		T: float64(b.now().Sub(b.start).Microseconds()) / 1000,
		P: pressure,
	}
}

func (b *Board) beginStroke(p viewport.Point, pressure float64) {
	b.start = b.now()
	s := &Stroke{Mode: ModePen, Color: b.pen.Color, Size: b.pen.Size}
	switch b.tool {
	case ToolHighlighter:
		s.Mode = ModeHighlighter
		s.Color = b.highlighter.Color
		s.Size = b.highlighter.Size
		s.Alpha = b.highlighter.Alpha
	case ToolEraser:
		s.Mode = ModeEraser
		s.Color = "#000000"
		s.Size = b.eraserSize
	}
	s.Points = []Point{b.sample(p, pressure)}
	b.drawing = Drawing{Active: true, Stroke: s}
	b.changed()
}

func (b *Board) beginShape(p viewport.Point) {
	b.origin = Point{X: p.X, Y: p.Y}
	b.drawing = Drawing{Active: true, Shape: &Object{
		Kind:    b.shape.Kind,
		Name:    string(b.shape.Kind),
		Geom:    Geometry{X: p.X, Y: p.Y},
		Style:   Style{Stroke: b.shape.Stroke, Fill: b.shape.Fill, Width: b.shape.Width},
		Visible: true,
	}}
	b.changed()
}

// commitStroke appends s to the current page. Strokes with fewer than two
// samples draw nothing and are dropped without a history entry.
func (b *Board) commitStroke(s Stroke) {
	if len(s.Points) < 2 {
		return
	}
	s.ID = NewID(prefixStroke)
	page := b.pages.Current()
	page.Strokes = append(page.Strokes, s)
	b.record("stroke")
}

// commitShape appends a shape; a click without drag adds nothing.
func (b *Board) commitShape(o Object) {
	if o.Geom.W == 0 && o.Geom.H == 0 {
		return
	}
	if o.Kind == KindRect || o.Kind == KindEllipse {
		r := ObjectBounds(o)
		o.Geom = Geometry{X: r.X, Y: r.Y, W: r.W, H: r.H}
	}
	o.ID = NewID(prefixObject)
	page := b.pages.Current()
	page.Objects = append(page.Objects, o)
	b.record("shape")
}

// AddText places a text box with its baseline near the logical point at.
func (b *Board) AddText(at viewport.Point, text string) string {
	return b.addObject("text_add", Object{
		Kind: KindText,
		Name: "Text",
		Geom: Geometry{X: at.X, Y: at.Y - 20, W: 200, H: 40},
		Style: Style{
			Stroke:    "#FFFFFF26",
			Fill:      "#FFFFFF05",
			Width:     1,
			FontSize:  18,
			TextColor: "#E6F3FF",
		},
		Text:    text,
		Visible: true,
	})
}

// AddSticky places a sticky note with its top-left corner at at.
func (b *Board) AddSticky(at viewport.Point, text string) string {
	return b.addObject("sticky_add", Object{
		Kind: KindSticky,
		Name: "Sticky",
		Geom: Geometry{X: at.X, Y: at.Y, W: 180, H: 140},
		Style: Style{
			Stroke:    "#EAB308",
			Fill:      "#FDE68A",
			Width:     1,
			FontSize:  16,
			TextColor: "#1F2937",
		},
		Text:    text,
		Visible: true,
	})
}

func (b *Board) addObject(label string, o Object) string {
	o.ID = NewID(prefixObject)
	page := b.pages.Current()
	page.Objects = append(page.Objects, o)
	b.record(label)
	b.changed()
	return o.ID
}

// maxImageSide bounds the initial size of a placed image.
const maxImageSide = 480

// AddImage decodes data asynchronously and, if the page that was current at
// request time is still current, places the image at the logical point at.
// Undecodable data is dropped.
func (b *Board) AddImage(at viewport.Point, data []byte) {
	pageID := b.pages.Current().ID
	id := NewID(prefixObject)
	buf := append([]byte(nil), data...)
	b.loader.Load(id, buf, func() bool { return b.pages.Current().ID == pageID }, func(img image.Image) {
		w, h := float64(img.Bounds().Dx()), float64(img.Bounds().Dy())
		if w <= 0 || h <= 0 {
			return
		}
		if side := max(w, h); side > maxImageSide {
			w, h = w*maxImageSide/side, h*maxImageSide/side
		}
		b.images[id] = img
		page := b.pages.Current()
		page.Objects = append(page.Objects, Object{
			ID:      id,
			Kind:    KindImage,
			Name:    "Image",
			Geom:    Geometry{X: at.X, Y: at.Y, W: w, H: h},
			Image:   buf,
			Visible: true,
		})
		b.record("image_add")
		b.changed()
	})
}

// SetText replaces the text of a text or sticky object.
func (b *Board) SetText(id, text string) error {
	o, err := b.object(id)
	if err != nil {
		return err
	}
	if o.Locked {
		return ErrObjectLocked
	}
	if o.Text == text {
		return nil
	}
	o.Text = text
	b.record("text_edit")
	b.changed()
	return nil
}

// DeleteObject removes an object from the current page.
func (b *Board) DeleteObject(id string) error {
	page := b.pages.Current()
	i := page.ObjectIndex(id)
	if i < 0 {
		return ErrObjectNotFound
	}
	if page.Objects[i].Locked {
		return ErrObjectLocked
	}
	page.Objects = append(page.Objects[:i], page.Objects[i+1:]...)
	if b.selected == id {
		b.selected = ""
	}
	b.record("delete_obj")
	b.changed()
	return nil
}

// DeleteSelected removes the selected object, if any and unlocked.
func (b *Board) DeleteSelected() {
	if b.selected == "" {
		return
	}
	if err := b.DeleteObject(b.selected); err != nil {
		b.log.Debug("delete selected refused", "id", b.selected, "err", err)
	}
}

// Selected returns the selected object id.
func (b *Board) Selected() string { return b.selected }

// Select marks an object on the current page as selected; an empty id clears.
func (b *Board) Select(id string) error {
	if id != "" {
		if _, err := b.object(id); err != nil {
			return err
		}
	}
	b.selected = id
	b.changed()
	return nil
}

// ToggleVisible hides or shows an object. Hidden objects keep their
// z-order position. Not a history entry.
func (b *Board) ToggleVisible(id string) error {
	o, err := b.object(id)
	if err != nil {
		return err
	}
	o.Visible = !o.Visible
	b.changed()
	return nil
}

// ToggleLock locks or unlocks an object. Not a history entry.
func (b *Board) ToggleLock(id string) error {
	o, err := b.object(id)
	if err != nil {
		return err
	}
	o.Locked = !o.Locked
	b.changed()
	return nil
}

func (b *Board) object(id string) (*Object, error) {
	page := b.pages.Current()
	i := page.ObjectIndex(id)
	if i < 0 {
		return nil, ErrObjectNotFound
	}
	return &page.Objects[i], nil
}

// AddPage inserts a blank page after the current one and switches to it.
func (b *Board) AddPage() {
	b.CancelDrawing()
	b.pages.Add(b.pages.Index())
	b.afterPageChange("add_page")
}

// DuplicatePage copies the current page into a new page after it.
func (b *Board) DuplicatePage() {
	b.CancelDrawing()
	if _, err := b.pages.Duplicate(b.pages.Index()); err != nil {
		b.log.Debug("duplicate refused", "err", err)
		return
	}
	b.afterPageChange("duplicate_page")
}

// DeletePage removes page i. Deleting the last remaining page is refused.
func (b *Board) DeletePage(i int) bool {
	b.CancelDrawing()
	if !b.pages.Delete(i) {
		b.log.Debug("delete page refused", "index", i, "pages", b.pages.Len())
		return false
	}
	b.afterPageChange("delete_page")
	return true
}

// DeleteCurrentPage removes the current page.
func (b *Board) DeleteCurrentPage() bool { return b.DeletePage(b.pages.Index()) }

// SwitchPage makes page i current.
func (b *Board) SwitchPage(i int) error {
	if i == b.pages.Index() {
		return nil
	}
	b.CancelDrawing()
	if err := b.pages.Switch(i); err != nil {
		return err
	}
	b.afterPageChange("switch_page")
	return nil
}

// NextPage moves to the following page, staying put on the last one.
func (b *Board) NextPage() { b.movePage(1) }

// PrevPage moves to the preceding page, staying put on the first one.
func (b *Board) PrevPage() { b.movePage(-1) }

func (b *Board) movePage(delta int) {
	b.CancelDrawing()
	if b.pages.Move(delta) {
		b.afterPageChange("switch_page")
	}
}

// ClearPage removes every stroke and object from the current page.
func (b *Board) ClearPage() {
	b.CancelDrawing()
	cleared, err := b.pages.Clear(b.pages.Index())
	if err != nil || !cleared {
		return
	}
	b.record("clear_page")
	b.changed()
}

func (b *Board) afterPageChange(label string) {
	b.selected = ""
	b.record(label)
	b.ensureImages()
	b.changed()
}

// Undo restores the previous history entry.
func (b *Board) Undo() bool {
	b.CancelDrawing()
	snap, ok := b.history.Undo()
	if !ok {
		return false
	}
	b.restore(snap)
	return true
}

// Redo restores the next history entry.
func (b *Board) Redo() bool {
	b.CancelDrawing()
	snap, ok := b.history.Redo()
	if !ok {
		return false
	}
	b.restore(snap)
	return true
}

func (b *Board) restore(snap Snapshot) {
	b.pages.Restore(snap)
	b.selected = ""
	b.ensureImages()
	b.changed()
}

// CanUndo reports whether Undo would change anything.
func (b *Board) CanUndo() bool { return b.history.CanUndo() }

// CanRedo reports whether Redo would change anything.
func (b *Board) CanRedo() bool { return b.history.CanRedo() }

// HistoryLabels lists the recorded action labels, oldest first.
func (b *Board) HistoryLabels() []string { return b.history.Labels() }

// ZoomAbout sets the zoom keeping the logical point under pivot fixed.
func (b *Board) ZoomAbout(pivot viewport.Point, scale float64) {
	b.view.ZoomAbout(pivot, scale)
	b.changed()
}

// ZoomBy multiplies the zoom around pivot.
func (b *Board) ZoomBy(pivot viewport.Point, factor float64) {
	b.view.ZoomBy(pivot, factor)
	b.changed()
}

// SetZoom sets the zoom around the screen origin, clamped.
func (b *Board) SetZoom(scale float64) {
	b.view.SetScale(scale)
	b.changed()
}

// PanBy shifts the view by a screen delta.
func (b *Board) PanBy(dx, dy float64) {
	b.view.PanBy(dx, dy)
	b.changed()
}

// Fit frames the current page's content in a viewport of the given size.
func (b *Board) Fit(view viewport.Size) {
	b.view.Fit(ContentBounds(b.pages.Current()), view, 32)
	b.changed()
}

// ResetView restores zoom 1 without pan.
func (b *Board) ResetView() {
	b.view.Reset()
	b.changed()
}

// PageCount returns the number of pages.
func (b *Board) PageCount() int { return b.pages.Len() }

// PageIndex returns the current page index.
func (b *Board) PageIndex() int { return b.pages.Index() }

// CurrentPage returns the live current page for rendering. It must not be
// modified or retained past the current event.
func (b *Board) CurrentPage() *Page { return b.pages.Current() }

// Pages returns a deep copy of every page.
func (b *Board) Pages() []Page { return b.pages.Pages() }

// Load replaces the document, resets history to it and starts decoding
// images of the current page.
func (b *Board) Load(pages []Page, index int) {
	b.CancelDrawing()
	b.pages.Restore(Snapshot{Pages: pages, PageIndex: index})
	b.history.Reset()
	b.images = make(map[string]image.Image)
	b.selected = ""
	b.record("load")
	b.ensureImages()
	b.changed()
}

// Image returns a decoded image by key: an object id or BackgroundKey.
func (b *Board) Image(key string) (image.Image, bool) {
	img, ok := b.images[key]
	return img, ok
}

// BackgroundKey is the image cache key of a page background.
func BackgroundKey(pageID string) string { return "bg:" + pageID }

// ensureImages requests decoding of every image on the current page that
// is not cached or in flight.
func (b *Board) ensureImages() {
	page := b.pages.Current()
	pageID := page.ID
	stillCurrent := func() bool { return b.pages.Current().ID == pageID }
	want := func(key string, data []byte) {
		if len(data) == 0 || b.loader.Pending(key) {
			return
		}
		if _, ok := b.images[key]; ok {
			return
		}
		b.loader.Load(key, data, stillCurrent, func(img image.Image) {
			b.images[key] = img
			b.changed()
		})
	}
	if page.BG != nil {
		want(BackgroundKey(pageID), page.BG.Data)
	}
	for _, o := range page.Objects {
		if o.Kind == KindImage {
			want(o.ID, o.Image)
		}
	}
}

// IsNotFound reports whether err means a missing page or object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound) || errors.Is(err, ErrPageOutOfRange)
}
