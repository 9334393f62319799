package ui

import (
	"image"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"SmartBoard/internal/keymap"
	"SmartBoard/internal/render"
	"SmartBoard/internal/smooth"
	"SmartBoard/internal/state"
	"SmartBoard/internal/viewport"
)

const zoomStep = 1.1

// BoardWidget shows a board and feeds it pointer, wheel and key input.
// Fyne runs event handlers and raster generators on its main goroutine,
// which is the only goroutine that touches the board.
type BoardWidget struct {
	widget.BaseWidget
	board    *state.Board
	renderer *render.Renderer
	raster   *canvas.Raster

	// pixels per fyne unit, as last seen by the raster
	scale float64

	mu   sync.Mutex
	last *image.RGBA

	// OnChange fires after every board change, once the frame is queued.
	OnChange func()

	// modifiers reports the modifier keys currently held.
	modifiers func() fyne.KeyModifier
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ fyne.Scrollable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)
var _ desktop.Hoverable = (*BoardWidget)(nil)
var _ desktop.Keyable = (*BoardWidget)(nil)

func NewBoardWidget(board *state.Board, r *render.Renderer) *BoardWidget {
	b := &BoardWidget{board: board, renderer: r, scale: 1, modifiers: currentModifiers}
	b.raster = canvas.NewRaster(b.draw)
	b.raster.SetMinSize(fyne.NewSize(300, 300))
	board.OnChange = func() {
		b.raster.Refresh()
		if b.OnChange != nil {
			b.OnChange()
		}
	}
	b.ExtendBaseWidget(b)
	return b
}

// Board returns the board being shown.
func (b *BoardWidget) Board() *state.Board { return b.board }

func (b *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(b.raster)
}

func (b *BoardWidget) draw(w, h int) image.Image {
	if size := b.Size(); size.Width > 0 {
		b.scale = float64(w) / float64(size.Width)
	}
	pen := b.board.Pen()
	f := render.Frame{
		Page:     b.board.CurrentPage(),
		View:     b.board.View(),
		Drawing:  b.board.Drawing(),
		Images:   b.board,
		Grid:     b.board.Grid(),
		Selected: b.board.Selected(),
		Smooth:   smooth.Options{Smoothing: pen.Smoothing, Pressure: pen.Pressure},
	}
	if at, ok := b.board.Laser(); ok {
		f.Laser = &at
	}
	img := b.renderer.Render(f, image.Pt(w, h))
	b.mu.Lock()
	b.last = img
	b.mu.Unlock()
	return img
}

// Snapshot returns the last drawn frame, or nil before the first draw.
// It is safe to call from any goroutine.
func (b *BoardWidget) Snapshot() image.Image {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last == nil {
		return nil
	}
	return b.last
}

// ViewSize is the widget size in board screen pixels.
func (b *BoardWidget) ViewSize() viewport.Size {
	size := b.Size()
	return viewport.Size{W: float64(size.Width) * b.scale, H: float64(size.Height) * b.scale}
}

func (b *BoardWidget) toScreen(p fyne.Position) viewport.Point {
	return viewport.Point{X: float64(p.X) * b.scale, Y: float64(p.Y) * b.scale}
}

// ToLogical maps a widget position to board coordinates.
func (b *BoardWidget) ToLogical(p fyne.Position) viewport.Point {
	view := b.board.View()
	return view.ToLogical(b.toScreen(p))
}

func (b *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if c := fyne.CurrentApp().Driver().CanvasForObject(b); c != nil {
		c.Focus(b)
	}
	if e.Button == desktop.MouseButtonTertiary {
		b.board.BeginPan()
	}
	b.board.PointerDown(b.toScreen(e.Position), state.DefaultPressure)
}

func (b *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	b.board.PointerUp()
	if e.Button == desktop.MouseButtonTertiary {
		b.board.EndPan()
	}
}

func (b *BoardWidget) Dragged(e *fyne.DragEvent) {
	b.board.PointerMove(b.toScreen(e.Position), state.DefaultPressure)
}

func (b *BoardWidget) DragEnd() {}

func (b *BoardWidget) MouseIn(*desktop.MouseEvent) {}
func (b *BoardWidget) MouseOut()                   {}

// MouseMoved drives the laser, which follows the pointer without a press.
func (b *BoardWidget) MouseMoved(e *desktop.MouseEvent) {
	if b.board.Tool() == state.ToolLaser {
		b.board.PointerMove(b.toScreen(e.Position), 0)
	}
}

func (b *BoardWidget) Scrolled(e *fyne.ScrollEvent) {
	switch {
	case e.Scrolled.DY > 0:
		b.board.ZoomBy(b.toScreen(e.Position), zoomStep)
	case e.Scrolled.DY < 0:
		b.board.ZoomBy(b.toScreen(e.Position), 1/zoomStep)
	}
}

func (b *BoardWidget) FocusGained()            {}
func (b *BoardWidget) FocusLost()              {}
func (b *BoardWidget) TypedRune(rune)          {}
func (b *BoardWidget) TypedKey(*fyne.KeyEvent) {}

// KeyDown sees every press, including ones that are also shortcuts.
// Presses with Ctrl or Super held belong to the window's shortcuts.
func (b *BoardWidget) KeyDown(e *fyne.KeyEvent) {
	mods := keyMods(b.modifiers())
	if mods.Ctrl || mods.Meta {
		return
	}
	if a, ok := keymap.Resolve(keyName(e.Name), mods); ok {
		keymap.Apply(b.board, a, b.ViewSize())
	}
}

func (b *BoardWidget) KeyUp(e *fyne.KeyEvent) {
	keymap.Release(b.board, keyName(e.Name))
}

func currentModifiers() fyne.KeyModifier {
	if app := fyne.CurrentApp(); app != nil {
		if d, ok := app.Driver().(desktop.Driver); ok {
			return d.CurrentKeyModifiers()
		}
	}
	return 0
}

func keyMods(m fyne.KeyModifier) keymap.Mods {
	return keymap.Mods{
		Ctrl:  m&fyne.KeyModifierControl != 0,
		Shift: m&fyne.KeyModifierShift != 0,
		Alt:   m&fyne.KeyModifierAlt != 0,
		Meta:  m&fyne.KeyModifierSuper != 0,
	}
}

// keyName maps fyne key names onto keymap's.
func keyName(k fyne.KeyName) string {
	switch k {
	case fyne.KeyPageUp:
		return "pageup"
	case fyne.KeyPageDown:
		return "pagedown"
	}
	return string(k)
}
