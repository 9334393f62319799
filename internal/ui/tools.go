package ui

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"SmartBoard/internal/smooth"
	"SmartBoard/internal/state"
	"SmartBoard/internal/viewport"
)

var swatches = []string{"#22D3EE", "#F472B6", "#A3E635", "#FDE047", "#F97316", "#E6F3FF", "#111827"}

var toolLabels = map[state.Tool]string{
	state.ToolSelect:      "Select",
	state.ToolPen:         "Pen",
	state.ToolHighlighter: "Highlight",
	state.ToolEraser:      "Eraser",
	state.ToolShapes:      "Shapes",
	state.ToolText:        "Text",
	state.ToolSticky:      "Sticky",
	state.ToolImage:       "Image",
	state.ToolHand:        "Hand",
	state.ToolLaser:       "Laser",
}

var shapeKinds = []string{string(state.KindRect), string(state.KindEllipse), string(state.KindLine), string(state.KindArrow)}

// --- Custom Widget for Color Swatches ---
type colorSwatch struct {
	widget.BaseWidget
	Hex      string
	OnTapped func(hex string)
}

func newColorSwatch(hex string, tapped func(string)) *colorSwatch {
	s := &colorSwatch{Hex: hex, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(smooth.ParseColor(s.Hex))
	rect.SetMinSize(fyne.NewSize(24, 24))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Hex)
	}
}

// Toolbar holds the tool buttons and the status line under the board.
type Toolbar struct {
	board   *BoardWidget
	tools   map[state.Tool]*widget.Button
	status  *widget.Label
	content fyne.CanvasObject
}

// NewToolbar builds the controls for board.
func NewToolbar(board *BoardWidget) *Toolbar {
	t := &Toolbar{
		board:  board,
		tools:  make(map[state.Tool]*widget.Button, len(state.Tools)),
		status: widget.NewLabel(""),
	}
	b := board.Board()

	toolBox := container.NewHBox()
	for _, tool := range state.Tools {
		btn := widget.NewButton(toolLabels[tool], func() { b.SetTool(tool) })
		t.tools[tool] = btn
		toolBox.Add(btn)
	}

	actions := widget.NewToolbar(
		widget.NewToolbarAction(theme.ContentUndoIcon(), func() { b.Undo() }),
		widget.NewToolbarAction(theme.ContentRedoIcon(), func() { b.Redo() }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ZoomOutIcon(), func() { t.zoom(1 / zoomStep) }),
		widget.NewToolbarAction(theme.ZoomInIcon(), func() { t.zoom(zoomStep) }),
		widget.NewToolbarAction(theme.ZoomFitIcon(), func() { b.Fit(board.ViewSize()) }),
		widget.NewToolbarAction(theme.GridIcon(), func() { b.ToggleGrid() }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.NavigateBackIcon(), func() { b.PrevPage() }),
		widget.NewToolbarAction(theme.NavigateNextIcon(), func() { b.NextPage() }),
		widget.NewToolbarAction(theme.ContentAddIcon(), func() { b.AddPage() }),
		widget.NewToolbarAction(theme.DeleteIcon(), func() { b.DeleteSelected() }),
	)

	// --- Color Palette ---
	colorBox := container.NewHBox()
	for _, hex := range swatches {
		colorBox.Add(newColorSwatch(hex, b.SetColor))
	}

	// --- Stroke Width Slider ---
	sizeSlider := widget.NewSlider(1, 64)
	sizeSlider.SetValue(b.Pen().Size)
	sizeSlider.OnChanged = b.SetSize
	sliderContainer := container.New(layout.NewGridWrapLayout(fyne.NewSize(150, 35)), sizeSlider)

	shapeSelect := widget.NewSelect(shapeKinds, func(kind string) {
		s := b.ShapeStyle()
		s.Kind = state.Kind(kind)
		b.SetShapeStyle(s)
	})
	shapeSelect.SetSelected(string(b.ShapeStyle().Kind))

	smoothing := widget.NewCheck("Smooth", func(on bool) {
		p := b.Pen()
		p.Smoothing = on
		b.SetPen(p)
	})
	smoothing.SetChecked(b.Pen().Smoothing)

	// --- Assemble everything ---
	t.content = container.NewVBox(
		container.NewHBox(toolBox, layout.NewSpacer()),
		container.NewHBox(
			actions,
			widget.NewSeparator(),
			colorBox,
			widget.NewSeparator(),
			widget.NewLabel("Size:"),
			sliderContainer,
			shapeSelect,
			smoothing,
			layout.NewSpacer(),
		),
	)
	t.Update()
	return t
}

// Content returns the toolbar widgets.
func (t *Toolbar) Content() fyne.CanvasObject { return t.content }

// Status returns the status line.
func (t *Toolbar) Status() *widget.Label { return t.status }

func (t *Toolbar) zoom(factor float64) {
	size := t.board.ViewSize()
	t.board.Board().ZoomBy(viewport.Point{X: size.W / 2, Y: size.H / 2}, factor)
}

// Update refreshes the active tool and the status line from the board.
func (t *Toolbar) Update() {
	b := t.board.Board()
	for tool, btn := range t.tools {
		want := widget.MediumImportance
		if tool == b.Tool() {
			want = widget.HighImportance
		}
		if btn.Importance != want {
			btn.Importance = want
			btn.Refresh()
		}
	}
	t.status.SetText(statusText(b))
}

func statusText(b *state.Board) string {
	s := fmt.Sprintf("Page %d/%d  ·  %d%%  ·  %s", b.PageIndex()+1, b.PageCount(), int(b.View().Scale*100+0.5), toolLabels[b.Tool()])
	if b.Grid() {
		s += "  ·  grid"
	}
	if sel := b.Selected(); sel != "" {
		s += "  ·  selected " + sel
	}
	return s
}
