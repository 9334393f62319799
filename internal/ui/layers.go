package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/charmbracelet/log"

	"SmartBoard/internal/state"
)

// Layers lists the objects of the current page, topmost first, with
// select, visibility, lock and delete controls per row.
type Layers struct {
	board   *BoardWidget
	log     *log.Logger
	list    *widget.List
	content fyne.CanvasObject
}

func NewLayers(board *BoardWidget, logger *log.Logger) *Layers {
	l := &Layers{board: board, log: logger}
	l.list = widget.NewList(l.length, l.createRow, l.updateRow)
	l.content = container.NewBorder(widget.NewLabel("Layers"), nil, nil, nil, l.list)
	return l
}

// Content returns the panel.
func (l *Layers) Content() fyne.CanvasObject { return l.content }

// Update reloads the rows from the board.
func (l *Layers) Update() { l.list.Refresh() }

func (l *Layers) length() int { return len(l.board.Board().CurrentPage().Objects) }

// object returns the object shown in row i.
func (l *Layers) object(i widget.ListItemID) (state.Object, bool) {
	objs := l.board.Board().CurrentPage().Objects
	j := len(objs) - 1 - i
	if j < 0 || j >= len(objs) {
		return state.Object{}, false
	}
	return objs[j], true
}

func (l *Layers) createRow() fyne.CanvasObject {
	name := widget.NewButton("", nil)
	name.Importance = widget.LowImportance
	name.Alignment = widget.ButtonAlignLeading
	return container.NewBorder(nil, nil, nil,
		container.NewHBox(
			widget.NewButtonWithIcon("", theme.VisibilityIcon(), nil),
			widget.NewButton("", nil),
			widget.NewButtonWithIcon("", theme.DeleteIcon(), nil),
		),
		name,
	)
}

func (l *Layers) updateRow(i widget.ListItemID, row fyne.CanvasObject) {
	o, ok := l.object(i)
	if !ok {
		return
	}
	c := row.(*fyne.Container)
	name := c.Objects[0].(*widget.Button)
	controls := c.Objects[1].(*fyne.Container)
	visible := controls.Objects[0].(*widget.Button)
	lock := controls.Objects[1].(*widget.Button)
	del := controls.Objects[2].(*widget.Button)

	name.SetText(layerLabel(o, o.ID == l.board.Board().Selected()))
	name.OnTapped = func() { l.run("select", o.ID, l.board.Board().Select) }

	if o.Visible {
		visible.SetIcon(theme.VisibilityIcon())
	} else {
		visible.SetIcon(theme.VisibilityOffIcon())
	}
	visible.OnTapped = func() { l.run("toggle visible", o.ID, l.board.Board().ToggleVisible) }

	if o.Locked {
		lock.SetText("Unlock")
	} else {
		lock.SetText("Lock")
	}
	lock.OnTapped = func() { l.run("toggle lock", o.ID, l.board.Board().ToggleLock) }

	del.OnTapped = func() { l.run("delete", o.ID, l.board.Board().DeleteObject) }
	if o.Locked {
		del.Disable()
	} else {
		del.Enable()
	}
}

func (l *Layers) run(op, id string, fn func(string) error) {
	if err := fn(id); err != nil {
		l.log.Warn("layer action refused", "op", op, "id", id, "err", err)
	}
}

func layerLabel(o state.Object, selected bool) string {
	s := o.Name
	if s == "" {
		s = string(o.Kind)
	}
	if selected {
		s = "▸ " + s
	}
	return s
}
