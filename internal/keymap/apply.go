package keymap

import (
	"SmartBoard/internal/state"
	"SmartBoard/internal/viewport"
)

var tools = map[Action]state.Tool{
	ToolSelect:      state.ToolSelect,
	ToolPen:         state.ToolPen,
	ToolHighlighter: state.ToolHighlighter,
	ToolEraser:      state.ToolEraser,
	ToolText:        state.ToolText,
	ToolShapes:      state.ToolShapes,
	ToolImage:       state.ToolImage,
	ToolSticky:      state.ToolSticky,
	ToolLaser:       state.ToolLaser,
}

// Apply performs a on b for a key press. view is the visible area, used by
// Fit. Save depends on the front end and is not handled; Apply reports
// whether it acted.
func Apply(b *state.Board, a Action, view viewport.Size) bool {
	if t, ok := tools[a]; ok {
		b.SetTool(t)
		return true
	}
	switch a {
	case Fit:
		b.Fit(view)
	case Grid:
		b.ToggleGrid()
	case PanStart:
		b.BeginPan()
	case Undo:
		b.Undo()
	case Redo:
		b.Redo()
	case NextPage:
		b.NextPage()
	case PrevPage:
		b.PrevPage()
	case DeleteSelected:
		b.DeleteSelected()
	default:
		return false
	}
	return true
}

// Release handles key releases; only the pan key acts on release.
func Release(b *state.Board, key string) {
	if a, ok := Resolve(key, Mods{}); ok && a == PanStart {
		b.EndPan()
	}
}
