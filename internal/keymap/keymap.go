// Package keymap maps key presses to board actions. Key names follow the
// browser KeyboardEvent.key values; the desktop front end translates its
// own key names before resolving.
package keymap

import "strings"

// Action is a keyboard-triggered board operation.
type Action string

const (
	ToolSelect      Action = "tool_select"
	ToolPen         Action = "tool_pen"
	ToolHighlighter Action = "tool_highlighter"
	ToolEraser      Action = "tool_eraser"
	ToolText        Action = "tool_text"
	ToolShapes      Action = "tool_shapes"
	ToolImage       Action = "tool_image"
	ToolSticky      Action = "tool_sticky"
	ToolLaser       Action = "tool_laser"
	Fit             Action = "fit"
	Grid            Action = "grid"
	PanStart        Action = "pan_start"
	Undo            Action = "undo"
	Redo            Action = "redo"
	Save            Action = "save"
	NextPage        Action = "next_page"
	PrevPage        Action = "prev_page"
	DeleteSelected  Action = "delete_selected"
)

// Mods are the modifier keys held during a press. Ctrl and Meta are both
// treated as the platform command modifier.
type Mods struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Meta  bool
}

func (m Mods) command() bool { return m.Ctrl || m.Meta }

var plain = map[string]Action{
	"v":        ToolSelect,
	"p":        ToolPen,
	"h":        ToolHighlighter,
	"e":        ToolEraser,
	"t":        ToolText,
	"s":        ToolShapes,
	"i":        ToolImage,
	"n":        ToolSticky,
	"l":        ToolLaser,
	"f":        Fit,
	"g":        Grid,
	" ":        PanStart,
	"pagedown": NextPage,
	"pageup":   PrevPage,
	"delete":   DeleteSelected,
}

// Resolve returns the action bound to key with mods.
func Resolve(key string, mods Mods) (Action, bool) {
	k := strings.ToLower(key)
	if k == "space" || k == "spacebar" {
		k = " "
	}
	if mods.command() {
		switch {
		case k == "z" && mods.Shift:
			return Redo, true
		case k == "z":
			return Undo, true
		case k == "y":
			return Redo, true
		case k == "s":
			return Save, true
		}
		return "", false
	}
	if mods.Alt {
		return "", false
	}
	a, ok := plain[k]
	return a, ok
}

// Binding is one row of the shortcut table.
type Binding struct {
	Keys   string
	Action Action
}

// Bindings lists the shortcuts for help output.
func Bindings() []Binding {
	return []Binding{
		{"V", ToolSelect}, {"P", ToolPen}, {"H", ToolHighlighter}, {"E", ToolEraser},
		{"T", ToolText}, {"S", ToolShapes}, {"I", ToolImage}, {"N", ToolSticky},
		{"L", ToolLaser}, {"F", Fit}, {"G", Grid}, {"Space (hold)", PanStart},
		{"Mod+Z", Undo}, {"Mod+Shift+Z", Redo}, {"Mod+S", Save},
		{"PageDown", NextPage}, {"PageUp", PrevPage}, {"Delete", DeleteSelected},
	}
}
