package net

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Inbound message types.
const (
	MsgPointer = "pointer"
	MsgWheel   = "wheel"
	MsgKey     = "key"
	MsgResize  = "resize"
	MsgCommand = "command"
	MsgTool    = "tool"
	MsgText    = "text"
	MsgSetText = "set_text"
	MsgImage   = "image"

	// Object messages act on the object named by ID on the current page.
	MsgSelect        = "select"
	MsgToggleVisible = "toggle_visible"
	MsgToggleLock    = "toggle_lock"
	MsgDeleteObject  = "delete_object"
)

// Outbound message types. Frames are sent as binary PNG messages.
const (
	MsgStatus       = "status"
	MsgEdit         = "edit"
	MsgRequestImage = "request_image"
	MsgError        = "error"
)

// Pointer phases.
const (
	PhaseDown = "down"
	PhaseMove = "move"
	PhaseUp   = "up"
)

// Commands accepted in a command message.
const (
	CmdUndo          = "undo"
	CmdRedo          = "redo"
	CmdAddPage       = "add_page"
	CmdDuplicatePage = "duplicate_page"
	CmdDeletePage    = "delete_page"
	CmdNextPage      = "next_page"
	CmdPrevPage      = "prev_page"
	CmdSwitchPage    = "switch_page"
	CmdClearPage     = "clear_page"
	CmdFit           = "fit"
	CmdGrid          = "grid"
	CmdZoomReset     = "zoom_reset"
	CmdSave          = "save"
)

var errUnknownMessage = errors.New("unknown message type")

// Message is one client-to-server message. Which fields are meaningful
// depends on Type. Pointer and wheel positions are screen pixels; text and
// image positions are logical board coordinates.
type Message struct {
	Type     string  `json:"type"`
	Phase    string  `json:"phase,omitempty"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
	Pressure float64 `json:"pressure,omitempty"`
	DY       float64 `json:"dy,omitempty"`
	Key      string  `json:"key,omitempty"`
	Ctrl     bool    `json:"ctrl,omitempty"`
	Shift    bool    `json:"shift,omitempty"`
	Alt      bool    `json:"alt,omitempty"`
	Meta     bool    `json:"meta,omitempty"`
	Down     bool    `json:"down,omitempty"`
	W        int     `json:"w,omitempty"`
	H        int     `json:"h,omitempty"`
	Name     string  `json:"name,omitempty"`
	Index    int     `json:"index,omitempty"`
	ID       string  `json:"id,omitempty"`
	Text     string  `json:"text,omitempty"`
	Sticky   bool    `json:"sticky,omitempty"`
	Data     string  `json:"data,omitempty"`
}

// ParseMessage decodes and validates a client message.
func ParseMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode message: %w", err)
	}
	switch m.Type {
	case MsgPointer:
		if m.Phase != PhaseDown && m.Phase != PhaseMove && m.Phase != PhaseUp {
			return m, fmt.Errorf("pointer phase %q", m.Phase)
		}
	case MsgWheel, MsgKey, MsgResize, MsgCommand, MsgTool, MsgText, MsgSetText, MsgImage, MsgSelect:
	case MsgToggleVisible, MsgToggleLock, MsgDeleteObject:
		if m.ID == "" {
			return m, fmt.Errorf("%s without id", m.Type)
		}
	default:
		return m, fmt.Errorf("%w %q", errUnknownMessage, m.Type)
	}
	return m, nil
}

// ImageBytes decodes the base64 payload of an image message. A data URL
// prefix is accepted.
func (m Message) ImageBytes() ([]byte, error) {
	s := m.Data
	if _, payload, ok := strings.Cut(s, ","); ok {
		s = payload
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("image payload: %w", err)
	}
	return data, nil
}

// Status describes the board after a change.
type Status struct {
	Type     string   `json:"type"`
	Page     int      `json:"page"`
	Pages    int      `json:"pages"`
	Zoom     float64  `json:"zoom"`
	Tool     string   `json:"tool"`
	Grid     bool     `json:"grid"`
	CanUndo  bool     `json:"can_undo"`
	CanRedo  bool     `json:"can_redo"`
	Selected string   `json:"selected,omitempty"`
	History  []string `json:"history,omitempty"`
	Layers   []Layer  `json:"layers"`
}

// Layer lists one object of the current page, bottom first.
type Layer struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Name    string `json:"name,omitempty"`
	Visible bool   `json:"visible"`
	Locked  bool   `json:"locked"`
}

// Notice is a server-to-client request or report.
type Notice struct {
	Type string  `json:"type"`
	ID   string  `json:"id,omitempty"`
	Text string  `json:"text,omitempty"`
	X    float64 `json:"x,omitempty"`
	Y    float64 `json:"y,omitempty"`
}
