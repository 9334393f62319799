package net

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"SmartBoard/internal/render"
	"SmartBoard/internal/state"
	"SmartBoard/internal/store"
	"SmartBoard/internal/viewport"
)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	opts.Logger = log.New(io.Discard)
	if opts.Size == (image.Point{}) {
		opts.Size = image.Pt(160, 120)
	}
	s, err := NewServer(state.DefaultOptions(), render.DefaultOptions(), opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

// startServer serves s on a loopback port and returns its address.
func startServer(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve: %v", err)
		}
	})
	return ln.Addr().String()
}

func dial(t *testing.T, addr string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, m Message) {
	t.Helper()
	if err := conn.WriteJSON(m); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// waitStatus reads until a status message satisfies ok.
func waitStatus(t *testing.T, conn *websocket.Conn, ok func(Status) bool) Status {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		var st Status
		if err := json.Unmarshal(data, &st); err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
		if st.Type == MsgStatus && ok(st) {
			return st
		}
	}
}

func TestSessionDrawUndo(t *testing.T) {
	s := newTestServer(t, Options{})
	conn := dial(t, startServer(t, s))

	first := waitStatus(t, conn, func(Status) bool { return true })
	if first.Pages != 1 || first.CanUndo {
		t.Fatalf("initial status = %+v", first)
	}

	send(t, conn, Message{Type: MsgPointer, Phase: PhaseDown, X: 10, Y: 10, Pressure: 0.5})
	send(t, conn, Message{Type: MsgPointer, Phase: PhaseMove, X: 40, Y: 30, Pressure: 0.5})
	send(t, conn, Message{Type: MsgPointer, Phase: PhaseUp})
	st := waitStatus(t, conn, func(st Status) bool { return st.CanUndo })
	if got := st.History[len(st.History)-1]; got != "stroke" {
		t.Fatalf("last history label = %q, want stroke", got)
	}

	send(t, conn, Message{Type: MsgCommand, Name: CmdUndo})
	waitStatus(t, conn, func(st Status) bool { return !st.CanUndo && st.CanRedo })

	send(t, conn, Message{Type: MsgCommand, Name: CmdAddPage})
	st = waitStatus(t, conn, func(st Status) bool { return st.Pages == 2 })
	if st.Page != 2 || st.CanRedo {
		t.Fatalf("after add_page status = %+v", st)
	}
}

func TestSessionKeysAndErrors(t *testing.T) {
	s := newTestServer(t, Options{})
	conn := dial(t, startServer(t, s))
	waitStatus(t, conn, func(Status) bool { return true })

	send(t, conn, Message{Type: MsgKey, Key: "h", Down: true})
	waitStatus(t, conn, func(st Status) bool { return st.Tool == string(state.ToolHighlighter) })

	send(t, conn, Message{Type: MsgTool, Name: "chisel"})
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		var n Notice
		json.Unmarshal(data, &n)
		if n.Type == MsgError {
			break
		}
	}
}

func TestSecondSessionRejected(t *testing.T) {
	s := newTestServer(t, Options{})
	addr := startServer(t, s)
	conn := dial(t, addr)
	waitStatus(t, conn, func(Status) bool { return true })

	_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if !errors.Is(err, websocket.ErrBadHandshake) {
		t.Fatalf("second dial err = %v, want bad handshake", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second dial status = %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestHTTPRoutes(t *testing.T) {
	s := newTestServer(t, Options{})
	addr := startServer(t, s)

	tests := []struct {
		path        string
		status      int
		contentType string
	}{
		{"/", http.StatusOK, "text/html; charset=utf-8"},
		{"/healthz", http.StatusOK, "application/json"},
		{"/export/page/1.png", http.StatusOK, "image/png"},
		{"/export/page/2.png", http.StatusNotFound, ""},
		{"/export/page/x.png", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get("http://" + addr + tt.path)
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.contentType != "" && resp.Header.Get("Content-Type") != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", resp.Header.Get("Content-Type"), tt.contentType)
			}
		})
	}
}

func TestApplyWithoutSession(t *testing.T) {
	s := newTestServer(t, Options{})

	s.apply(Message{Type: MsgResize, W: 10000, H: 300})
	if s.size != image.Pt(maxSide, 300) {
		t.Fatalf("size = %v, want clamped width", s.size)
	}
	s.apply(Message{Type: MsgText, X: 50, Y: 60, Text: "hi"})
	s.apply(Message{Type: MsgText, X: 50, Y: 200, Text: "note", Sticky: true})
	if got := len(s.board.CurrentPage().Objects); got != 2 {
		t.Fatalf("objects = %d, want 2", got)
	}
	s.apply(Message{Type: MsgCommand, Name: CmdUndo})
	if got := len(s.board.CurrentPage().Objects); got != 1 {
		t.Fatalf("objects after undo = %d, want 1", got)
	}

	before := s.board.View().Scale
	s.apply(Message{Type: MsgWheel, X: 10, Y: 10, DY: -1})
	if after := s.board.View().Scale; after <= before {
		t.Fatalf("wheel up scale %v -> %v, want zoom in", before, after)
	}
	s.apply(Message{Type: MsgCommand, Name: CmdZoomReset})
	if v := s.board.View(); v.Scale != 1 || v.Pan != (viewport.Point{}) {
		t.Fatalf("view after reset = %+v", s.board.View())
	}

	// Nothing to send to; the tick must not panic.
	s.dirty = true
	s.tick()
}

func TestApplyObjectMessages(t *testing.T) {
	s := newTestServer(t, Options{})
	s.apply(Message{Type: MsgText, X: 10, Y: 10, Text: "a"})
	s.apply(Message{Type: MsgText, X: 10, Y: 100, Text: "b", Sticky: true})

	st := s.status()
	if len(st.Layers) != 2 || st.Layers[1].Kind != string(state.KindSticky) {
		t.Fatalf("layers = %+v, want text then sticky", st.Layers)
	}
	id := st.Layers[0].ID

	s.apply(Message{Type: MsgSelect, ID: id})
	if got := s.board.Selected(); got != id {
		t.Fatalf("selected = %q, want %q", got, id)
	}
	s.apply(Message{Type: MsgSelect, ID: "ob_missing"})
	if got := s.board.Selected(); got != id {
		t.Fatalf("selecting a missing object changed selection to %q", got)
	}

	s.apply(Message{Type: MsgToggleVisible, ID: id})
	if l := s.status().Layers[0]; l.Visible {
		t.Fatal("object still visible after toggle_visible")
	}

	s.apply(Message{Type: MsgToggleLock, ID: id})
	s.apply(Message{Type: MsgDeleteObject, ID: id})
	if l := s.status().Layers; len(l) != 2 || !l[0].Locked {
		t.Fatalf("locked object deleted or not locked: %+v", l)
	}

	s.apply(Message{Type: MsgToggleLock, ID: id})
	s.apply(Message{Type: MsgDeleteObject, ID: id})
	if l := s.status().Layers; len(l) != 1 || l[0].ID == id {
		t.Fatalf("layers after delete = %+v", l)
	}
	if s.board.Selected() != "" {
		t.Error("deleting the selected object kept the selection")
	}
}

func TestSaveCommand(t *testing.T) {
	fs, err := store.NewFileStore(t.TempDir(), log.New(io.Discard))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	s := newTestServer(t, Options{Store: fs})
	s.apply(Message{Type: MsgText, X: 5, Y: 5, Text: "keep"})
	s.apply(Message{Type: MsgCommand, Name: CmdSave})

	deadline := time.Now().Add(5 * time.Second)
	for {
		doc, ok, err := fs.LoadAutosave(context.Background())
		if err == nil && ok && len(doc.Pages) == 1 && len(doc.Pages[0].Objects) == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("autosave never appeared: ok=%v err=%v", ok, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
