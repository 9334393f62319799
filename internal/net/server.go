// Package net serves a board to a browser over HTTP and WebSocket and
// finds boards on the local network with mDNS.
package net

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"SmartBoard/internal/export"
	"SmartBoard/internal/keymap"
	"SmartBoard/internal/render"
	"SmartBoard/internal/smooth"
	"SmartBoard/internal/state"
	"SmartBoard/internal/store"
	"SmartBoard/internal/viewport"
)

// ErrSessionBusy is returned to a second browser while one is connected.
var ErrSessionBusy = errors.New("a session is already connected")

//go:embed static/index.html
var indexHTML []byte

const (
	framePeriod = 33 * time.Millisecond
	maxSide     = 4096
	writeWait   = 5 * time.Second
	maxMessage  = 16 << 20
)

// Options configures a Server.
type Options struct {
	Addr     string
	Size     image.Point
	Smooth   smooth.Options
	Grid     bool
	SavePath string
	Store    *store.FileStore
	// Document, when set, is loaded into the board at start.
	Document *store.Document
	// Advertise announces the board over mDNS under Name.
	Advertise bool
	Name      string
	Logger    *log.Logger
}

// Server owns one board and streams it to a single browser session.
type Server struct {
	opts     Options
	loop     *Loop
	board    *state.Board
	renderer *render.Renderer
	log      *log.Logger
	upgrader websocket.Upgrader
	busy     atomic.Bool

	// Owned by the loop goroutine.
	size    image.Point
	dirty   bool
	session *session
}

// NewServer builds the board and its loop.
func NewServer(boardOpts state.Options, renderOpts render.Options, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Size.X <= 0 || opts.Size.Y <= 0 {
		opts.Size = image.Pt(1280, 800)
	}
	r, err := render.New(renderOpts, opts.Logger)
	if err != nil {
		return nil, err
	}
	loop := NewLoop(256)
	boardOpts.Post = loop.Post
	boardOpts.Logger = opts.Logger
	s := &Server{
		opts:     opts,
		loop:     loop,
		board:    state.NewBoard(boardOpts),
		renderer: r,
		log:      opts.Logger.WithPrefix("serve"),
		size:     opts.Size,
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 1 << 16},
	}
	if opts.Document != nil {
		s.board.Load(opts.Document.Pages, opts.Document.Current)
	}
	if opts.Grid {
		s.board.ToggleGrid()
	}
	s.board.OnChange = func() { s.dirty = true }
	s.board.OnEditText = func(id, text string) {
		s.notify(Notice{Type: MsgEdit, ID: id, Text: text})
	}
	s.board.OnRequestImage = func(at viewport.Point) {
		s.notify(Notice{Type: MsgRequestImage, X: at.X, Y: at.Y})
	}
	return s, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleWS)
	r.Get("/export/page/{n}.png", s.handleExport)
	return r
}

// ListenAndServe listens on Options.Addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the board loop and HTTP server on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.loop.Run(ctx, framePeriod, s.tick)

	port := 0
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		port = addr.Port
	}
	if s.opts.Advertise && port > 0 {
		adv, err := Advertise(s.opts.Name, port, []string{"SmartBoard", "site=" + state.SiteID()})
		if err != nil {
			s.log.Warn("mDNS advertisement failed", "err", err)
		} else {
			defer adv.Shutdown()
			s.log.Info("advertising", "service", ServiceType, "port", port)
		}
	}
	if port > 0 {
		s.log.Info("serving", "addr", ln.Addr().String(), "share", ShareLink(port))
	}

	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var pages int
	if err := s.loop.Do(r.Context(), func() { pages = s.board.PageCount() }); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": "ok", "pages": pages, "session": s.busy.Load()})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		http.Error(w, "bad page number", http.StatusBadRequest)
		return
	}
	var (
		buf    bytes.Buffer
		found  bool
		encErr error
	)
	err = s.loop.Do(r.Context(), func() {
		pages := s.board.Pages()
		if n < 1 || n > len(pages) {
			return
		}
		found = true
		img := export.RenderPage(s.renderer, &pages[n-1], export.Options{Size: s.size, Smooth: s.opts.Smooth})
		encErr = export.WritePNG(&buf, img)
	})
	switch {
	case err != nil:
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case encErr != nil:
		http.Error(w, encErr.Error(), http.StatusInternalServerError)
	case !found:
		http.Error(w, "no such page", http.StatusNotFound)
	default:
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Disposition", `inline; filename="`+export.PNGName(n)+`"`)
		w.Write(buf.Bytes())
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.busy.CompareAndSwap(false, true) {
		http.Error(w, ErrSessionBusy.Error(), http.StatusConflict)
		return
	}
	defer s.busy.Store(false)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessage)

	sess := newSession(conn, s.log)
	go sess.writeLoop()
	defer sess.close()

	if err := s.loop.Do(r.Context(), func() {
		s.session = sess
		s.dirty = true
	}); err != nil {
		return
	}
	s.log.Info("session connected", "remote", r.RemoteAddr)
	defer func() {
		// The loop may already be gone on shutdown.
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.loop.Do(ctx, func() {
			if s.session == sess {
				s.session = nil
			}
		})
		s.log.Info("session closed", "remote", r.RemoteAddr)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("read failed", "err", err)
			}
			return
		}
		msg, err := ParseMessage(data)
		if err != nil {
			s.log.Debug("bad message", "err", err)
			sess.sendJSON(Notice{Type: MsgError, Text: err.Error()})
			continue
		}
		s.loop.Post(func() { s.apply(msg) })
	}
}

// tick renders and sends a frame when the board changed.
func (s *Server) tick() {
	if !s.dirty || s.session == nil {
		return
	}
	s.dirty = false
	b := s.board
	view := b.View()
	frame := render.Frame{
		Page:     b.CurrentPage(),
		View:     view,
		Drawing:  b.Drawing(),
		Images:   b,
		Grid:     b.Grid(),
		Selected: b.Selected(),
		Smooth:   s.smoothOptions(),
	}
	if at, ok := b.Laser(); ok {
		frame.Laser = &at
	}
	img := s.renderer.Render(frame, s.size)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		s.log.Warn("frame encode failed", "err", err)
		return
	}
	s.session.sendFrame(buf.Bytes())
	s.session.sendJSON(s.status())
}

func (s *Server) smoothOptions() smooth.Options {
	p := s.board.Pen()
	return smooth.Options{Smoothing: p.Smoothing, Pressure: p.Pressure}
}

func (s *Server) status() Status {
	b := s.board
	return Status{
		Type:     MsgStatus,
		Page:     b.PageIndex() + 1,
		Pages:    b.PageCount(),
		Zoom:     b.View().Scale,
		Tool:     string(b.Tool()),
		Grid:     b.Grid(),
		CanUndo:  b.CanUndo(),
		CanRedo:  b.CanRedo(),
		Selected: b.Selected(),
		History:  b.HistoryLabels(),
		Layers:   layers(b.CurrentPage()),
	}
}

func layers(p *state.Page) []Layer {
	out := make([]Layer, 0, len(p.Objects))
	for _, o := range p.Objects {
		out = append(out, Layer{ID: o.ID, Kind: string(o.Kind), Name: o.Name, Visible: o.Visible, Locked: o.Locked})
	}
	return out
}

func (s *Server) notify(n Notice) {
	if s.session != nil {
		s.session.sendJSON(n)
	}
}

// apply runs one client message against the board. It runs on the loop.
func (s *Server) apply(m Message) {
	b := s.board
	switch m.Type {
	case MsgPointer:
		at := viewport.Point{X: m.X, Y: m.Y}
		switch m.Phase {
		case PhaseDown:
			b.PointerDown(at, m.Pressure)
		case PhaseMove:
			b.PointerMove(at, m.Pressure)
		case PhaseUp:
			b.PointerUp()
		}
	case MsgWheel:
		factor := 1.1
		if m.DY > 0 {
			factor = 1 / factor
		}
		b.ZoomBy(viewport.Point{X: m.X, Y: m.Y}, factor)
	case MsgKey:
		if !m.Down {
			keymap.Release(b, m.Key)
			return
		}
		a, ok := keymap.Resolve(m.Key, keymap.Mods{Ctrl: m.Ctrl, Shift: m.Shift, Alt: m.Alt, Meta: m.Meta})
		if !ok {
			return
		}
		if a == keymap.Save {
			s.save()
			return
		}
		keymap.Apply(b, a, s.viewSize())
	case MsgResize:
		if m.W > 0 && m.H > 0 {
			s.size = image.Pt(min(m.W, maxSide), min(m.H, maxSide))
			s.dirty = true
		}
	case MsgTool:
		t := state.Tool(m.Name)
		if !slices.Contains(state.Tools, t) {
			s.notify(Notice{Type: MsgError, Text: "unknown tool " + m.Name})
			return
		}
		b.SetTool(t)
	case MsgCommand:
		s.command(m)
	case MsgText:
		at := viewport.Point{X: m.X, Y: m.Y}
		if m.Sticky {
			b.AddSticky(at, m.Text)
		} else {
			b.AddText(at, m.Text)
		}
	case MsgSetText:
		if err := b.SetText(m.ID, m.Text); err != nil {
			s.notify(Notice{Type: MsgError, ID: m.ID, Text: err.Error()})
		}
	case MsgImage:
		data, err := m.ImageBytes()
		if err != nil {
			s.notify(Notice{Type: MsgError, Text: err.Error()})
			return
		}
		b.AddImage(viewport.Point{X: m.X, Y: m.Y}, data)
	case MsgSelect, MsgToggleVisible, MsgToggleLock, MsgDeleteObject:
		s.object(m)
	}
}

func (s *Server) object(m Message) {
	b := s.board
	var err error
	switch m.Type {
	case MsgSelect:
		err = b.Select(m.ID)
	case MsgToggleVisible:
		err = b.ToggleVisible(m.ID)
	case MsgToggleLock:
		err = b.ToggleLock(m.ID)
	case MsgDeleteObject:
		err = b.DeleteObject(m.ID)
	}
	if err != nil {
		s.notify(Notice{Type: MsgError, ID: m.ID, Text: err.Error()})
	}
}

func (s *Server) command(m Message) {
	b := s.board
	switch m.Name {
	case CmdUndo:
		b.Undo()
	case CmdRedo:
		b.Redo()
	case CmdAddPage:
		b.AddPage()
	case CmdDuplicatePage:
		b.DuplicatePage()
	case CmdDeletePage:
		b.DeleteCurrentPage()
	case CmdNextPage:
		b.NextPage()
	case CmdPrevPage:
		b.PrevPage()
	case CmdSwitchPage:
		if err := b.SwitchPage(m.Index); err != nil {
			s.notify(Notice{Type: MsgError, Text: err.Error()})
		}
	case CmdClearPage:
		b.ClearPage()
	case CmdFit:
		b.Fit(s.viewSize())
	case CmdGrid:
		b.ToggleGrid()
	case CmdZoomReset:
		b.ResetView()
	case CmdSave:
		s.save()
	default:
		s.notify(Notice{Type: MsgError, Text: "unknown command " + strings.TrimSpace(m.Name)})
	}
}

func (s *Server) viewSize() viewport.Size {
	return viewport.Size{W: float64(s.size.X), H: float64(s.size.Y)}
}

// save snapshots the board on the loop and writes it in the background.
func (s *Server) save() {
	if s.opts.Store == nil {
		s.notify(Notice{Type: MsgError, Text: "saving is disabled"})
		return
	}
	doc := store.New(s.board.Pages(), s.board.PageIndex())
	path := s.opts.SavePath
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		var err error
		if path == "" {
			err = s.opts.Store.Autosave(ctx, doc)
		} else {
			err = s.opts.Store.Save(ctx, path, doc)
		}
		if err != nil {
			s.log.Error("save failed", "err", err)
			return
		}
		s.log.Info("saved", "pages", len(doc.Pages))
	}()
}

// Document returns the current board contents.
func (s *Server) Document(ctx context.Context) (store.Document, error) {
	var doc store.Document
	err := s.loop.Do(ctx, func() { doc = store.New(s.board.Pages(), s.board.PageIndex()) })
	return doc, err
}
