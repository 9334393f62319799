package net

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// session is the write side of one browser connection. Frames replace
// each other, so a slow client only ever sees the latest one.
type session struct {
	conn   *websocket.Conn
	log    *log.Logger
	frames chan []byte
	texts  chan []byte
	done   chan struct{}
	once   sync.Once
}

func newSession(conn *websocket.Conn, logger *log.Logger) *session {
	return &session{
		conn:   conn,
		log:    logger,
		frames: make(chan []byte, 1),
		texts:  make(chan []byte, 64),
		done:   make(chan struct{}),
	}
}

func (s *session) sendFrame(data []byte) {
	for {
		select {
		case s.frames <- data:
			return
		case <-s.done:
			return
		default:
		}
		select {
		case <-s.frames:
		default:
		}
	}
}

func (s *session) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Warn("encode message failed", "err", err)
		return
	}
	select {
	case s.texts <- data:
	case <-s.done:
	default:
		s.log.Debug("dropping message for slow client")
	}
}

func (s *session) close() {
	s.once.Do(func() { close(s.done) })
}

func (s *session) writeLoop() {
	defer s.close()
	for {
		var (
			kind int
			data []byte
		)
		select {
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case data = <-s.frames:
			kind = websocket.BinaryMessage
		case data = <-s.texts:
			kind = websocket.TextMessage
		}
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(kind, data); err != nil {
			s.log.Debug("write failed", "err", err)
			return
		}
	}
}
