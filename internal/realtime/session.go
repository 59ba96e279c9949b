package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/trenches/ip-venue/internal/logger"
)

const (
	// sendBuffer bounds the per-session outbound queue; a client that
	// cannot drain it gets disconnected rather than stalling broadcasts
	sendBuffer = 256

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// wsSession wraps one gorilla websocket connection. Messages queue onto a
// buffered channel drained by a single writer goroutine, so Send never
// blocks the broadcaster and per-session ordering follows queue order.
type wsSession struct {
	id        string
	conn      *websocket.Conn
	send      chan Message
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(conn *websocket.Conn) *wsSession {
	return &wsSession{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Message, sendBuffer),
		done: make(chan struct{}),
	}
}

// ID implements Session
func (s *wsSession) ID() string {
	return s.id
}

// Send implements Session. A full queue drops the connection, not the
// broadcast.
func (s *wsSession) Send(msg Message) {
	select {
	case s.send <- msg:
	case <-s.done:
	default:
		logger.Warn("Dropping slow realtime session", zap.String("session_id", s.id))
		s.close()
	}
}

// close is safe to call from any goroutine, any number of times
func (s *wsSession) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// writePump drains the send queue onto the wire with ping keepalives
func (s *wsSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				logger.Debug("Realtime write failed", zap.String("session_id", s.id), zap.Error(err))
				s.close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		case <-s.done:
			return
		}
	}
}
