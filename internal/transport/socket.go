// Package transport adapts a gorilla/websocket connection to the
// match.Socket interface the core deals in, grounded on the reader/writer
// goroutine-pair idiom other retrieved websocket handlers use (a buffered
// outbound channel drained by one writer goroutine, one reader goroutine
// decoding inbound frames) rather than writing directly from handlers.
package transport

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1 << 16
	sendBuffer     = 64
)

// Envelope is the wire shape of every message: a route ("game"/"general")
// plus an action-specific payload, matching the router's dispatch key.
type Envelope struct {
	Route   string          `json:"route"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound is handed to the router for one decoded frame.
type Inbound struct {
	Route   string
	Action  string
	Payload json.RawMessage
}

// Socket wraps one live connection. It implements match.Socket.
type Socket struct {
	conn *websocket.Conn
	log  *slog.Logger

	send chan Envelope

	mu     sync.Mutex
	closed bool
}

// New starts the read/write pumps for conn and returns the Socket handle.
// onInbound is invoked from the read pump goroutine for every decoded
// frame; the caller is responsible for routing it into the per-game
// critical section (spec §5) — this package never touches game state.
func New(conn *websocket.Conn, log *slog.Logger, onInbound func(Inbound), onClose func(notByChoice bool)) *Socket {
	if log == nil {
		log = slog.Default()
	}
	s := &Socket{conn: conn, log: log, send: make(chan Envelope, sendBuffer)}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go s.writePump()
	go s.readPump(onInbound, onClose)
	return s
}

// SendJSON implements match.Socket by enqueueing an envelope for the write
// pump. It never blocks on network I/O itself (spec §5's "suspension
// points" note): when the send buffer is full, the message being sent is
// dropped with a warning log and nil is returned; nothing is retried.
func (s *Socket) SendJSON(route, action string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := Envelope{Route: route, Action: action, Payload: raw}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return websocket.ErrCloseSent
	}

	select {
	case s.send <- env:
		return nil
	default:
		s.log.Warn("dropping outbound message, send buffer full", "route", route, "action", action)
		return nil
	}
}

// Close implements match.Socket.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	close(s.send)
	return s.conn.Close()
}

func (s *Socket) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case env, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(env); err != nil {
				s.log.Warn("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Socket) readPump(onInbound func(Inbound), onClose func(notByChoice bool)) {
	notByChoice := true
	defer func() {
		s.Close()
		if onClose != nil {
			onClose(notByChoice)
		}
	}()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				notByChoice = false
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.log.Warn("dropping malformed websocket frame", "error", err)
			continue
		}
		onInbound(Inbound{Route: env.Route, Action: env.Action, Payload: env.Payload})
	}
}
