// Package push notifies capture-page clients over WebSocket the moment
// their verification session resolves, so the page can stop polling and
// render the outcome immediately.
package push

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kozaktomas/facevote/internal/database"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Event is pushed to subscribers of a session when it resolves.
type Event struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Verified  bool   `json:"verified"`
	Timestamp string `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains WebSocket subscribers keyed by session ID and broadcasts
// resolution events to them. It implements session.Notifier.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*client]bool

	upgrader websocket.Upgrader
}

// NewHub creates a new push hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The capture page may be opened from any origin; the session ID
			// in the URL is the capability.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SessionResolved broadcasts the terminal state to everyone watching the
// session. Slow subscribers are dropped rather than blocking the caller.
func (h *Hub) SessionResolved(s *database.VerificationSession) {
	event := Event{
		SessionID: s.ID,
		Status:    s.Status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if s.Result != nil {
		event.Verified = s.Result.Verified
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("failed to marshal push event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.sessions[s.ID] {
		select {
		case c.send <- payload:
		default:
			close(c.send)
			delete(h.sessions[s.ID], c)
		}
	}
}

// Serve upgrades the connection and subscribes it to the given session ID.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 8)}
	h.register(sessionID, c)

	go c.writePump()
	c.readPump(func() { h.unregister(sessionID, c) })
}

func (h *Hub) register(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[*client]bool)
	}
	h.sessions[sessionID][c] = true
}

func (h *Hub) unregister(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.sessions[sessionID]; ok {
		if clients[c] {
			delete(clients, c)
			close(c.send)
			if len(clients) == 0 {
				delete(h.sessions, sessionID)
			}
		}
	}
}

// Subscribers returns the number of connections watching a session.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// readPump discards inbound frames; the protocol is push-only. It exists to
// process pongs and to detect the peer going away.
func (c *client) readPump(onClose func()) {
	defer func() {
		onClose()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("websocket error: %v", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
