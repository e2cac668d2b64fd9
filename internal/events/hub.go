package events

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// registerMessage is the only client-to-server message the hub accepts.
type registerMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// ackMessage acknowledges a successful registration.
type ackMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// conn wraps a websocket connection with a write lock. gorilla permits
// only one concurrent writer per connection.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *conn) close() {
	_ = c.ws.Close()
}

// Hub maps session ids to live websocket connections and pushes
// progress events to them. Delivery is best-effort: events emitted for
// an unregistered session are dropped, and send failures on a dead
// connection never propagate to the caller.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*conn
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Browser clients connect from the frontend origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:   logger,
		sessions: make(map[string]*conn),
	}
}

// ServeHTTP upgrades the request and runs the connection's read loop
// until the peer disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &conn{ws: ws}
	defer func() {
		h.Unregister(c)
		c.close()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg registerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Warn("discarding malformed websocket message", "error", err)
			continue
		}
		if msg.Type == "register" && msg.SessionID != "" {
			h.Register(msg.SessionID, c)
		}
	}
}

// Register stores c under sessionID and acknowledges it. An existing
// connection for the same session is closed first, so at most one
// connection is retained per session id.
func (h *Hub) Register(sessionID string, c *conn) {
	h.mu.Lock()
	previous := h.sessions[sessionID]
	h.sessions[sessionID] = c
	h.mu.Unlock()

	if previous != nil && previous != c {
		previous.close()
	}

	h.logger.Info("session registered", "session_id", sessionID)

	if err := c.writeJSON(ackMessage{Type: "registered", SessionID: sessionID}); err != nil {
		h.logger.Warn("failed to send registration ack", "session_id", sessionID, "error", err)
	}
}

// Unregister removes the entry holding c, if any. Idempotent.
func (h *Hub) Unregister(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sessionID, stored := range h.sessions {
		if stored == c {
			delete(h.sessions, sessionID)
			h.logger.Info("session disconnected", "session_id", sessionID)
			return
		}
	}
}

// Emit serializes event to the connection registered for sessionID.
// No connection, or a failed send, means the event is dropped.
func (h *Hub) Emit(sessionID string, event Event) {
	h.mu.Lock()
	c := h.sessions[sessionID]
	h.mu.Unlock()

	if c == nil {
		return
	}
	if err := c.writeJSON(event); err != nil {
		h.logger.Debug("dropping event for dead connection",
			"session_id", sessionID, "type", event.Type, "error", err)
	}
}

// Count returns the number of registered connections.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}
