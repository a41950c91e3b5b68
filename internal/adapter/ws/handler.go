// Package ws implements the WebSocket adapter streaming run observations to clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/Strob0t/NetBoxAssistant/internal/port/broadcast"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// conn wraps a single WebSocket connection. A non-empty threadID limits the
// connection to events of that thread.
type conn struct {
	ws       *websocket.Conn
	cancel   context.CancelFunc
	threadID string
}

// Hub manages all active WebSocket connections and broadcasts messages.
type Hub struct {
	mu          sync.RWMutex
	conns       map[*conn]struct{}
	allowOrigin []string
}

var _ broadcast.Broadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub. allowOrigin lists extra origin patterns
// accepted on upgrade; with none, only same-host origins are accepted.
func NewHub(allowOrigin ...string) *Hub {
	return &Hub{
		conns:       make(map[*conn]struct{}),
		allowOrigin: allowOrigin,
	}
}

// HandleWS upgrades the request to a WebSocket. The optional thread_id query
// parameter subscribes the client to a single thread.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.allowOrigin,
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	c := &conn{ws: ws, cancel: cancel, threadID: r.URL.Query().Get("thread_id")}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("websocket connected", "remote", r.RemoteAddr, "thread_id", c.threadID)

	// Read loop (to detect disconnects and consume pings)
	go func() {
		defer func() {
			h.remove(c)
			_ = ws.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends a message to every connection subscribed to threadID.
// An empty threadID reaches every connection.
func (h *Hub) Broadcast(ctx context.Context, threadID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.conns {
		if c.threadID != "" && threadID != "" && c.threadID != threadID {
			continue
		}
		if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
			slog.Debug("websocket write failed", "error", err)
			go h.remove(c)
		}
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		slog.Info("websocket disconnected", "thread_id", c.threadID)
	}
}
