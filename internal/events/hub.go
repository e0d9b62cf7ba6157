// Package events pushes job and device health changes to websocket
// subscribers. Clients reconnect and re-pull state; the stream is advisory.
package events

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/raspscan/raspscan/internal/model"
)

const writeWait = 10 * time.Second

// Event is the wire envelope for every pushed message.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
	At      string `json:"at"`
}

// Hub fans events out to connected websocket clients. A slow client is
// dropped rather than allowed to stall the rest.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: map[*client]struct{}{},
	}
}

// ServeHTTP upgrades the request and registers the subscriber.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 32)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", total)

	go h.writeLoop(c)
	go h.readLoop(c)
}

// Broadcast sends one event to every subscriber.
func (h *Hub) Broadcast(eventType string, payload any) {
	raw, err := json.Marshal(Event{
		Type:    eventType,
		Payload: payload,
		At:      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		h.logger.Error("event marshal failed", "type", eventType, "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- raw:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// PublishJob broadcasts a job status change.
func (h *Hub) PublishJob(j model.Job) {
	h.Broadcast("job_updated", j)
}

// PublishHealth broadcasts a device online/offline transition.
func (h *Hub) PublishHealth(deviceID, name string, online bool) {
	h.Broadcast("device_health", map[string]any{
		"device_id": deviceID,
		"name":      name,
		"online":    online,
	})
}

// ClientCount reports current subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.drop(c)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
}

// readLoop discards inbound frames; the stream is one-way. Read errors mean
// the peer is gone.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}
