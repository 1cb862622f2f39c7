// Package hub fans snapshots out to WebSocket clients. Every client gets
// the full state on connect and after every committed change; there is no
// incremental diffing.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"shipline/internal/snapshot"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 8
)

// message is the wire envelope pushed to clients.
type message struct {
	Type string             `json:"type"`
	Data *snapshot.Snapshot `json:"data"`
}

type client struct {
	conn *websocket.Conn
	role string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// Hub tracks connected clients and pushes role-filtered snapshots. Slow
// clients are disconnected rather than allowed to block a broadcast.
type Hub struct {
	Builder *snapshot.Builder
	Log     zerolog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

func New(builder *snapshot.Builder, log zerolog.Logger) *Hub {
	return &Hub{
		Builder: builder,
		Log:     log,
		clients: make(map[*client]struct{}),
	}
}

// Serve adopts an upgraded connection for a principal with the given role.
// It blocks until the peer disconnects.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, role string) {
	c := &client{
		conn: conn,
		role: role,
		send: make(chan []byte, sendBuffer),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.Log.Debug().Int("clients", n).Msg("hub: client connected")

	if payload, err := h.payloadFor(ctx, c.role); err == nil {
		c.enqueue(payload)
	} else {
		h.Log.Error().Err(err).Msg("hub: initial snapshot failed")
	}

	go c.writePump()
	// Read loop only drains control frames and detects close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(c)
}

// Broadcast pushes a fresh snapshot to every connected client. Builds are
// shared per role class through the builder's cache.
func (h *Hub) Broadcast(ctx context.Context) {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	if len(clients) == 0 {
		return
	}

	payloads := make(map[string][]byte)
	for _, c := range clients {
		payload, ok := payloads[c.role]
		if !ok {
			var err error
			payload, err = h.payloadFor(ctx, c.role)
			if err != nil {
				h.Log.Error().Err(err).Msg("hub: snapshot build failed")
				return
			}
			payloads[c.role] = payload
		}
		if !c.enqueue(payload) {
			h.Log.Warn().Msg("hub: dropping slow client")
			h.drop(c)
		}
	}
}

func (h *Hub) payloadFor(ctx context.Context, role string) ([]byte, error) {
	snap, err := h.Builder.ForRole(ctx, role)
	if err != nil {
		return nil, err
	}
	return json.Marshal(message{Type: "snapshot", Data: snap})
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
	c.conn.Close()
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// enqueue attempts a non-blocking send; false means the buffer is full or
// the client is already gone.
func (c *client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *client) writePump() {
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
