// Package events pushes change notifications to connected dashboards over
// websockets, so an approval in one dashboard refreshes the others.
package events

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Aayan-infotech/bitcoin-admin/internal/metrics"
)

// TypeClaimsInvalidated tells clients to refetch the claim list.
const TypeClaimsInvalidated = "claims.invalidated"

const (
	sendBuffer   = 16
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 50 * time.Second
	maxReadSize  = 512
)

// Event is one notification.
type Event struct {
	Type   string    `json:"type"`
	UserID string    `json:"userId,omitempty"`
	At     time.Time `json:"at"`
}

// client is one websocket connection.
type client struct {
	conn     *websocket.Conn
	operator string
	send     chan []byte
	once     sync.Once

	// verify reports whether the client's session is still live. Nil
	// means the connection is never re-checked.
	verify func() error
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans events out to every connected client. Slow clients that fill
// their buffer are disconnected rather than blocking publishers.
type Hub struct {
	logger *slog.Logger

	// pingEvery is also how often sessions are re-checked.
	pingEvery time.Duration

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:    logger,
		pingEvery: pingInterval,
		clients:   make(map[*client]struct{}),
	}
}

// Publish sends ev to every client.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to encode event", "type", ev.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("Event client too slow, disconnecting", "operator", c.operator)
			h.removeLocked(c)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	metrics.EventClients.Inc()
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.close()
	metrics.EventClients.Dec()
}

// readPump drains client frames so pongs and close frames are processed.
// Clients are not expected to send anything else.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxReadSize)
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("Event client read error", "operator", c.operator, "error", err)
			}
			return
		}
	}
}

// writePump delivers queued events and keeps the connection alive. A
// client whose session has ended or expired is closed on the next tick.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Warn("Event client write error", "operator", c.operator, "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if c.verify != nil {
				if err := c.verify(); err != nil {
					h.logger.Info("Event client session ended", "operator", c.operator, "error", err)
					c.conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session ended"))
					return
				}
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
