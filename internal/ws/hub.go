package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/finexa/fxarb/internal/models"
)

const (
	writeWait      = 5 * time.Second
	sendBufferSize = 8
)

// Envelope is the wire frame pushed to observers.
type Envelope struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub fans the ranked opportunity list out to websocket observers. Delivery
// is best effort: a slow or disconnected client is dropped, never waited on,
// so a broadcast can never stall a scan cycle.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	log      *logrus.Logger
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.New()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// HandleConnection upgrades the request and registers the observer until it
// disconnects.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.WithField("clients", h.ClientCount()).Debug("WebSocket client connected")

	go h.writeLoop(c)
	h.readLoop(c)
}

// ClientCount returns the number of connected observers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastOpportunities pushes the ranked list to every observer.
func (h *Hub) BroadcastOpportunities(opportunities []*models.ArbitrageOpportunity) {
	h.broadcast(Envelope{
		Type:      "opportunities_update",
		Data:      opportunities,
		Timestamp: time.Now().UTC(),
	})
}

// BroadcastSnapshot pushes the latest rate snapshot to every observer.
func (h *Hub) BroadcastSnapshot(snapshot models.RateSnapshot) {
	h.broadcast(Envelope{
		Type:      "market_data_update",
		Data:      snapshot,
		Timestamp: time.Now().UTC(),
	})
}

func (h *Hub) broadcast(env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		h.log.WithError(err).Warn("Failed to marshal broadcast frame")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			// Buffer full: the client is too slow, drop it.
			go h.drop(c)
		}
	}
}

// Close disconnects every observer.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		close(c.send)
		c.conn.Close()
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		c.conn.Close()
		h.log.Debug("Dropped slow WebSocket client")
	}
}

func (h *Hub) writeLoop(c *client) {
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(c)
			return
		}
	}
}

// readLoop drains inbound frames so pings and close frames are processed.
// Observers are read-only; any payload is discarded.
func (h *Hub) readLoop(c *client) {
	defer h.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
