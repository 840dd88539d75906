package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"facility-checklist/internal/models"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is how many updates may queue for one client before it is dropped.
	sendBuffer = 16
)

// Conn is the part of *websocket.Conn the hub writes through.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// client owns one connection. Only its writer goroutine writes to conn.
type client struct {
	conn Conn
	send chan []byte
}

// Hub fans live inspection updates out to connected browsers.
type Hub struct {
	clients map[string]*client
	mu      sync.Mutex
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		log:     log,
	}
}

// Add registers conn and starts its writer. It runs until Remove, a failed
// write, or a full send queue.
func (h *Hub) Add(clientID string, conn Conn) {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if old, ok := h.clients[clientID]; ok {
		close(old.send)
	}
	h.clients[clientID] = c
	count := len(h.clients)
	h.mu.Unlock()

	go h.writeLoop(clientID, c)
	h.log.Debug("Live client connected", zap.String("client", clientID), zap.Int("clients", count))
}

func (h *Hub) Remove(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		h.dropLocked(clientID, c)
		h.log.Debug("Live client disconnected", zap.String("client", clientID), zap.Int("clients", len(h.clients)))
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues update for every client without waiting on any socket.
// A client whose queue is full is dropped.
func (h *Hub) Broadcast(update models.LiveUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		h.log.Error("marshal live update", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Warn("live client too slow, dropping", zap.String("client", id))
			_ = c.conn.Close()
			h.dropLocked(id, c)
		}
	}
}

func (h *Hub) writeLoop(clientID string, c *client) {
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Warn("live update send failed", zap.String("client", clientID), zap.Error(err))
			_ = c.conn.Close()
			h.mu.Lock()
			h.dropLocked(clientID, c)
			h.mu.Unlock()
			return
		}
	}
}

// dropLocked forgets c if it is still the registered client for id. h.mu must be held.
func (h *Hub) dropLocked(clientID string, c *client) {
	if h.clients[clientID] == c {
		delete(h.clients, clientID)
		close(c.send)
	}
}
