package stream

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Resanso/aquaseer-api/internal/simulation"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Conn is the subset of *websocket.Conn the hub drives.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type client struct {
	id   string
	conn Conn
	send chan []byte
	done chan struct{}
}

// Hub keeps track of dashboard websocket connections and pushes simulator
// events to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

// Register adds a connection and starts its writer. The returned id is used
// to Unregister it. initial, when not nil, is queued before any event.
func (h *Hub) Register(conn Conn, initial []byte) string {
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	if initial != nil {
		c.send <- initial
	}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	go c.writeLoop()
	return c.id
}

// Unregister removes a connection and closes it.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()
	if ok {
		close(c.done)
		_ = c.conn.Close()
	}
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues payload on every client. Clients whose buffer is full
// are dropped.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	var slow []string
	for id, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range slow {
		log.Printf("stream client %s too slow, disconnecting", id)
		h.Unregister(id)
	}
}

// OnUpdate implements simulation.Listener.
func (h *Hub) OnUpdate(_ context.Context, ev simulation.Event) {
	if h.Len() == 0 {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("stream encode event failed: %v", err)
		return
	}
	h.Broadcast(payload)
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("stream write to %s failed: %v", c.id, err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// PongWait is how long a reader waits for a pong before giving up.
func PongWait() time.Duration {
	return pongWait
}
