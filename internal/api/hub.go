package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"codeberg.org/mutker/hwmond/internal/alert"
	"codeberg.org/mutker/hwmond/internal/logger"
	"codeberg.org/mutker/hwmond/internal/sensor"
)

const writeTimeout = 5 * time.Second

// The API binds to a local interface; browser dashboards connect from
// file:// or another local port, so origin checks are not enforced.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub broadcasts snapshot ticks and alert events to every connected
// WebSocket client. Writes are serialized by the hub mutex; a client that
// fails a write is dropped on the spot.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]bool)}
}

func (hub *Hub) add(conn *websocket.Conn) {
	hub.mu.Lock()
	hub.conns[conn] = true
	total := len(hub.conns)
	hub.mu.Unlock()

	logger.Debug().Msgf("WebSocket client connected (total: %d)", total)
	go hub.drain(conn)
}

func (hub *Hub) remove(conn *websocket.Conn) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if hub.conns[conn] {
		conn.Close()
		delete(hub.conns, conn)
		logger.Debug().Msgf("WebSocket client disconnected (remaining: %d)", len(hub.conns))
	}
}

// drain discards client frames; its only job is to notice the close.
func (hub *Hub) drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			hub.remove(conn)
			return
		}
	}
}

// Clients reports the number of connected clients.
func (hub *Hub) Clients() int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.conns)
}

// BroadcastSnapshot pushes a snapshot tick to all clients.
func (hub *Hub) BroadcastSnapshot(snap sensor.Snapshot) {
	hub.broadcast("snapshot", snap)
}

// Name implements the notification sink contract.
func (hub *Hub) Name() string {
	return "websocket"
}

// Send pushes an alert event to all clients.
func (hub *Hub) Send(_ context.Context, event alert.Event) error {
	hub.broadcast("alert", event)
	return nil
}

func (hub *Hub) broadcast(kind string, data any) {
	msg, err := json.Marshal(wsMessage{Type: kind, Data: data})
	if err != nil {
		logger.Error().Msgf("Failed to encode %s push: %v", kind, err)
		return
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	for conn := range hub.conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			logger.Debug().Msgf("Dropping WebSocket client: %v", err)
			conn.Close()
			delete(hub.conns, conn)
		}
	}
}

// Close disconnects every client. Pending drain goroutines observe the
// closed connections and unwind on their own.
func (hub *Hub) Close() {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for conn := range hub.conns {
		conn.Close()
		delete(hub.conns, conn)
	}
}
