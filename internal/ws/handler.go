package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zerosight/zerosight-go/internal/classify"
	"github.com/zerosight/zerosight-go/internal/samples"
)

const (
	hydrateCount = 20
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// message is the wire shape pushed to clients.
type message struct {
	Type string `json:"type"`
	classify.Result
}

// client serializes writes; gorilla connections allow one concurrent writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeJSONLocked(v)
}

// writeJSONLocked requires c.mu to be held.
func (c *client) writeJSONLocked(v any) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Manager tracks active WebSocket connections and broadcasts classification results.
type Manager struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	store   *samples.Store
	logger  *slog.Logger
}

// NewManager creates a new WebSocket manager that hydrates new clients from store.
func NewManager(store *samples.Store, logger *slog.Logger) *Manager {
	return &Manager{
		clients: make(map[*client]struct{}),
		store:   store,
		logger:  logger,
	}
}

// HandleWS upgrades an HTTP connection to WebSocket and registers it.
func (m *Manager) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Error("websocket upgrade failed", "err", err)
		return
	}
	c := &client{conn: conn}

	// Register with the write lock held: broadcasts arriving during hydration
	// queue behind the history instead of being lost.
	c.mu.Lock()
	m.mu.Lock()
	m.clients[c] = struct{}{}
	m.mu.Unlock()
	m.hydrate(c)
	c.mu.Unlock()
	defer m.remove(c)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Keep connection alive, read messages (we ignore them)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// hydrate requires c.mu to be held.
func (m *Manager) hydrate(c *client) {
	for _, r := range m.store.Latest(hydrateCount) {
		if err := c.writeJSONLocked(message{Type: "result", Result: r}); err != nil {
			m.logger.Debug("websocket hydrate failed", "err", err)
			return
		}
	}
}

// Broadcast sends a result to all connected WebSocket clients, dropping any
// client whose write fails.
func (m *Manager) Broadcast(r classify.Result) {
	m.mu.RLock()
	clients := make([]*client, 0, len(m.clients))
	for c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.RUnlock()

	msg := message{Type: "result", Result: r}
	for _, c := range clients {
		if err := c.writeJSON(msg); err != nil {
			m.remove(c)
		}
	}
}

// PingLoop pings every client periodically until ctx is cancelled. Clients
// that fail the ping are closed; their read loop then exits.
func (m *Manager) PingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pingAll()
		}
	}
}

func (m *Manager) pingAll() {
	m.mu.RLock()
	clients := make([]*client, 0, len(m.clients))
	for c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.RUnlock()

	for _, c := range clients {
		if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
			m.logger.Debug("websocket ping failed", "err", err)
			m.remove(c)
		}
	}
}

// Count returns the number of connected clients.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

func (m *Manager) remove(c *client) {
	m.mu.Lock()
	_, ok := m.clients[c]
	delete(m.clients, c)
	m.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}
