package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/queryguard/queryguard-go/internal/auditlog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client pairs a connection with its write lock. gorilla/websocket forbids
// concurrent WriteMessage calls on one Conn, and broadcasts run on the
// request path, so concurrent queries can target the same connection.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) sendJSON(data map[string]any) error {
	msg, err := json.Marshal(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Manager tracks active WebSocket connections and broadcasts audit events
// so dashboards update live without polling /api/logs.
type Manager struct {
	mu      sync.RWMutex
	clients []*client
	store   auditlog.Store
	logger  *slog.Logger
}

// NewManager creates a new WebSocket manager.
func NewManager(store auditlog.Store, logger *slog.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// HandleWS upgrades an HTTP connection to WebSocket and registers it.
func (m *Manager) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Error("websocket upgrade failed", "err", err)
		return
	}

	cl := &client{conn: conn}
	m.mu.Lock()
	m.clients = append(m.clients, cl)
	m.mu.Unlock()

	m.hydrate(cl)

	// Keep connection alive, read messages (we ignore them)
	defer func() {
		m.remove(cl)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (m *Manager) remove(cl *client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.clients {
		if c == cl {
			m.clients = append(m.clients[:i], m.clients[i+1:]...)
			return
		}
	}
}

// hydrate sends current analytics and recent entries to a fresh connection,
// oldest entry first so the client renders in arrival order.
func (m *Manager) hydrate(cl *client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if analytics, err := m.store.Analytics(ctx); err == nil {
		cl.sendJSON(map[string]any{
			"type":          "analytics",
			"total":         analytics.Total,
			"allowed":       analytics.Allowed,
			"blocked":       analytics.Blocked,
			"avgConfidence": analytics.AvgConfidence,
		})
	}

	logs, err := m.store.RecentLogs(ctx, 20)
	if err != nil {
		return
	}
	for i := len(logs) - 1; i >= 0; i-- {
		cl.sendJSON(entryMessage(&logs[i]))
	}
}

// BroadcastEntry sends a new audit log entry to all connected clients.
func (m *Manager) BroadcastEntry(e *auditlog.QueryLogEntry) {
	m.broadcast(entryMessage(e))
}

func entryMessage(e *auditlog.QueryLogEntry) map[string]any {
	return map[string]any{
		"type":            "query_log",
		"id":              e.ID,
		"timestamp":       e.Timestamp.Format(time.RFC3339),
		"query":           truncate(e.Query, 120),
		"decision":        e.Decision,
		"classifier_prob": e.Confidence,
		"rule_matches":    e.RuleMatches,
	}
}

func (m *Manager) broadcast(data map[string]any) {
	m.mu.RLock()
	clients := make([]*client, len(m.clients))
	copy(clients, m.clients)
	m.mu.RUnlock()

	for _, cl := range clients {
		if err := cl.sendJSON(data); err != nil {
			m.remove(cl)
			cl.conn.Close()
		}
	}
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
