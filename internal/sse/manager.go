// Package sse fans dashboard changes out to Server-Sent Events clients.
package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Event types broadcast by the dashboard.
const (
	EventConnected = "connected"
	EventSnapshot  = "snapshot"
	EventMap       = "map"
	EventChart     = "chart"
	EventControls  = "controls"
	EventStatus    = "status"
	EventError     = "error"
)

const clientBuffer = 100

// Message is one Server-Sent Event.
type Message struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Manager tracks connected clients and broadcasts to them. Slow clients miss
// messages instead of blocking the broadcaster.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]chan Message
	seq     *atomic.Int64
	logger  *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		clients: make(map[string]chan Message),
		seq:     atomic.NewInt64(0),
		logger:  logger,
	}
}

// AddClient registers a client under a fresh id.
func (m *Manager) AddClient() (string, <-chan Message) {
	id := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan Message, clientBuffer)
	m.clients[id] = ch
	m.logger.Info("sse client connected", "client", id, "total", len(m.clients))
	return id, ch
}

// RemoveClient unregisters a client and closes its channel.
func (m *Manager) RemoveClient(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch, ok := m.clients[id]; ok {
		close(ch)
		delete(m.clients, id)
		m.logger.Info("sse client disconnected", "client", id, "remaining", len(m.clients))
	}
}

func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Broadcast stamps msg with the next id and sends it to every client.
func (m *Manager) Broadcast(msgType string, data any) {
	msg := Message{
		ID:        m.seq.Inc(),
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, ch := range m.clients {
		select {
		case ch <- msg:
		default:
			m.logger.Warn("sse client channel full, skipping message", "client", id, "type", msgType)
		}
	}
}

// Close disconnects every client.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, ch := range m.clients {
		close(ch)
		delete(m.clients, id)
	}
}

// WriteMessage writes msg in the event-stream wire format.
func WriteMessage(w io.Writer, msg Message) error {
	if _, err := fmt.Fprintf(w, "id: %d\n", msg.ID); err != nil {
		return err
	}
	if msg.Type != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", msg.Type); err != nil {
			return err
		}
	}

	data := []byte("{}")
	if msg.Data != nil {
		var err error
		if data, err = json.Marshal(msg.Data); err != nil {
			return fmt.Errorf("marshal sse data: %w", err)
		}
	}
	_, err := fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// WriteKeepalive writes a comment line that keeps idle connections open.
func WriteKeepalive(w io.Writer) error {
	_, err := io.WriteString(w, ": keepalive\n\n")
	return err
}
