package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/infrastructure"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

// Message types pushed to clients.
const (
	TypeConnection       = "connection"
	TypeSnapshotReloaded = "snapshot:reloaded"
)

// broadcastBuffer bounds how many broadcasts may queue while Run is busy.
const broadcastBuffer = 64

// Message is the JSON envelope of every frame the hub sends.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
// All mutation of the client set happens on the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *Metrics

	quit     chan struct{}
	stopOnce sync.Once
	running  bool
}

// NewHub creates a hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *Metrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		metrics:    metrics,
		quit:       make(chan struct{}),
	}
}

// Start runs the hub loop in its own goroutine. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Run is the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	ctx := context.Background()
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()

			h.metrics.RecordConnection(ctx)
			h.logger.InfoContext(client.context(), "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			if msg, err := h.encode(TypeConnection, map[string]string{"client_id": client.id}); err == nil {
				select {
				case client.send <- msg:
				default:
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			if ok {
				h.metrics.RecordDisconnection(ctx, time.Since(client.connectedAt))
				h.logger.InfoContext(client.context(), "Client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id))
			}

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer: drop it rather than stall every other client.
					close(client.send)
					delete(h.clients, client)
					h.metrics.RecordDropped(ctx)
					h.logger.Warn("Dropping slow WebSocket client",
						slog.String("client_id", client.id))
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop ends Run and closes every client's send channel.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Register adds a client. It returns false once the hub is stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes a client if it is still registered.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues a raw frame for every client. When the queue is full the
// frame is dropped and logged.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.quit:
	default:
		h.metrics.RecordDropped(context.Background())
		h.logger.Warn("Broadcast queue full, dropping message",
			slog.Int("bytes", len(message)))
	}
}

// BroadcastJSON wraps data in a Message envelope and broadcasts it.
func (h *Hub) BroadcastJSON(msgType string, data interface{}) {
	msg, err := h.encode(msgType, data)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message",
			slog.String("type", msgType),
			slog.String("error", err.Error()))
		return
	}
	h.metrics.RecordBroadcast(context.Background(), msgType)
	h.Broadcast(msg)
}

// BroadcastSnapshot tells clients a new snapshot version is being served.
func (h *Hub) BroadcastSnapshot(info domain.SnapshotInfo) {
	h.logger.Debug("Broadcasting snapshot reload",
		slog.Time("version", info.Version),
		slog.Int("records", info.RecordCount),
		slog.Int("clients", h.ClientCount()))
	h.BroadcastJSON(TypeSnapshotReloaded, info)
}

// SnapshotSubscriber adapts BroadcastSnapshot to the snapshot cache's
// subscription callback.
func (h *Hub) SnapshotSubscriber() func(*domain.Snapshot) {
	return func(s *domain.Snapshot) {
		if s == nil {
			return
		}
		h.BroadcastSnapshot(s.Info())
	}
}

func (h *Hub) encode(msgType string, data interface{}) ([]byte, error) {
	return json.Marshal(Message{Type: msgType, Data: data, Timestamp: time.Now().UTC()})
}
