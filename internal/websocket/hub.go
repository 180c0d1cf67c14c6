package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"cvscan/internal/config"
	"cvscan/internal/infrastructure"
)

// broadcastQueueSize bounds the messages waiting for the hub loop.
const broadcastQueueSize = 64

type outbound struct {
	eventType string
	payload   []byte
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	clients map[*Client]struct{}

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	cfg     config.WebSocketConfig
	metrics *Metrics
	logger  *slog.Logger
}

// NewHub creates a new Hub. metrics may be nil.
func NewHub(cfg config.WebSocketConfig, metrics *Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan outbound, broadcastQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Start starts the hub loop. It is a no-op when already running. A
// stopped hub cannot be restarted.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	select {
	case <-h.quit:
		return
	default:
	}
	h.running = true
	go h.run()
}

// Stop ends the hub loop and disconnects every client.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.logger.Info("Hub stopped")
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()

			ctx := client.context()
			h.metrics.recordConnection(ctx)
			h.logger.InfoContext(ctx, "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			if payload, err := encode(ctx, TypeConnection, map[string]string{
				"status":    "connected",
				"client_id": client.id,
			}); err == nil {
				select {
				case client.send <- payload:
				default:
					h.logger.WarnContext(ctx, "Client buffer full, connection message dropped",
						slog.String("client_id", client.id))
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
				ctx := client.context()
				h.metrics.recordDisconnection(ctx, time.Since(client.connectedAt))
				h.logger.InfoContext(ctx, "Client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			}

		case msg := <-h.broadcast:
			sent, dropped := 0, 0
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- msg.payload:
					sent++
				default:
					// Slow client: disconnect rather than block everyone else.
					close(client.send)
					delete(h.clients, client)
					dropped++
					h.logger.Warn("Client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}
			h.mu.Unlock()

			h.metrics.recordBroadcast(context.Background(), msg.eventType, sent, dropped)
			h.logger.Debug("Broadcast delivered",
				slog.String("type", msg.eventType),
				slog.Int("sent", sent),
				slog.Int("dropped", dropped))
		}
	}
}

// Broadcast sends an event to every connected client. It never blocks
// once the hub is stopped; events sent to a stopped hub are discarded.
func (h *Hub) Broadcast(ctx context.Context, eventType string, data interface{}) {
	payload, err := encode(ctx, eventType, data)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", eventType))
		return
	}

	select {
	case h.broadcast <- outbound{eventType: eventType, payload: payload}:
	case <-h.quit:
	}
}

// Register adds a client to the hub. On a stopped hub the client is
// closed immediately.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		close(client.send)
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Running reports whether the hub loop is active.
func (h *Hub) Running() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

func encode(ctx context.Context, eventType string, data interface{}) ([]byte, error) {
	return json.Marshal(Message{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
		TraceID:   infrastructure.GetTraceID(ctx),
	})
}
