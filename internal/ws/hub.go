package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// Hub fans pipeline events and live frames out to websocket clients.
// Frames are only sent to clients that asked for them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	viewers    atomic.Int32
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	if client.frames {
		h.viewers.Add(1)
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(client)
}

func (h *Hub) dropLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if client.frames {
		h.viewers.Add(-1)
	}
	close(client.send)
}

func (h *Hub) fanOut(msg outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if msg.frame && !client.frames {
			continue
		}
		select {
		case client.send <- msg.payload:
		default:
			// slow consumer
			h.logger.Warn("websocket client dropped", "reason", "send buffer full")
			h.dropLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.dropLocked(client)
	}
}

func (h *Hub) publish(msg Message, frame bool) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal websocket message", "type", msg.Type, "error", err)
		return
	}

	select {
	case h.broadcast <- outbound{payload: payload, frame: frame}:
	default:
	}
}

// Emit implements the pipeline event sink
func (h *Hub) Emit(event domain.Event) {
	h.publish(Message{Type: event.Type, Data: event, Timestamp: event.Timestamp}, false)
}

// BroadcastFrame sends a JPEG frame to viewers. Dropped when the hub is busy.
func (h *Hub) BroadcastFrame(jpeg []byte) {
	h.publish(Message{
		Type:      domain.EventFrame,
		Data:      FrameData{JPEG: base64.StdEncoding.EncodeToString(jpeg)},
		Timestamp: time.Now(),
	}, true)
}

func (h *Hub) HasViewers() bool {
	return h.viewers.Load() > 0
}

func (h *Hub) GetConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
