package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

var (
	ErrOffline    = errors.New("ws: participant is not connected")
	ErrBufferFull = errors.New("ws: participant send buffer is full")
)

// Frame is what the hub writes to a participant's socket.
type Frame struct {
	Type   string    `json:"type"`
	Text   string    `json:"text,omitempty"`
	Error  string    `json:"error,omitempty"`
	SentAt time.Time `json:"sent_at"`
}

// Hub tracks one live connection per external participant id and is the
// outbound side of the messaging front-end.
type Hub struct {
	mu sync.RWMutex

	// Registered clients, keyed by external participant id.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string]*Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			// A newer connection replaces the older one.
			if previous, ok := h.clients[client.externalID]; ok && previous != client {
				close(previous.send)
			}
			h.clients[client.externalID] = client
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.externalID]; ok && current == client {
				delete(h.clients, client.externalID)
				close(client.send)
			}
			h.mu.Unlock()
		}
	}
}

// SendText queues text for the participant's connection. It never blocks:
// an absent connection yields ErrOffline and a full buffer ErrBufferFull.
func (h *Hub) SendText(ctx context.Context, externalID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msgBytes, err := json.Marshal(Frame{Type: "text", Text: text, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return h.send(externalID, msgBytes)
}

func (h *Hub) sendError(externalID, code string) {
	msgBytes, _ := json.Marshal(Frame{Type: "error", Error: code, SentAt: time.Now().UTC()})
	_ = h.send(externalID, msgBytes)
}

func (h *Hub) send(externalID string, msgBytes []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[externalID]
	if !ok {
		return ErrOffline
	}
	select {
	case client.send <- msgBytes:
		return nil
	default:
		return ErrBufferFull
	}
}

// Connected reports whether externalID currently has a live connection.
func (h *Hub) Connected(externalID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[externalID]
	return ok
}
