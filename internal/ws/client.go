package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pliu/anonchat/internal/bot"
	"github.com/pliu/anonchat/internal/models"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
	maxFrameSize  = 8 << 10
	sendBuffer    = 64
	handleTimeout = 10 * time.Second
)

// EventHandler consumes inbound events. *bot.Dispatcher satisfies it.
type EventHandler interface {
	Handle(ctx context.Context, ev bot.Event) error
}

type Client struct {
	id         string
	externalID string
	metadata   models.Metadata

	hub     *Hub
	handler EventHandler
	conn    *websocket.Conn
	send    chan []byte
}

// inboundFrame is what participants write to the socket.
type inboundFrame struct {
	Text string             `json:"text"`
	Kind models.MessageKind `json:"kind,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The front-end is not a browser page we serve; any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWs upgrades the request and attaches the participant identified by
// the external_id query parameter. Display metadata comes from the username,
// first_name and last_name parameters.
func ServeWs(hub *Hub, handler EventHandler, w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	externalID := q.Get("external_id")
	if externalID == "" {
		http.Error(w, "external_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the response.
		log.Printf("[ws] upgrade failed for %s: %v", externalID, err)
		return
	}

	client := &Client{
		id:         uuid.NewString(),
		externalID: externalID,
		metadata: models.Metadata{
			Username:  q.Get("username"),
			FirstName: q.Get("first_name"),
			LastName:  q.Get("last_name"),
		},
		hub:     hub,
		handler: handler,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
	}
	hub.register <- client
	log.Printf("[ws] connection %s attached for %s", client.id, externalID)

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
		log.Printf("[ws] connection %s for %s closed", c.id, c.externalID)
	}()
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read error on %s: %v", c.id, err)
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.hub.sendError(c.externalID, "invalid_json")
			continue
		}
		if frame.Kind == "" {
			frame.Kind = models.KindText
		}
		c.dispatch(bot.Event{
			ExternalID: c.externalID,
			Text:       frame.Text,
			Kind:       frame.Kind,
			Metadata:   c.metadata,
		})
	}
}

func (c *Client) dispatch(ev bot.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if err := c.handler.Handle(ctx, ev); err != nil {
		log.Printf("[ws] handling event from %s failed: %v", c.externalID, err)
		if err := c.hub.SendText(ctx, c.externalID, bot.ReplyUnavailable); err != nil {
			log.Printf("[ws] could not report failure to %s: %v", c.externalID, err)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
