package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"hivechat/internal/domain"
	hive_errors "hivechat/pkg/errors"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Poster commits an inbound message and fans it out. Implemented by
// services.MessageService.
type Poster interface {
	Append(ctx context.Context, roomID string, in domain.MessageInput) (domain.Message, error)
}

// InboundFrame is the JSON a client may send over the socket.
type InboundFrame struct {
	Sender        string   `json:"sender"`
	SenderType    string   `json:"sender_type,omitempty"`
	Content       string   `json:"content"`
	Color         string   `json:"color,omitempty"`
	Type          string   `json:"type,omitempty"`
	MessageID     string   `json:"message_id,omitempty"`
	AttachmentIDs []string `json:"attachment_ids,omitempty"`
}

type errorFrame struct {
	Error string `json:"error"`
}

// Client represents a single WebSocket connection subscribed to one room.
type Client struct {
	ID     string
	RoomID string
	Name   string
	Conn   *websocket.Conn
	Send   chan []byte

	hub    *Hub
	poster Poster
}

func NewClient(hub *Hub, conn *websocket.Conn, roomID, name string, poster Poster) *Client {
	return &Client{
		ID:     uuid.NewString(),
		RoomID: roomID,
		Name:   name,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		hub:    hub,
		poster: poster,
	}
}

// ReadPump consumes inbound frames until the connection drops. Each valid
// frame is persisted then broadcast by the poster; invalid frames produce
// an error frame to this connection only and leave it open.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unsubscribe(c.RoomID, c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.Conn.ReadMessage()
		if err != nil {
			return
		}

		var frame InboundFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			c.sendError("malformed frame")
			continue
		}

		_, err = c.poster.Append(ctx, c.RoomID, domain.MessageInput{
			Sender:        frame.Sender,
			SenderType:    domain.SenderType(frame.SenderType),
			Content:       frame.Content,
			Color:         frame.Color,
			Type:          domain.MessageType(frame.Type),
			ParentID:      frame.MessageID,
			AttachmentIDs: frame.AttachmentIDs,
		})
		switch {
		case err == nil:
			// The committed message reaches this client through the
			// broadcast path, like every other subscriber.
		case errors.Is(err, hive_errors.ErrInvalidInput):
			c.sendError("sender and content are required")
		case errors.Is(err, hive_errors.ErrNotFound):
			c.sendError("room not found")
		default:
			c.sendError("internal error")
		}
	}
}

// WritePump drains the Send channel onto the socket and keeps the
// connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendError(msg string) {
	payload, _ := json.Marshal(errorFrame{Error: msg})
	select {
	case c.Send <- payload:
	default:
	}
}
