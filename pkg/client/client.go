// Package client provides a Go client for the hivechat HTTP and
// WebSocket API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Room is a chat room as returned by the server.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a committed chat message. Seq is assigned by the server and
// is strictly increasing per room.
type Message struct {
	ID            string    `json:"id"`
	RoomID        string    `json:"room_id"`
	Sender        string    `json:"sender"`
	SenderType    string    `json:"sender_type"`
	Content       string    `json:"content"`
	Color         string    `json:"color,omitempty"`
	Type          string    `json:"type"`
	Seq           int64     `json:"seq"`
	ParentID      string    `json:"message_id,omitempty"`
	AttachmentIDs []string  `json:"attachment_ids,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// SendOptions carries the optional fields of an outgoing message.
type SendOptions struct {
	SenderType    string
	Color         string
	Type          string
	ParentID      string
	AttachmentIDs []string
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hivechat: server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to a hivechat server.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// New creates a client for the server at baseURL. apiKey may be empty
// when the server runs without authentication.
func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}
	return respBody, nil
}

// CreateRoom creates a room and returns it.
func (c *Client) CreateRoom(ctx context.Context, name string) (*Room, error) {
	body, _ := json.Marshal(map[string]string{"name": name})
	respBody, err := c.doRequest(ctx, http.MethodPost, "/api/rooms", body)
	if err != nil {
		return nil, err
	}
	var room Room
	if err := json.Unmarshal(respBody, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// ListRooms returns every room on the server.
func (c *Client) ListRooms(ctx context.Context) ([]Room, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/api/rooms", nil)
	if err != nil {
		return nil, err
	}
	var rooms []Room
	if err := json.Unmarshal(respBody, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// GetRoom fetches a room by id.
func (c *Client) GetRoom(ctx context.Context, roomID string) (*Room, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/api/rooms/"+url.PathEscape(roomID), nil)
	if err != nil {
		return nil, err
	}
	var room Room
	if err := json.Unmarshal(respBody, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// SendMessage posts a message to a room and returns the committed copy,
// seq included.
func (c *Client) SendMessage(ctx context.Context, roomID, sender, content string, opts *SendOptions) (*Message, error) {
	payload := map[string]any{"sender": sender, "content": content}
	if opts != nil {
		if opts.SenderType != "" {
			payload["sender_type"] = opts.SenderType
		}
		if opts.Color != "" {
			payload["color"] = opts.Color
		}
		if opts.Type != "" {
			payload["type"] = opts.Type
		}
		if opts.ParentID != "" {
			payload["message_id"] = opts.ParentID
		}
		if len(opts.AttachmentIDs) > 0 {
			payload["attachment_ids"] = opts.AttachmentIDs
		}
	}
	body, _ := json.Marshal(payload)
	respBody, err := c.doRequest(ctx, http.MethodPost, "/api/rooms/"+url.PathEscape(roomID)+"/messages", body)
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(respBody, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MessageFilter narrows a history query. The zero value returns the full
// history in seq order.
type MessageFilter struct {
	SinceSeq      int64
	AfterID       string
	ExcludeSender string
}

// Messages returns a room's history, oldest first.
func (c *Client) Messages(ctx context.Context, roomID string, filter *MessageFilter) ([]Message, error) {
	path := "/api/rooms/" + url.PathEscape(roomID) + "/messages"
	if filter != nil {
		q := url.Values{}
		if filter.SinceSeq > 0 {
			q.Set("since_seq", strconv.FormatInt(filter.SinceSeq, 10))
		}
		if filter.AfterID != "" {
			q.Set("after", filter.AfterID)
		}
		if filter.ExcludeSender != "" {
			q.Set("exclude", filter.ExcludeSender)
		}
		if encoded := q.Encode(); encoded != "" {
			path += "?" + encoded
		}
	}
	respBody, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var msgs []Message
	if err := json.Unmarshal(respBody, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Presence returns the names currently joined to a room.
func (c *Client) Presence(ctx context.Context, roomID string) ([]string, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/api/rooms/"+url.PathEscape(roomID)+"/presence", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Members []string `json:"members"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	return out.Members, nil
}

// Ticket mints a short-lived WebSocket ticket. Requires an API key.
func (c *Client) Ticket(ctx context.Context) (string, error) {
	respBody, err := c.doRequest(ctx, http.MethodPost, "/api/auth/ticket", nil)
	if err != nil {
		return "", err
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}
