package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// StreamOptions configures a live subscription.
type StreamOptions struct {
	// Name is reported to room presence. Optional.
	Name string
	// Backoff overrides the default reconnect schedule.
	Backoff *Backoff
	// OnError receives connection and protocol errors that the stream
	// recovers from. Optional.
	OnError func(error)
}

// Stream is a live subscription to one room. Messages arrive on C in
// seq order with no duplicates, across reconnects.
type Stream struct {
	C <-chan Message

	cancel context.CancelFunc
	done   chan struct{}
}

// Close tears down the subscription. It is safe to call more than once.
func (s *Stream) Close() {
	s.cancel()
	<-s.done
}

// Stream subscribes to a room. It reconnects with exponential backoff
// when the connection drops and replays missed messages from history,
// so callers see every message exactly once. The stream ends when ctx
// is cancelled or Close is called.
func (c *Client) Stream(ctx context.Context, roomID string, opts *StreamOptions) (*Stream, error) {
	if opts == nil {
		opts = &StreamOptions{}
	}
	backoff := opts.Backoff
	if backoff == nil {
		backoff = NewBackoff(500*time.Millisecond, 30*time.Second)
	}

	// Fail fast on rooms that do not exist rather than retrying forever.
	if _, err := c.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Message, 64)
	s := &Stream{C: out, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(s.done)
		defer close(out)
		c.streamLoop(ctx, roomID, opts, backoff, out)
	}()
	return s, nil
}

func (c *Client) streamLoop(ctx context.Context, roomID string, opts *StreamOptions, backoff *Backoff, out chan<- Message) {
	var lastSeq int64
	seen := make(map[string]int64)

	deliver := func(msg Message) bool {
		if _, dup := seen[msg.ID]; dup {
			return true
		}
		select {
		case out <- msg:
			seen[msg.ID] = msg.Seq
			if msg.Seq > lastSeq {
				lastSeq = msg.Seq
			}
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := c.dialRoom(ctx, roomID, opts.Name)
		if err != nil {
			c.streamErr(opts, err)
			if !sleepCtx(ctx, backoff.Next()) {
				return
			}
			continue
		}
		backoff.Reset()

		// Replay whatever landed while we were disconnected. Messages
		// pushed on the fresh socket during the replay are deduplicated
		// by id.
		cutoff := lastSeq
		backlog, err := c.Messages(ctx, roomID, &MessageFilter{SinceSeq: lastSeq})
		if err != nil {
			c.streamErr(opts, err)
			conn.Close()
			if !sleepCtx(ctx, backoff.Next()) {
				return
			}
			continue
		}
		for _, msg := range backlog {
			if !deliver(msg) {
				conn.Close()
				return
			}
		}

		// Live frames on this connection can only duplicate messages
		// replayed above, so entries from earlier connections are no
		// longer needed and the map stays bounded per cycle.
		pruneSeen(seen, cutoff)

		if !c.readFrames(ctx, conn, opts, deliver) {
			return
		}
		// Connection dropped; go around and reconnect.
	}
}

// readFrames pumps one connection until it fails. It returns false when
// the stream as a whole should stop.
func (c *Client) readFrames(ctx context.Context, conn *websocket.Conn, opts *StreamOptions, deliver func(Message) bool) bool {
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			c.streamErr(opts, err)
			return true
		}

		var frame struct {
			Message
			Error string `json:"error"`
		}
		if err := json.Unmarshal(raw, &frame); err != nil || frame.ID == "" {
			continue
		}
		if !deliver(frame.Message) {
			return false
		}
	}
}

func (c *Client) dialRoom(ctx context.Context, roomID, name string) (*websocket.Conn, error) {
	wsBase := strings.Replace(c.BaseURL, "http", "ws", 1)

	q := url.Values{}
	q.Set("roomId", roomID)
	if name != "" {
		q.Set("name", name)
	}
	if c.APIKey != "" {
		// Prefer a short-lived ticket; fall back to the key itself when
		// the ticket endpoint is unavailable.
		token, err := c.Ticket(ctx)
		if err != nil {
			token = c.APIKey
		}
		q.Set("token", token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsBase+"/ws?"+q.Encode(), nil)
	return conn, err
}

func (c *Client) streamErr(opts *StreamOptions, err error) {
	if opts.OnError != nil {
		opts.OnError(err)
	}
}

func pruneSeen(seen map[string]int64, cutoff int64) {
	for id, seq := range seen {
		if seq <= cutoff {
			delete(seen, id)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
