package ws

import (
	"sync"

	"hivechat/internal/metrics"
	"hivechat/pkg/logger"
)

// Hub owns the room -> connection mapping. It is the only shared mutable
// structure in the process; every mutation and every broadcast iteration
// of a room's client set happens under the hub's lock, so a broadcast can
// never observe a half-updated set.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	logger *logger.Logger
}

func NewHub(l *logger.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		logger: l,
	}
}

// Subscribe adds the client to the room's set. Called after the room's
// existence has been validated and the upgrade succeeded.
func (h *Hub) Subscribe(roomID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][client] = struct{}{}
	metrics.WSConnections.Inc()
}

// Unsubscribe removes the client. Close and error paths can race, so
// removing an already-absent client is a no-op.
func (h *Hub) Unsubscribe(roomID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers, ok := h.rooms[roomID]
	if !ok {
		return
	}
	if _, ok := subscribers[client]; !ok {
		return
	}
	delete(subscribers, client)
	if len(subscribers) == 0 {
		delete(h.rooms, roomID)
	}
	close(client.Send)
	metrics.WSConnections.Dec()
}

// Broadcast sends payload to every client currently subscribed to the
// room. Delivery is per-connection best-effort: a client whose send
// buffer is full is skipped, never allowed to stall the rest.
//
// Takes the write lock, not a read lock: two broadcasts holding read
// locks can interleave their channel sends, and a subscriber would see
// later payloads before earlier ones. Sends are non-blocking, so the
// exclusive section is short.
func (h *Hub) Broadcast(roomID string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.rooms[roomID] {
		select {
		case client.Send <- payload:
		default:
			metrics.BroadcastsDropped.Inc()
			if h.logger != nil {
				h.logger.Warnf("dropping broadcast to slow client %s in room %s", client.ID, roomID)
			}
		}
	}
}

// SubscriberCount returns the number of live subscribers for a room.
func (h *Hub) SubscriberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Shutdown closes every connection. Clients are expected to reconnect and
// re-subscribe; the mapping is not persisted.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for roomID, subscribers := range h.rooms {
		for client := range subscribers {
			close(client.Send)
			if client.Conn != nil {
				_ = client.Conn.Close()
			}
			metrics.WSConnections.Dec()
		}
		delete(h.rooms, roomID)
	}
}
