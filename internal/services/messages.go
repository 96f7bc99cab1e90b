package services

import (
	"context"
	"encoding/json"
	"sync"

	"hivechat/internal/domain"
	"hivechat/internal/metrics"
	"hivechat/internal/store"
	"hivechat/pkg/logger"
)

// Broadcaster fans a committed message out to live subscribers.
// Implemented by ws.Hub.
type Broadcaster interface {
	Broadcast(roomID string, payload []byte)
}

// MessageService commits messages and fans them out. The broadcast
// happens strictly after the store commit: a subscriber can never see a
// message that a subsequent history read would not also return.
//
// Commit and fan-out for one room form a single critical section. Without
// it, a sender that committed seq n could be preempted and broadcast
// after a later seq, and subscribers would see seqs out of order. Fan-out
// sends are non-blocking, so holding the room lock through the broadcast
// never stalls on a slow client.
type MessageService struct {
	store       store.Store
	broadcaster Broadcaster
	logger      *logger.Logger

	mu        sync.Mutex
	roomLocks map[string]*sync.Mutex
}

func NewMessageService(s store.Store, b Broadcaster, l *logger.Logger) *MessageService {
	return &MessageService{
		store:       s,
		broadcaster: b,
		logger:      l,
		roomLocks:   make(map[string]*sync.Mutex),
	}
}

func (m *MessageService) roomLock(roomID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.roomLocks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		m.roomLocks[roomID] = lock
	}
	return lock
}

// Append persists the message, then pushes it to every live subscriber of
// its room. A persistence failure aborts before any broadcast; broadcast
// delivery failures never fail the write. Appends to the same room are
// serialized so that broadcast order matches commit order.
func (m *MessageService) Append(ctx context.Context, roomID string, in domain.MessageInput) (domain.Message, error) {
	lock := m.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	msg, err := m.store.AppendMessage(ctx, roomID, in)
	if err != nil {
		return domain.Message{}, err
	}
	metrics.MessagesPosted.WithLabelValues(string(msg.Type)).Inc()

	payload, err := json.Marshal(msg)
	if err != nil {
		// The write already succeeded; only the push is lost. Catch-up
		// closes the gap for connected clients.
		if m.logger != nil {
			m.logger.Errorf("marshal committed message %s: %s", msg.ID, err)
		}
		return msg, nil
	}
	if m.broadcaster != nil {
		m.broadcaster.Broadcast(roomID, payload)
	}
	return msg, nil
}

// List reads ordered history, optionally narrowed by the query filters.
// since_seq is the catch-up path for reconnecting clients.
func (m *MessageService) List(ctx context.Context, roomID string, q domain.MessageQuery) ([]domain.Message, error) {
	return m.store.ListMessages(ctx, roomID, q)
}
