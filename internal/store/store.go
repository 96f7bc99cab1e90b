package store

import (
	"context"
	"encoding/json"
	"strings"

	"hivechat/internal/domain"
	hive_errors "hivechat/pkg/errors"
)

// Store is the durable, ordered record of rooms and messages. It is the
// single source of truth and the sole writer of seq values: AppendMessage
// must serialize concurrent calls for the same room so that assigned seqs
// are unique and strictly increasing, starting at 1.
//
// Both PostgresStore and SQLiteStore implement this interface.
type Store interface {
	CreateRoom(ctx context.Context, name string) (domain.Room, error)
	GetRoom(ctx context.Context, id string) (domain.Room, error)
	ListRooms(ctx context.Context) ([]domain.Room, error)

	AppendMessage(ctx context.Context, roomID string, in domain.MessageInput) (domain.Message, error)
	ListMessages(ctx context.Context, roomID string, q domain.MessageQuery) ([]domain.Message, error)

	CreateAttachment(ctx context.Context, att domain.Attachment) error
	GetAttachment(ctx context.Context, id string) (domain.Attachment, error)

	Ping(ctx context.Context) error
	Close() error
}

func validateRoomName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", hive_errors.ErrInvalidInput
	}
	return name, nil
}

func validateMessageInput(in *domain.MessageInput) error {
	in.Sender = strings.TrimSpace(in.Sender)
	in.Content = strings.TrimSpace(in.Content)
	if in.Sender == "" || in.Content == "" {
		return hive_errors.ErrInvalidInput
	}
	in.Normalize()
	return nil
}

// Attachment id lists are denormalized onto the message row as JSON text.
// The blob-by-id lookup they feed is peripheral; a join table is not worth
// carrying for it.
func encodeIDs(ids []string) (string, error) {
	if len(ids) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil
	}
	return ids
}
