package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hivechat/internal/domain"
	hive_errors "hivechat/pkg/errors"
)

// Schema is the Postgres schema, applied by cmd/migrate. The last_seq
// counter on rooms is the per-room seq allocator: bumping it inside the
// insert transaction takes a row lock, which serializes concurrent
// appends to the same room.
const Schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	last_seq   BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS messages (
	id             UUID PRIMARY KEY,
	room_id        UUID NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	sender         TEXT NOT NULL,
	sender_type    TEXT NOT NULL DEFAULT 'human',
	content        TEXT NOT NULL,
	color          TEXT NOT NULL DEFAULT '',
	type           TEXT NOT NULL DEFAULT 'message',
	seq            BIGINT NOT NULL,
	parent_id      TEXT NOT NULL DEFAULT '',
	attachment_ids TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (room_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_messages_room_seq ON messages(room_id, seq);

CREATE TABLE IF NOT EXISTS attachments (
	id           UUID PRIMARY KEY,
	room_id      UUID NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	filename     TEXT NOT NULL,
	content_type TEXT NOT NULL,
	size         BIGINT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

// Migrate applies the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) CreateRoom(ctx context.Context, name string) (domain.Room, error) {
	name, err := validateRoomName(name)
	if err != nil {
		return domain.Room{}, err
	}
	room := domain.Room{ID: uuid.NewString(), Name: name}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO rooms (id, name)
		VALUES ($1, $2)
		RETURNING created_at
	`, room.ID, room.Name).Scan(&room.CreatedAt)
	if err != nil {
		return domain.Room{}, fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
	}
	return room, nil
}

func (s *PostgresStore) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Room{}, hive_errors.ErrNotFound
	}
	var room domain.Room
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, created_at FROM rooms WHERE id = $1
	`, id).Scan(&room.ID, &room.Name, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Room{}, hive_errors.ErrNotFound
		}
		return domain.Room{}, fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
	}
	return room, nil
}

func (s *PostgresStore) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, created_at FROM rooms ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
	}
	defer rows.Close()

	rooms := []domain.Room{}
	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (s *PostgresStore) AppendMessage(ctx context.Context, roomID string, in domain.MessageInput) (domain.Message, error) {
	if err := validateMessageInput(&in); err != nil {
		return domain.Message{}, err
	}
	if _, err := uuid.Parse(roomID); err != nil {
		return domain.Message{}, hive_errors.ErrNotFound
	}
	attIDs, err := encodeIDs(in.AttachmentIDs)
	if err != nil {
		return domain.Message{}, hive_errors.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
	}
	defer tx.Rollback(ctx)

	var seq int64
	err = tx.QueryRow(ctx, `
		UPDATE rooms SET last_seq = last_seq + 1 WHERE id = $1 RETURNING last_seq
	`, roomID).Scan(&seq)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Message{}, hive_errors.ErrNotFound
		}
		return domain.Message{}, fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
	}

	msg := domain.Message{
		ID:            uuid.NewString(),
		RoomID:        roomID,
		Sender:        in.Sender,
		SenderType:    in.SenderType,
		Content:       in.Content,
		Color:         in.Color,
		Type:          in.Type,
		Seq:           seq,
		ParentID:      in.ParentID,
		AttachmentIDs: in.AttachmentIDs,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (id, room_id, sender, sender_type, content, color, type, seq, parent_id, attachment_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, msg.ID, msg.RoomID, msg.Sender, string(msg.SenderType), msg.Content, msg.Color,
		string(msg.Type), msg.Seq, msg.ParentID, attIDs).Scan(&msg.CreatedAt)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
	}
	return msg, nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, roomID string, q domain.MessageQuery) ([]domain.Message, error) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, room_id, sender, sender_type, content, color, type, seq, parent_id, attachment_ids, created_at
		FROM messages WHERE room_id = $1`
	args := []any{roomID}

	sinceSeq := q.SinceSeq
	if q.AfterID != "" {
		// An id that is not even a uuid cannot match a row; the filter
		// collapses to the start of history, same as an unknown id.
		if _, err := uuid.Parse(q.AfterID); err == nil {
			query += fmt.Sprintf(" AND seq > COALESCE((SELECT seq FROM messages WHERE id = $%d), 0)", len(args)+1)
			args = append(args, q.AfterID)
		}
	}
	if sinceSeq > 0 {
		query += fmt.Sprintf(" AND seq > $%d", len(args)+1)
		args = append(args, sinceSeq)
	}
	if q.ExcludeSender != "" {
		query += fmt.Sprintf(" AND sender != $%d", len(args)+1)
		args = append(args, q.ExcludeSender)
	}
	query += " ORDER BY seq ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
	}
	defer rows.Close()

	return scanPgMessages(rows)
}

func scanPgMessages(rows pgx.Rows) ([]domain.Message, error) {
	messages := []domain.Message{}
	for rows.Next() {
		var (
			m          domain.Message
			senderType string
			msgType    string
			attIDs     string
		)
		err := rows.Scan(&m.ID, &m.RoomID, &m.Sender, &senderType, &m.Content, &m.Color,
			&msgType, &m.Seq, &m.ParentID, &attIDs, &m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
		}
		m.SenderType = domain.SenderType(senderType)
		m.Type = domain.MessageType(msgType)
		m.AttachmentIDs = decodeIDs(attIDs)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *PostgresStore) CreateAttachment(ctx context.Context, att domain.Attachment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO attachments (id, room_id, filename, content_type, size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, att.ID, att.RoomID, att.Filename, att.ContentType, att.Size, att.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
	}
	return nil
}

func (s *PostgresStore) GetAttachment(ctx context.Context, id string) (domain.Attachment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Attachment{}, hive_errors.ErrNotFound
	}
	var att domain.Attachment
	err := s.pool.QueryRow(ctx, `
		SELECT id, room_id, filename, content_type, size, created_at
		FROM attachments WHERE id = $1
	`, id).Scan(&att.ID, &att.RoomID, &att.Filename, &att.ContentType, &att.Size, &att.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return domain.Attachment{}, hive_errors.ErrNotFound
		}
		return domain.Attachment{}, fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
	}
	return att, nil
}

var _ Store = (*PostgresStore)(nil)
