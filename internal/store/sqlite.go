package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"hivechat/internal/domain"
	hive_errors "hivechat/pkg/errors"
)

const defaultBusyTimeout = 5000

// SQLiteStore is the embedded backend used by the dev variant. The pool is
// pinned to a single connection, so transactions never interleave and the
// last_seq bump below is serialized per process.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at the provided
// path and applies the schema. Call Close when done.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = "hivechat.db"
	}
	db, err := sql.Open("sqlite", buildDSN(path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func buildDSN(path string) string {
	switch {
	case strings.HasPrefix(path, "file:"), strings.HasPrefix(path, ":memory:"):
		// already in a form sqlite understands
	default:
		path = "file:" + path
	}
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout=%d&_pragma=foreign_keys=ON", path, separator, defaultBusyTimeout)
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			last_seq   INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id             TEXT PRIMARY KEY,
			room_id        TEXT NOT NULL,
			sender         TEXT NOT NULL,
			sender_type    TEXT NOT NULL DEFAULT 'human',
			content        TEXT NOT NULL,
			color          TEXT NOT NULL DEFAULT '',
			type           TEXT NOT NULL DEFAULT 'message',
			seq            INTEGER NOT NULL,
			parent_id      TEXT NOT NULL DEFAULT '',
			attachment_ids TEXT NOT NULL DEFAULT '',
			created_at     DATETIME NOT NULL,
			UNIQUE (room_id, seq),
			FOREIGN KEY(room_id) REFERENCES rooms(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_room_seq ON messages(room_id, seq);`,
		`CREATE TABLE IF NOT EXISTS attachments (
			id           TEXT PRIMARY KEY,
			room_id      TEXT NOT NULL,
			filename     TEXT NOT NULL,
			content_type TEXT NOT NULL,
			size         INTEGER NOT NULL,
			created_at   DATETIME NOT NULL,
			FOREIGN KEY(room_id) REFERENCES rooms(id) ON DELETE CASCADE
		);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) CreateRoom(ctx context.Context, name string) (domain.Room, error) {
	name, err := validateRoomName(name)
	if err != nil {
		return domain.Room{}, err
	}
	room := domain.Room{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO rooms(id, name, created_at) VALUES(?, ?, ?)`,
		room.ID, room.Name, room.CreatedAt)
	if err != nil {
		return domain.Room{}, fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
	}
	return room, nil
}

func (s *SQLiteStore) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	var room domain.Room
	row := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM rooms WHERE id = ?`, id)
	if err := row.Scan(&room.ID, &room.Name, &room.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Room{}, hive_errors.ErrNotFound
		}
		return domain.Room{}, fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
	}
	return room, nil
}

func (s *SQLiteStore) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM rooms ORDER BY created_at ASC, rowid ASC`)
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

func (s *SQLiteStore) AppendMessage(ctx context.Context, roomID string, in domain.MessageInput) (domain.Message, error) {
	if err := validateMessageInput(&in); err != nil {
		return domain.Message{}, err
	}
	attIDs, err := encodeIDs(in.AttachmentIDs)
	if err != nil {
		return domain.Message{}, hive_errors.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE rooms SET last_seq = last_seq + 1 WHERE id = ?`, roomID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
	}
	if affected == 0 {
		return domain.Message{}, hive_errors.ErrNotFound
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT last_seq FROM rooms WHERE id = ?`, roomID).Scan(&seq); err != nil {
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
		CreatedAt:     time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, room_id, sender, sender_type, content, color, type, seq, parent_id, attachment_ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.RoomID, msg.Sender, string(msg.SenderType), msg.Content, msg.Color,
		string(msg.Type), msg.Seq, msg.ParentID, attIDs, msg.CreatedAt)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
	}
	return msg, nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, roomID string, q domain.MessageQuery) ([]domain.Message, error) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, room_id, sender, sender_type, content, color, type, seq, parent_id, attachment_ids, created_at
		FROM messages WHERE room_id = ?`
	args := []any{roomID}

	if q.AfterID != "" {
		query += ` AND seq > COALESCE((SELECT seq FROM messages WHERE id = ?), 0)`
		args = append(args, q.AfterID)
	}
	if q.SinceSeq > 0 {
		query += ` AND seq > ?`
		args = append(args, q.SinceSeq)
	}
	if q.ExcludeSender != "" {
		query += ` AND sender != ?`
		args = append(args, q.ExcludeSender)
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
	}
	defer rows.Close()

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

func (s *SQLiteStore) CreateAttachment(ctx context.Context, att domain.Attachment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attachments (id, room_id, filename, content_type, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		att.ID, att.RoomID, att.Filename, att.ContentType, att.Size, att.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
	}
	return nil
}

func (s *SQLiteStore) GetAttachment(ctx context.Context, id string) (domain.Attachment, error) {
	var att domain.Attachment
	row := s.db.QueryRowContext(ctx, `
		SELECT id, room_id, filename, content_type, size, created_at
		FROM attachments WHERE id = ?`, id)
	if err := row.Scan(&att.ID, &att.RoomID, &att.Filename, &att.ContentType, &att.Size, &att.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Attachment{}, hive_errors.ErrNotFound
		}
		return domain.Attachment{}, fmt.Errorf("%w: %v", hive_errors.ErrStorage, err)
	}
	return att, nil
}

var _ Store = (*SQLiteStore)(nil)
