package domain

import "time"

// Attachment is metadata for a binary blob referenced by a message.
// The blob itself lives in object storage, keyed by the attachment id.
type Attachment struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"room_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}
