package domain

import "time"

// SenderType distinguishes human participants from automated agents.
// Both use the same send API.
type SenderType string

const (
	SenderHuman SenderType = "human"
	SenderAgent SenderType = "agent"
)

// MessageType separates ordinary chat from tool-activity log entries.
type MessageType string

const (
	TypeMessage MessageType = "message"
	TypeLog     MessageType = "log"
)

// Message is an immutable chat message. Seq is assigned by the store at
// commit time and is strictly increasing within a room, starting at 1.
type Message struct {
	ID            string      `json:"id"`
	RoomID        string      `json:"room_id"`
	Sender        string      `json:"sender"`
	SenderType    SenderType  `json:"sender_type"`
	Content       string      `json:"content"`
	Color         string      `json:"color,omitempty"`
	Type          MessageType `json:"type"`
	Seq           int64       `json:"seq"`
	ParentID      string      `json:"message_id,omitempty"`
	AttachmentIDs []string    `json:"attachment_ids,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// MessageInput is the client-supplied portion of a message. The store
// fills in id, seq and created_at.
type MessageInput struct {
	Sender        string
	SenderType    SenderType
	Content       string
	Color         string
	Type          MessageType
	ParentID      string
	AttachmentIDs []string
}

// Normalize applies the enum defaults for omitted optional fields.
func (in *MessageInput) Normalize() {
	if in.SenderType == "" {
		in.SenderType = SenderHuman
	}
	if in.Type == "" {
		in.Type = TypeMessage
	}
}

// MessageQuery narrows a history read. Zero values mean "no filter".
type MessageQuery struct {
	// AfterID returns only messages committed after the referenced
	// message. Unknown ids disable the filter.
	AfterID string
	// SinceSeq returns only messages with seq strictly greater.
	SinceSeq int64
	// ExcludeSender drops messages from the given sender, so a client
	// polling a side channel does not see its own sends echoed back.
	ExcludeSender string
}
