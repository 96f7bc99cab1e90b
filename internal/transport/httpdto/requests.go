package httpdto

type CreateRoomRequest struct {
	Name string `json:"name"`
}

type SendMessageRequest struct {
	Sender        string   `json:"sender"`
	SenderType    string   `json:"sender_type,omitempty"`
	Content       string   `json:"content"`
	Color         string   `json:"color,omitempty"`
	Type          string   `json:"type,omitempty"`
	MessageID     string   `json:"message_id,omitempty"`
	AttachmentIDs []string `json:"attachment_ids,omitempty"`
}
