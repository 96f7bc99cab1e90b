package httpdto

// ErrorResponse is the wire shape of every HTTP error: a bare message,
// never a stack trace.
type ErrorResponse struct {
	Error string `json:"error"`
}

func NewErrorResponse(err string) ErrorResponse {
	return ErrorResponse{Error: err}
}

type TicketResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

type PresenceResponse struct {
	RoomID  string   `json:"room_id"`
	Members []string `json:"members"`
}
