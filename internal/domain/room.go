package domain

import "time"

// Room is a named channel; the unit of message partitioning and
// subscription. Names are not required to be unique, ids are.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
