package types

import (
	"time"
)

type User struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Message is the wire representation of a stored message. IsRead is not a
// stored column, it is derived from the room's read-receipt cursor when
// history is loaded.
type Message struct {
	Id        int64     `json:"id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Room      string    `json:"room"`
	Text      string    `json:"text,omitempty"`
	URL       string    `json:"url,omitempty"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Edited    bool      `json:"edited"`
	Deleted   bool      `json:"-"`
	IsRead    bool      `json:"is_read"`
}
