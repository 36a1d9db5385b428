package database

import "time"

type Message struct {
	Id        int64
	Sender    string
	Recipient string
	Room      string
	Text      string
	URL       string
	Type      string
	Timestamp time.Time
	Edited    bool
	Deleted   bool
	// IsRead is derived from the room's read-receipt cursor, not stored.
	IsRead bool
}

type ReadReceipt struct {
	Room              string
	LastReadMessageId int64
	LastReadByUser    string
}

type AppendMessageParams struct {
	Sender    string
	Recipient string
	Room      string
	Text      string
	URL       string
	Type      string
}
