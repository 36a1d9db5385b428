package database

import (
	"database/sql"
	"errors"
	"fmt"
)

const (
	createMessagesTable = `
		CREATE TABLE IF NOT EXISTS messages (
			id SERIAL PRIMARY KEY,
			sender VARCHAR(50) NOT NULL,
			recipient VARCHAR(50) NOT NULL,
			room VARCHAR(100) NOT NULL,
			text TEXT,
			url TEXT,
			type VARCHAR(50) DEFAULT 'text',
			timestamp TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			edited BOOLEAN DEFAULT FALSE,
			deleted BOOLEAN DEFAULT FALSE
		)`

	createReadReceiptsTable = `
		CREATE TABLE IF NOT EXISTS read_receipts (
			room VARCHAR(100) PRIMARY KEY,
			last_read_message_id INTEGER DEFAULT 0,
			last_read_by_user VARCHAR(50) NOT NULL
		)`

	// advanceCursorQuery only moves the cursor forward: a smaller or equal
	// id is a no-op, so the operation is idempotent and concurrent advances
	// converge to the max. The invariant lives entirely in this statement;
	// callers never read-then-write the cursor.
	advanceCursorQuery = `
		INSERT INTO read_receipts (room, last_read_message_id, last_read_by_user)
		VALUES ($1, $2, $3)
		ON CONFLICT (room)
		DO UPDATE SET last_read_message_id = $2
		WHERE read_receipts.last_read_message_id < $2`
)

func (db *PgRepository) EnsureSchema() error {
	if _, err := db.conn.Exec(createMessagesTable); err != nil {
		return fmt.Errorf("create messages table: %w", err)
	}

	if _, err := db.conn.Exec(createReadReceiptsTable); err != nil {
		return fmt.Errorf("create read_receipts table: %w", err)
	}

	return nil
}

func (db *PgRepository) AppendMessage(params AppendMessageParams) (Message, error) {
	msgType := params.Type
	if msgType == "" {
		msgType = "text"
	}

	res := db.conn.QueryRow(
		"INSERT INTO messages (sender, recipient, room, text, url, type) "+
			"VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, timestamp",
		params.Sender,
		params.Recipient,
		params.Room,
		params.Text,
		params.URL,
		msgType,
	)

	msg := Message{
		Sender:    params.Sender,
		Recipient: params.Recipient,
		Room:      params.Room,
		Text:      params.Text,
		URL:       params.URL,
		Type:      msgType,
	}
	err := res.Scan(&msg.Id, &msg.Timestamp)

	return msg, err
}

func (db *PgRepository) History(room, viewer string) ([]Message, error) {
	cursor, err := db.ReadCursor(room)
	if err != nil {
		return nil, fmt.Errorf("read cursor: %w", err)
	}

	rows, err := db.conn.Query(
		"SELECT id, sender, recipient, room, COALESCE(text, ''), COALESCE(url, ''), type, timestamp, edited "+
			"FROM messages WHERE room = $1 AND deleted = FALSE ORDER BY id ASC",
		room,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows, func(msg *Message) {
		msg.IsRead = msg.Sender == viewer && msg.Id <= cursor
	})
}

func (db *PgRepository) AdvanceReadCursor(room string, messageId int64, readBy string) error {
	_, err := db.conn.Exec(advanceCursorQuery, room, messageId, readBy)

	return err
}

func (db *PgRepository) ReadCursor(room string) (int64, error) {
	row := db.conn.QueryRow(
		"SELECT last_read_message_id FROM read_receipts WHERE room = $1",
		room,
	)

	var cursor int64
	if err := row.Scan(&cursor); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}

	return cursor, nil
}

func (db *PgRepository) Search(room, substring string) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT id, sender, recipient, room, COALESCE(text, ''), COALESCE(url, ''), type, timestamp, edited "+
			"FROM messages WHERE room = $1 AND deleted = FALSE AND text ILIKE $2 ORDER BY id DESC",
		room,
		"%"+substring+"%",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows, nil)
}

func (db *PgRepository) EditMessage(id int64, newText string) error {
	_, err := db.conn.Exec(
		"UPDATE messages SET text = $1, edited = TRUE WHERE id = $2",
		newText,
		id,
	)

	return err
}

// SoftDeleteMessage flags the row instead of removing it so the id stays a
// valid read-receipt cursor target.
func (db *PgRepository) SoftDeleteMessage(id int64) error {
	_, err := db.conn.Exec(
		"UPDATE messages SET deleted = TRUE WHERE id = $1",
		id,
	)

	return err
}

func scanMessages(rows *sql.Rows, annotate func(*Message)) ([]Message, error) {
	messages := make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err := rows.Scan(
			&msg.Id,
			&msg.Sender,
			&msg.Recipient,
			&msg.Room,
			&msg.Text,
			&msg.URL,
			&msg.Type,
			&msg.Timestamp,
			&msg.Edited,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		if annotate != nil {
			annotate(&msg)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}
