package store

import (
	"database/sql"
	"time"
)

// UpsertConversation inserts or updates a conversation record.
func (db *DB) UpsertConversation(c *Conversation) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO conversations (id, recipient_id, name, avatar_url, accepted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			avatar_url = excluded.avatar_url,
			accepted = excluded.accepted,
			updated_at = excluded.updated_at`,
		c.ID, c.RecipientID, c.Name, c.AvatarURL, c.Accepted, now, now)
	return err
}

// GetConversationBySender returns the conversation owned by the given
// sender id, or nil when no such conversation exists.
func (db *DB) GetConversationBySender(senderID string) (*Conversation, error) {
	var c Conversation
	err := db.QueryRow(`
		SELECT id, recipient_id, name, avatar_url, accepted
		FROM conversations
		WHERE recipient_id = ?`, senderID).
		Scan(&c.ID, &c.RecipientID, &c.Name, &c.AvatarURL, &c.Accepted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetConversation returns a conversation by id, or nil when absent.
func (db *DB) GetConversation(id string) (*Conversation, error) {
	var c Conversation
	err := db.QueryRow(`
		SELECT id, recipient_id, name, avatar_url, accepted
		FROM conversations
		WHERE id = ?`, id).
		Scan(&c.ID, &c.RecipientID, &c.Name, &c.AvatarURL, &c.Accepted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SetAccepted marks a conversation as accepted (or not).
func (db *DB) SetAccepted(id string, accepted bool) error {
	_, err := db.Exec(`
		UPDATE conversations SET accepted = ?, updated_at = ? WHERE id = ?`,
		accepted, time.Now().UnixMilli(), id)
	return err
}

// ListConversations returns conversations ordered by last update descending.
func (db *DB) ListConversations(limit, offset int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, recipient_id, name, avatar_url, accepted
		FROM conversations
		ORDER BY updated_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.RecipientID, &c.Name, &c.AvatarURL, &c.Accepted); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}
