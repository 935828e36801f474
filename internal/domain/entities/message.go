package entities

import "time"

// Message is a direct message between two users
type Message struct {
	ID         int64      `json:"id" db:"id"`
	SenderID   int64      `json:"sender_id" db:"sender_id"`
	ReceiverID int64      `json:"receiver_id" db:"receiver_id"`
	Content    string     `json:"content" db:"content"`
	IsRead     bool       `json:"is_read" db:"is_read"`
	ReadAt     *time.Time `json:"read_at" db:"read_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// IsParticipant reports whether the user sent or received the message
func (m *Message) IsParticipant(userID int64) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// MarkRead flips the message to read. It returns false, leaving ReadAt
// untouched, when the message was already read.
func (m *Message) MarkRead(at time.Time) bool {
	if m.IsRead {
		return false
	}
	m.IsRead = true
	m.ReadAt = &at
	return true
}
