package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a chat message. A message created locally (optimistic send) has
// Pending set and carries a client-generated LocalID until the server-confirmed
// copy replaces it.
type Message struct {
	ID             string    `json:"id"`
	LocalID        string    `json:"localId,omitempty"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"createdAt"`
	Pending        bool      `json:"-"`
}

// NewPendingMessage builds an optimistic (not yet server-confirmed) message
// with a client-generated local ID. The server copy replaces it once delivery
// is confirmed (see ReconcilesWith).
func NewPendingMessage(conversationID, senderID, body string) Message {
	return Message{
		LocalID:        uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      time.Now(),
		Pending:        true,
	}
}

// ReconcilesWith reports whether confirmed is the server copy of this pending
// message: same sender and body, created within the given window. Messages
// that already share a server ID trivially reconcile.
func (m *Message) ReconcilesWith(confirmed *Message, window time.Duration) bool {
	if m.ID != "" && m.ID == confirmed.ID {
		return true
	}
	if !m.Pending {
		return false
	}
	if m.SenderID != confirmed.SenderID || m.Body != confirmed.Body {
		return false
	}
	d := confirmed.CreatedAt.Sub(m.CreatedAt)
	if d < 0 {
		d = -d
	}
	return d <= window
}

// Conversation is one thread in the messages slice of the snapshot.
type Conversation struct {
	ID          string    `json:"id"`
	Title       string    `json:"title,omitempty"`
	LastMessage *Message  `json:"lastMessage,omitempty"`
	UnreadCount int       `json:"unreadCount"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
