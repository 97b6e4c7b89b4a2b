package domain

import (
	"github.com/google/uuid"
)

const DeletedMessageContent = "This message was deleted"

// Message represents one chat message as persisted and fanned out.
// Deletion is a soft tombstone so history keeps its shape.
type Message struct {
	ID        uuid.UUID         `json:"id"`
	ChatID    string            `json:"chat_id"`
	SenderID  string            `json:"sender_id"`
	Content   string            `json:"content"`
	Kind      string            `json:"type"`
	Language  string            `json:"language,omitempty"`
	ReplyTo   string            `json:"reply_to,omitempty"`
	Timestamp int64             `json:"timestamp"`
	IsDeleted bool              `json:"is_deleted"`
	Reactions map[string]string `json:"reactions,omitempty"`
}

// Tombstone blanks the message in place, keeping ID and position.
func (m *Message) Tombstone() {
	m.IsDeleted = true
	m.Content = DeletedMessageContent
	m.Kind = "deleted"
}

// PinnedMessage is the lightweight pin info returned with chat history.
type PinnedMessage struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}
