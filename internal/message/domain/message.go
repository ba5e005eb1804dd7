// Package domain defines the channel message model.
package domain

import (
	"strings"
	"time"
)

// Message is a persisted channel message. Deletes are soft: DeletedAt is set
// and the body cleared, so id-based pagination stays stable.
type Message struct {
	ID          string
	ChannelID   string
	SenderID    string
	Content     string
	Attachments []Attachment
	CreatedAt   time.Time
	EditedAt    *time.Time
	DeletedAt   *time.Time
}

// Attachment is a media reference carried by a message.
type Attachment struct {
	ID        string
	MessageID string
	URL       string
	MimeType  string
}

// Empty reports whether the message carries neither text nor attachments.
func (m *Message) Empty() bool {
	return strings.TrimSpace(m.Content) == "" && len(m.Attachments) == 0
}

// Deleted reports whether the message has been soft deleted.
func (m *Message) Deleted() bool {
	return m.DeletedAt != nil
}
