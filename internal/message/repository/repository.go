package repository

import (
	"context"
	"time"

	"community-platform/backend/internal/message/domain"
)

// Repository defines persistence for channel messages.
type Repository interface {
	// Insert persists a new message together with its attachments.
	Insert(ctx context.Context, m *domain.Message) error
	// GetByID returns the message with attachments, or nil if not found.
	// Soft-deleted messages are still returned; callers check DeletedAt.
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	// UpdateContent replaces the message body and stamps edited_at.
	UpdateContent(ctx context.Context, id, content string, editedAt time.Time) error
	// SoftDelete marks the message deleted and clears its body. The row stays
	// so id-based pagination over history remains stable.
	SoftDelete(ctx context.Context, id string, deletedAt time.Time) error
	// ListByChannel returns up to limit messages for the channel, newest
	// first. A non-empty beforeID anchors the page strictly before that
	// message.
	ListByChannel(ctx context.Context, channelID, beforeID string, limit int) ([]*domain.Message, error)
}
