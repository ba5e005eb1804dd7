package repository

import (
	"context"

	"community-platform/backend/internal/channel/domain"
)

// Repository defines persistence for channels.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Channel, error)
	ListByCommunity(ctx context.Context, communityID string) ([]*domain.Channel, error)
	Create(ctx context.Context, c *domain.Channel) error
}
