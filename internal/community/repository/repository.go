package repository

import (
	"context"

	"community-platform/backend/internal/community/domain"
)

// Repository defines persistence for communities.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Community, error)
	Create(ctx context.Context, c *domain.Community) error
}
