package repository

import (
	"context"
	"time"

	"community-platform/backend/internal/membership/domain"
)

// Repository defines persistence for memberships.
type Repository interface {
	GetByUserAndCommunity(ctx context.Context, userID, communityID string) (*domain.Membership, error)
	Create(ctx context.Context, m *domain.Membership) error
	UpdateRole(ctx context.Context, id string, role domain.Role) error
	UpdateMuted(ctx context.Context, id string, muted bool, until *time.Time) error
	UpdateBanned(ctx context.Context, id string, banned bool) error
	Delete(ctx context.Context, id string) error
}
