package repository

import (
	"context"

	"community-platform/backend/internal/token/domain"
)

// Repository defines persistence for refresh-token records.
type Repository interface {
	// Insert persists a new refresh-token record.
	Insert(ctx context.Context, rec *domain.RefreshTokenRecord) error
	// FindByTokenHash returns the record for the hash, or nil if not found.
	FindByTokenHash(ctx context.Context, tokenHash string) (*domain.RefreshTokenRecord, error)
	// Consume atomically deletes the record for the hash and returns it.
	// Returns nil with no error when no record exists; of two concurrent
	// Consume calls for the same hash, exactly one receives the record.
	Consume(ctx context.Context, tokenHash string) (*domain.RefreshTokenRecord, error)
	// DeleteByTokenHash removes the record for the hash. No-op if absent.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	// DeleteAllByUser removes every record for the user (mass revocation).
	DeleteAllByUser(ctx context.Context, userID string) error
}
