package repository

import (
	"context"
	"database/sql"
	"errors"

	"community-platform/backend/internal/token/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a refresh-token repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert persists the refresh-token record.
func (r *PostgresRepository) Insert(ctx context.Context, rec *domain.RefreshTokenRecord) error {
	const query = `INSERT INTO refresh_tokens (token_hash, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, rec.TokenHash, rec.UserID, rec.ExpiresAt, rec.CreatedAt)
	return err
}

// FindByTokenHash returns the record for the hash, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*domain.RefreshTokenRecord, error) {
	const query = `SELECT token_hash, user_id, expires_at, created_at FROM refresh_tokens WHERE token_hash = $1`
	rec := &domain.RefreshTokenRecord{}
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(&rec.TokenHash, &rec.UserID, &rec.ExpiresAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// Consume deletes the record for the hash and returns it in one statement.
// The row delete is the compare-and-swap: of two concurrent rotations for the
// same token, only one sees the row; the other gets (nil, nil).
func (r *PostgresRepository) Consume(ctx context.Context, tokenHash string) (*domain.RefreshTokenRecord, error) {
	const query = `DELETE FROM refresh_tokens WHERE token_hash = $1 RETURNING token_hash, user_id, expires_at, created_at`
	rec := &domain.RefreshTokenRecord{}
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(&rec.TokenHash, &rec.UserID, &rec.ExpiresAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// DeleteByTokenHash removes the record for the hash. No-op if absent.
func (r *PostgresRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	const query = `DELETE FROM refresh_tokens WHERE token_hash = $1`
	_, err := r.db.ExecContext(ctx, query, tokenHash)
	return err
}

// DeleteAllByUser removes every refresh-token record for the user.
func (r *PostgresRepository) DeleteAllByUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM refresh_tokens WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}
