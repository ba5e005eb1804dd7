package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"community-platform/backend/internal/membership/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a membership repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByUserAndCommunity returns the membership for the given user and community, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByUserAndCommunity(ctx context.Context, userID, communityID string) (*domain.Membership, error) {
	const query = `SELECT id, user_id, community_id, role, can_send_messages, can_send_media,
		can_pin_messages, is_banned, is_muted, muted_until, created_at
		FROM memberships WHERE user_id = $1 AND community_id = $2`
	m := &domain.Membership{}
	var role string
	var mutedUntil sql.NullTime
	err := r.db.QueryRowContext(ctx, query, userID, communityID).Scan(
		&m.ID, &m.UserID, &m.CommunityID, &role, &m.CanSendMessages, &m.CanSendMedia,
		&m.CanPinMessages, &m.IsBanned, &m.IsMuted, &mutedUntil, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.Role = domain.Role(role)
	if mutedUntil.Valid {
		m.MutedUntil = &mutedUntil.Time
	}
	return m, nil
}

// Create persists the membership to the database. The membership must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, m *domain.Membership) error {
	const query = `INSERT INTO memberships (id, user_id, community_id, role, can_send_messages,
		can_send_media, can_pin_messages, is_banned, is_muted, muted_until, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	var mutedUntil sql.NullTime
	if m.MutedUntil != nil {
		mutedUntil = sql.NullTime{Time: *m.MutedUntil, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, query, m.ID, m.UserID, m.CommunityID, string(m.Role),
		m.CanSendMessages, m.CanSendMedia, m.CanPinMessages, m.IsBanned, m.IsMuted, mutedUntil, m.CreatedAt)
	return err
}

// UpdateRole sets the membership's role.
func (r *PostgresRepository) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	const query = `UPDATE memberships SET role = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, string(role))
	return err
}

// UpdateMuted sets the membership's mute state and optional expiry in one statement.
func (r *PostgresRepository) UpdateMuted(ctx context.Context, id string, muted bool, until *time.Time) error {
	const query = `UPDATE memberships SET is_muted = $2, muted_until = $3 WHERE id = $1`
	var mutedUntil sql.NullTime
	if until != nil {
		mutedUntil = sql.NullTime{Time: *until, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, query, id, muted, mutedUntil)
	return err
}

// UpdateBanned sets the membership's banned flag.
func (r *PostgresRepository) UpdateBanned(ctx context.Context, id string, banned bool) error {
	const query = `UPDATE memberships SET is_banned = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, banned)
	return err
}

// Delete removes the membership row.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM memberships WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
