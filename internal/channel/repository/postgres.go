package repository

import (
	"context"
	"database/sql"
	"errors"

	"community-platform/backend/internal/channel/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a channel repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the channel for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Channel, error) {
	const query = `SELECT id, community_id, name, created_at FROM channels WHERE id = $1`
	c := &domain.Channel{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.CommunityID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// ListByCommunity returns all channels for the given community. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByCommunity(ctx context.Context, communityID string) ([]*domain.Channel, error) {
	const query = `SELECT id, community_id, name, created_at FROM channels WHERE community_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, communityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Channel
	for rows.Next() {
		c := &domain.Channel{}
		if err := rows.Scan(&c.ID, &c.CommunityID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create persists the channel to the database. The channel must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Channel) error {
	const query = `INSERT INTO channels (id, community_id, name, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.CommunityID, c.Name, c.CreatedAt)
	return err
}
