package repository

import (
	"context"
	"database/sql"
	"errors"

	"community-platform/backend/internal/community/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a community repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the community for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Community, error) {
	const query = `SELECT id, name, owner_id, created_at FROM communities WHERE id = $1`
	c := &domain.Community{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.OwnerID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// Create persists the community to the database. The community must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Community) error {
	const query = `INSERT INTO communities (id, name, owner_id, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.OwnerID, c.CreatedAt)
	return err
}
