package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"community-platform/backend/internal/message/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a message repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert persists the message and its attachments in one transaction.
func (r *PostgresRepository) Insert(ctx context.Context, m *domain.Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const insertMessage = `INSERT INTO messages (id, channel_id, sender_id, content, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, insertMessage, m.ID, m.ChannelID, m.SenderID, m.Content, m.CreatedAt); err != nil {
		return err
	}

	const insertAttachment = `INSERT INTO message_attachments (id, message_id, url, mime_type) VALUES ($1, $2, $3, $4)`
	for _, a := range m.Attachments {
		mime := sql.NullString{String: a.MimeType, Valid: a.MimeType != ""}
		if _, err := tx.ExecContext(ctx, insertAttachment, a.ID, m.ID, a.URL, mime); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID returns the message with attachments, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	const query = `SELECT id, channel_id, sender_id, content, created_at, edited_at, deleted_at FROM messages WHERE id = $1`
	m, err := r.scanMessage(r.db.QueryRowContext(ctx, query, id))
	if err != nil || m == nil {
		return nil, err
	}
	if err := r.loadAttachments(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateContent replaces the message body and stamps edited_at.
func (r *PostgresRepository) UpdateContent(ctx context.Context, id, content string, editedAt time.Time) error {
	const query = `UPDATE messages SET content = $2, edited_at = $3 WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, id, content, editedAt)
	return err
}

// SoftDelete marks the message deleted and clears its body.
func (r *PostgresRepository) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	const query = `UPDATE messages SET content = '', deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, id, deletedAt)
	return err
}

// ListByChannel returns up to limit messages newest first. A non-empty
// beforeID anchors the page strictly before that message's position.
func (r *PostgresRepository) ListByChannel(ctx context.Context, channelID, beforeID string, limit int) ([]*domain.Message, error) {
	const query = `
		SELECT id, channel_id, sender_id, content, created_at, edited_at, deleted_at
		FROM messages
		WHERE channel_id = $1
		  AND ($2 = '' OR (created_at, id) < (SELECT created_at, id FROM messages WHERE id = $2))
		ORDER BY created_at DESC, id DESC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, channelID, beforeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		m, err := r.scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, m := range messages {
		if err := r.loadAttachments(ctx, m); err != nil {
			return nil, err
		}
	}
	return messages, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scanMessage(row rowScanner) (*domain.Message, error) {
	m := &domain.Message{}
	var editedAt, deletedAt sql.NullTime
	err := row.Scan(&m.ID, &m.ChannelID, &m.SenderID, &m.Content, &m.CreatedAt, &editedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if editedAt.Valid {
		m.EditedAt = &editedAt.Time
	}
	if deletedAt.Valid {
		m.DeletedAt = &deletedAt.Time
	}
	return m, nil
}

func (r *PostgresRepository) loadAttachments(ctx context.Context, m *domain.Message) error {
	const query = `SELECT id, message_id, url, mime_type FROM message_attachments WHERE message_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, m.ID)
	if err != nil {
		return fmt.Errorf("loading attachments for message %s: %w", m.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var a domain.Attachment
		var mime sql.NullString
		if err := rows.Scan(&a.ID, &a.MessageID, &a.URL, &mime); err != nil {
			return err
		}
		a.MimeType = mime.String
		m.Attachments = append(m.Attachments, a)
	}
	return rows.Err()
}
