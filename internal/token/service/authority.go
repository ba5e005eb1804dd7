// Package service implements the token authority: stateless access-token
// issuance and verification plus stateful refresh-token rotation with
// reuse detection.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"community-platform/backend/internal/security"
	"community-platform/backend/internal/token/domain"
	"community-platform/backend/internal/token/repository"
)

// Sentinel errors for the token authority; transports map them to status codes.
var (
	ErrInvalidToken = errors.New("invalid or revoked token")
	ErrExpired      = errors.New("refresh token expired")
	ErrTimeout      = errors.New("token store timed out")
)

// Authority issues, verifies, and rotates session tokens. Access tokens are
// stateless; refresh tokens are backed by a store record whose absence on
// rotation is treated as a reuse (theft) signal.
type Authority struct {
	tokens       *security.TokenProvider
	repo         repository.Repository
	storeTimeout time.Duration
	log          zerolog.Logger
}

// NewAuthority returns an Authority with the given dependencies. storeTimeout
// bounds every store round trip; a blocked store surfaces ErrTimeout instead of
// hanging the caller.
func NewAuthority(tokens *security.TokenProvider, repo repository.Repository, storeTimeout time.Duration, log zerolog.Logger) *Authority {
	return &Authority{
		tokens:       tokens,
		repo:         repo,
		storeTimeout: storeTimeout,
		log:          log,
	}
}

// IssuePair issues a fresh access/refresh pair for the user and records the
// refresh token in the store. The stored expiry is the authoritative one.
func (a *Authority) IssuePair(ctx context.Context, userID string) (*domain.TokenPair, error) {
	access, accessExp, err := a.tokens.IssueAccess(userID)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := a.tokens.IssueRefresh(userID)
	if err != nil {
		return nil, err
	}
	rec := &domain.RefreshTokenRecord{
		TokenHash: security.HashRefreshToken(refresh),
		UserID:    userID,
		ExpiresAt: refreshExp,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.insert(ctx, rec); err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		UserID:           userID,
	}, nil
}

// VerifyAccess checks the access token's signature and expiry only. It never
// touches the store, and all failures collapse to ErrInvalidToken.
func (a *Authority) VerifyAccess(token string) (userID string, err error) {
	userID, err = a.tokens.ValidateAccess(token)
	if err != nil {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// Rotate exchanges a refresh token for a fresh access/refresh pair. The old
// record is consumed atomically; a verifiable token with no live record means
// the token was already rotated or revoked and is rejected as a reuse signal.
// Only one of two concurrent rotations with the same token can succeed.
func (a *Authority) Rotate(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	userID, err := a.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	hash := security.HashRefreshToken(refreshToken)
	rec, err := a.consume(ctx, hash)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		// Signature checked out but no live record exists: the token was
		// already rotated or revoked. Mass revocation of the subject's other
		// sessions is a deployment policy, not done here.
		a.log.Warn().Str("user_id", userID).Msg("refresh token reuse detected")
		return nil, ErrInvalidToken
	}
	if rec.UserID != userID {
		return nil, ErrInvalidToken
	}
	if time.Now().After(rec.ExpiresAt) {
		// The consume already removed the stale record.
		return nil, ErrExpired
	}

	return a.IssuePair(ctx, userID)
}

// Logout deletes the refresh token's record. Idempotent: an unknown or
// malformed token is not an error.
func (a *Authority) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.storeTimeout)
	defer cancel()
	if err := a.repo.DeleteByTokenHash(ctx, security.HashRefreshToken(refreshToken)); err != nil {
		return a.storeErr(err)
	}
	return nil
}

// RevokeAllForUser deletes every refresh-token record for the user, ending all
// of their refresh lineages. Access tokens already issued remain valid until
// they expire.
func (a *Authority) RevokeAllForUser(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, a.storeTimeout)
	defer cancel()
	if err := a.repo.DeleteAllByUser(ctx, userID); err != nil {
		return a.storeErr(err)
	}
	return nil
}

func (a *Authority) insert(ctx context.Context, rec *domain.RefreshTokenRecord) error {
	ctx, cancel := context.WithTimeout(ctx, a.storeTimeout)
	defer cancel()
	if err := a.repo.Insert(ctx, rec); err != nil {
		return a.storeErr(err)
	}
	return nil
}

func (a *Authority) consume(ctx context.Context, hash string) (*domain.RefreshTokenRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, a.storeTimeout)
	defer cancel()
	rec, err := a.repo.Consume(ctx, hash)
	if err != nil {
		return nil, a.storeErr(err)
	}
	return rec, nil
}

func (a *Authority) storeErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return fmt.Errorf("token store: %w", err)
}
