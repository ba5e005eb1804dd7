package domain

import "time"

// RefreshTokenRecord is the persisted side of a refresh token. The raw token is
// never stored; records are keyed by its SHA-256 hash. Exactly one live record
// exists per rotation lineage: rotation consumes the old record and inserts a
// new one in its place.
type RefreshTokenRecord struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenPair is an access/refresh token pair issued to one subject.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	UserID           string
}
