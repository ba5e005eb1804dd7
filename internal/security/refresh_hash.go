package security

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashRefreshToken returns the hex-encoded SHA-256 digest of the refresh token
// string. Refresh-token records are keyed by this digest so the raw token is
// never persisted; rotation and logout look records up by the same digest.
func HashRefreshToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
