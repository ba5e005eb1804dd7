package security

import (
	"crypto"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or signed
	// with the wrong key. Callers must not distinguish between these cases.
	ErrInvalidToken = errors.New("invalid token")
)

// AccessClaims holds JWT claims for the short-lived access token.
type AccessClaims struct {
	jwt.RegisteredClaims
}

// RefreshClaims holds JWT claims for the long-lived refresh token.
// The jti binds the token string to its persisted record.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// TokenProvider issues and validates JWT access and refresh tokens using RS256 or
// ES256. Access and refresh tokens are signed with separate key pairs, so a
// refresh token can never pass access verification or vice versa.
type TokenProvider struct {
	accessPrivate  crypto.Signer
	accessPublic   crypto.PublicKey
	refreshPrivate crypto.Signer
	refreshPublic  crypto.PublicKey
	issuer         string
	audience       string
	accessTTL      time.Duration
	refreshTTL     time.Duration
}

// NewTokenProvider returns a TokenProvider signing access tokens with the access
// key pair and refresh tokens with the refresh key pair (RS256 or ES256).
// issuer and audience are set on claims and validated on verification.
func NewTokenProvider(accessPrivate crypto.Signer, accessPublic crypto.PublicKey, refreshPrivate crypto.Signer, refreshPublic crypto.PublicKey, issuer, audience string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		accessPrivate:  accessPrivate,
		accessPublic:   accessPublic,
		refreshPrivate: refreshPrivate,
		refreshPublic:  refreshPublic,
		issuer:         issuer,
		audience:       audience,
		accessTTL:      accessTTL,
		refreshTTL:     refreshTTL,
	}
}

// AccessTTL returns the configured access token lifetime.
func (p *TokenProvider) AccessTTL() time.Duration { return p.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (p *TokenProvider) RefreshTTL() time.Duration { return p.refreshTTL }

// IssueAccess issues a short-lived access JWT for the given user.
// Returns the token string and its expiration time.
func (p *TokenProvider) IssueAccess(userID string) (token string, expiresAt time.Time, err error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(p.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err = sign(p.accessPrivate, claims)
	return token, expiresAt, err
}

// IssueRefresh issues a long-lived refresh JWT for the given user and returns
// the token string and its signature expiration. The persisted record's expiry
// is the authoritative one; the signature expiry only caps the token's life.
func (p *TokenProvider) IssueRefresh(userID string) (token string, expiresAt time.Time, err error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(p.refreshTTL)
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err = sign(p.refreshPrivate, claims)
	return token, expiresAt, err
}

func sign(key crypto.Signer, claims jwt.Claims) (string, error) {
	alg := KeyAlg(key.Public())
	if alg == "" {
		return "", ErrInvalidToken
	}
	t := jwt.NewWithClaims(jwt.GetSigningMethod(alg), claims)
	return t.SignedString(key)
}

// ValidateAccess parses and validates the access token (signature, exp, iss, aud)
// against the access public key. Returns the subject user ID, or ErrInvalidToken.
func (p *TokenProvider) ValidateAccess(tokenString string) (userID string, err error) {
	claims := &AccessClaims{}
	if err := p.parse(tokenString, p.accessPublic, claims); err != nil {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// ValidateRefresh parses and validates the refresh token (signature, exp, iss, aud)
// against the refresh public key. Returns the subject user ID, or ErrInvalidToken.
func (p *TokenProvider) ValidateRefresh(tokenString string) (userID string, err error) {
	claims := &RefreshClaims{}
	if err := p.parse(tokenString, p.refreshPublic, claims); err != nil {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (p *TokenProvider) parse(tokenString string, public crypto.PublicKey, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			return public, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
			return public, nil
		}
		return nil, ErrInvalidToken
	}, jwt.WithIssuer(p.issuer), jwt.WithAudience(p.audience))
	if err != nil {
		return ErrInvalidToken
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
