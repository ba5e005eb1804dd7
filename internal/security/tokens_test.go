package security

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAccess_ValidateRoundTrip(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, expiresAt, err := p.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if token == "" {
		t.Fatal("IssueAccess returned empty token")
	}
	if !expiresAt.After(time.Now()) {
		t.Errorf("expiresAt = %v, should be in the future", expiresAt)
	}
	userID, err := p.ValidateAccess(token)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("userID = %q, want %q", userID, "user-1")
	}
}

func TestIssueRefresh_ValidateRoundTrip(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, _, err := p.IssueRefresh("user-2")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	userID, err := p.ValidateRefresh(token)
	if err != nil {
		t.Fatalf("ValidateRefresh: %v", err)
	}
	if userID != "user-2" {
		t.Errorf("userID = %q, want %q", userID, "user-2")
	}
}

func TestValidate_CrossKindRejected(t *testing.T) {
	// Access and refresh tokens use separate key pairs, so each must fail the
	// other's verification even though the claim shapes match.
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	access, _, err := p.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	refresh, _, err := p.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if _, err := p.ValidateRefresh(access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateRefresh(access) = %v, want ErrInvalidToken", err)
	}
	if _, err := p.ValidateAccess(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateAccess(refresh) = %v, want ErrInvalidToken", err)
	}
}

func TestValidateAccess_Malformed(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if _, err := p.ValidateAccess(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ValidateAccess(%q) = %v, want ErrInvalidToken", tok, err)
		}
	}
}

func TestValidateAccess_Expired(t *testing.T) {
	p, err := NewTestTokenProviderTTL(-1*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewTestTokenProviderTTL: %v", err)
	}
	token, _, err := p.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := p.ValidateAccess(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateAccess(expired) = %v, want ErrInvalidToken", err)
	}
}

func TestValidate_WrongIssuer(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	accessPriv, _ := ParsePrivateKey(testPrivateKeyPEM)
	accessPub, _ := ParsePublicKey(testPublicKeyPEM)
	refreshPriv, _ := ParsePrivateKey(testRefreshPrivateKeyPEM)
	refreshPub, _ := ParsePublicKey(testRefreshPublicKeyPEM)
	other := NewTokenProvider(accessPriv, accessPub, refreshPriv, refreshPub, "other-issuer", "test-audience", 15*time.Minute, 24*time.Hour)

	token, _, err := other.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := p.ValidateAccess(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateAccess(wrong issuer) = %v, want ErrInvalidToken", err)
	}
}
