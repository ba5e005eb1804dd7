package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	identitydomain "community-platform/backend/internal/identity/domain"
	"community-platform/backend/internal/security"
	tokendomain "community-platform/backend/internal/token/domain"
	tokenservice "community-platform/backend/internal/token/service"
	userdomain "community-platform/backend/internal/user/domain"
)

type memUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*userdomain.User
	byEmail map[string]*userdomain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: make(map[string]*userdomain.User), byEmail: make(map[string]*userdomain.User)}
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byEmail[email], nil
}

func (r *memUserRepo) Create(ctx context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u
	return nil
}

type memIdentityRepo struct {
	mu sync.Mutex
	m  map[string]*identitydomain.Identity
}

func newMemIdentityRepo() *memIdentityRepo {
	return &memIdentityRepo{m: make(map[string]*identitydomain.Identity)}
}

func (r *memIdentityRepo) GetByUserAndProvider(ctx context.Context, userID string, provider identitydomain.IdentityProvider) (*identitydomain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.m {
		if i.UserID == userID && i.Provider == provider {
			return i, nil
		}
	}
	return nil, nil
}

func (r *memIdentityRepo) Create(ctx context.Context, i *identitydomain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[i.ID] = i
	return nil
}

type memTokenRepo struct {
	mu sync.Mutex
	m  map[string]*tokendomain.RefreshTokenRecord
}

func (r *memTokenRepo) Insert(ctx context.Context, rec *tokendomain.RefreshTokenRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[rec.TokenHash] = rec
	return nil
}

func (r *memTokenRepo) FindByTokenHash(ctx context.Context, hash string) (*tokendomain.RefreshTokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[hash], nil
}

func (r *memTokenRepo) Consume(ctx context.Context, hash string) (*tokendomain.RefreshTokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.m[hash]
	if !ok {
		return nil, nil
	}
	delete(r.m, hash)
	return rec, nil
}

func (r *memTokenRepo) DeleteByTokenHash(ctx context.Context, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, hash)
	return nil
}

func (r *memTokenRepo) DeleteAllByUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, rec := range r.m {
		if rec.UserID == userID {
			delete(r.m, k)
		}
	}
	return nil
}

func newTestAuthService(t *testing.T) (*AuthService, *memUserRepo) {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	authority := tokenservice.NewAuthority(tokens, &memTokenRepo{m: make(map[string]*tokendomain.RefreshTokenRecord)}, time.Second, zerolog.Nop())
	users := newMemUserRepo()
	svc := NewAuthService(users, newMemIdentityRepo(), security.NewHasher(4), authority)
	return svc, users
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice@Example.com", "Str0ngPassword!", "Alice")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized lowercase", user.Email)
	}

	pair, err := svc.Login(ctx, "alice@example.com", "Str0ngPassword!")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("Login returned empty tokens")
	}
	if pair.UserID != user.ID {
		t.Errorf("pair.UserID = %q, want %q", pair.UserID, user.ID)
	}
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "bob@example.com", "Str0ngPassword!", "Bob"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, "bob@example.com", "Str0ngPassword!", "Bob"); !errors.Is(err, ErrEmailAlreadyRegistered) {
		t.Errorf("second Register = %v, want ErrEmailAlreadyRegistered", err)
	}
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"empty email", "", "Str0ngPassword!"},
		{"bad email", "not-an-email", "Str0ngPassword!"},
		{"short password", "carol@example.com", "Short1"},
		{"no uppercase", "carol@example.com", "weakpassword1"},
		{"no number", "carol@example.com", "WeakPassword!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tc.email, tc.password, ""); err == nil {
				t.Error("Register should fail")
			}
		})
	}
}

func TestAuthService_LoginWrongPassword(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "dave@example.com", "Str0ngPassword!", "Dave"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Login(ctx, "dave@example.com", "WrongPassword1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "Str0ngPassword!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login unknown user = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthService_LoginDisabledUser(t *testing.T) {
	svc, users := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "eve@example.com", "Str0ngPassword!", "Eve")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	users.mu.Lock()
	users.byEmail[user.Email].Status = userdomain.UserStatusDisabled
	users.mu.Unlock()

	if _, err := svc.Login(ctx, "eve@example.com", "Str0ngPassword!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login disabled = %v, want ErrInvalidCredentials", err)
	}
}
