package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	channeldomain "community-platform/backend/internal/channel/domain"
	communitydomain "community-platform/backend/internal/community/domain"
	identityservice "community-platform/backend/internal/identity/service"
	membershipdomain "community-platform/backend/internal/membership/domain"
	membershipservice "community-platform/backend/internal/membership/service"
	messagedomain "community-platform/backend/internal/message/domain"
	messageservice "community-platform/backend/internal/message/service"
	tokendomain "community-platform/backend/internal/token/domain"
	tokenservice "community-platform/backend/internal/token/service"
	userdomain "community-platform/backend/internal/user/domain"
)

type fakeAuth struct {
	registerErr error
	loginErr    error
}

func (f *fakeAuth) Register(_ context.Context, email, _, name string) (*userdomain.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &userdomain.User{ID: "u-1", Email: email, Name: name}, nil
}

func (f *fakeAuth) Login(context.Context, string, string) (*tokendomain.TokenPair, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return testPair(), nil
}

type fakeTokens struct {
	verifyErr error
	rotateErr error
	logoutErr error
}

func (f *fakeTokens) VerifyAccess(string) (string, error) {
	if f.verifyErr != nil {
		return "", f.verifyErr
	}
	return "u-1", nil
}

func (f *fakeTokens) Rotate(context.Context, string) (*tokendomain.TokenPair, error) {
	if f.rotateErr != nil {
		return nil, f.rotateErr
	}
	return testPair(), nil
}

func (f *fakeTokens) Logout(context.Context, string) error {
	return f.logoutErr
}

type fakeMessages struct {
	sendErr error
	listErr error
}

func (f *fakeMessages) Send(_ context.Context, senderID, channelID, content string, _ []messagedomain.Attachment) (*messagedomain.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &messagedomain.Message{ID: "m-1", ChannelID: channelID, SenderID: senderID, Content: content, CreatedAt: time.Now()}, nil
}

func (f *fakeMessages) List(_ context.Context, _, channelID, _ string, _ int) ([]*messagedomain.Message, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return []*messagedomain.Message{{ID: "m-1", ChannelID: channelID, SenderID: "u-2", Content: "hi"}}, nil
}

func testPair() *tokendomain.TokenPair {
	now := time.Now()
	return &tokendomain.TokenPair{
		AccessToken:      "access",
		RefreshToken:     "refresh",
		AccessExpiresAt:  now.Add(15 * time.Minute),
		RefreshExpiresAt: now.Add(720 * time.Hour),
		UserID:           "u-1",
	}
}

type fakeModeration struct {
	role      membershipdomain.Role
	roleErr   error
	actionErr error
	calls     []string
}

func (f *fakeModeration) RoleOf(context.Context, string, string) (membershipdomain.Role, error) {
	return f.role, f.roleErr
}

func (f *fakeModeration) ChangeRole(_ context.Context, _, _, _ string, role membershipdomain.Role) error {
	f.calls = append(f.calls, "role:"+string(role))
	return f.actionErr
}

func (f *fakeModeration) SetMuted(_ context.Context, _, _, _ string, muted bool, _ *time.Time) error {
	f.calls = append(f.calls, fmt.Sprintf("mute:%v", muted))
	return f.actionErr
}

func (f *fakeModeration) SetBanned(_ context.Context, _, _, _ string, banned bool) error {
	f.calls = append(f.calls, fmt.Sprintf("ban:%v", banned))
	return f.actionErr
}

func (f *fakeModeration) Remove(context.Context, string, string, string) error {
	f.calls = append(f.calls, "remove")
	return f.actionErr
}

type fakeChannels struct{}

func (fakeChannels) ListByCommunity(_ context.Context, communityID string) ([]*channeldomain.Channel, error) {
	return []*channeldomain.Channel{{ID: "ch-1", CommunityID: communityID, Name: "general"}}, nil
}

type fakeCommunities struct {
	missing bool
}

func (f fakeCommunities) GetByID(_ context.Context, id string) (*communitydomain.Community, error) {
	if f.missing {
		return nil, nil
	}
	return &communitydomain.Community{ID: id, Name: "Acme", OwnerID: "u-1"}, nil
}

func newTestServer(auth *fakeAuth, tokens *fakeTokens, messages *fakeMessages) *Server {
	return newTestServerMod(auth, tokens, messages, &fakeModeration{role: membershipdomain.RoleMember})
}

func newTestServerMod(auth *fakeAuth, tokens *fakeTokens, messages *fakeMessages, mod *fakeModeration) *Server {
	ws := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusSwitchingProtocols) }
	svc := Services{Auth: auth, Tokens: tokens, Messages: messages, Moderation: mod, Channels: fakeChannels{}, Communities: fakeCommunities{}}
	return New(":0", svc, ws, zerolog.Nop())
}

func do(t *testing.T, s *Server, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRegister(t *testing.T) {
	s := newTestServer(&fakeAuth{}, &fakeTokens{}, &fakeMessages{})

	rec := do(t, s, http.MethodPost, "/v1/auth/register", `{"email":"a@b.io","password":"Str0ngPassword!","name":"A"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.Email != "a@b.io" {
		t.Errorf("email = %q", resp.Email)
	}
}

func TestRegisterErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "duplicate email", err: identityservice.ErrEmailAlreadyRegistered, want: http.StatusConflict},
		{name: "validation", err: identityservice.ErrValidation, want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(&fakeAuth{registerErr: tc.err}, &fakeTokens{}, &fakeMessages{})
			rec := do(t, s, http.MethodPost, "/v1/auth/register", `{"email":"a@b.io","password":"x","name":"A"}`, "")
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(&fakeAuth{}, &fakeTokens{}, &fakeMessages{})

	rec := do(t, s, http.MethodPost, "/v1/auth/login", `{"email":"a@b.io","password":"pw"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp tokenPairResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("token pair incomplete")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	s := newTestServer(&fakeAuth{loginErr: identityservice.ErrInvalidCredentials}, &fakeTokens{}, &fakeMessages{})

	rec := do(t, s, http.MethodPost, "/v1/auth/login", `{"email":"a@b.io","password":"wrong"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRefresh(t *testing.T) {
	s := newTestServer(&fakeAuth{}, &fakeTokens{}, &fakeMessages{})

	rec := do(t, s, http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"r"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/v1/auth/refresh", `{}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status without token = %d, want 400", rec.Code)
	}
}

func TestRefreshRejected(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "reused token", err: tokenservice.ErrInvalidToken, want: http.StatusUnauthorized},
		{name: "expired token", err: tokenservice.ErrExpired, want: http.StatusUnauthorized},
		{name: "store timeout", err: tokenservice.ErrTimeout, want: http.StatusGatewayTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(&fakeAuth{}, &fakeTokens{rotateErr: tc.err}, &fakeMessages{})
			rec := do(t, s, http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"r"}`, "")
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestLogout(t *testing.T) {
	s := newTestServer(&fakeAuth{}, &fakeTokens{}, &fakeMessages{})

	rec := do(t, s, http.MethodPost, "/v1/auth/logout", `{"refresh_token":"r"}`, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(&fakeAuth{}, &fakeTokens{}, &fakeMessages{})

	rec := do(t, s, http.MethodGet, "/v1/channels/ch-1/messages", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without bearer = %d, want 401", rec.Code)
	}

	s = newTestServer(&fakeAuth{}, &fakeTokens{verifyErr: tokenservice.ErrInvalidToken}, &fakeMessages{})
	rec = do(t, s, http.MethodGet, "/v1/channels/ch-1/messages", "", "bad-token")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status with bad bearer = %d, want 401", rec.Code)
	}
}

func TestListMessages(t *testing.T) {
	s := newTestServer(&fakeAuth{}, &fakeTokens{}, &fakeMessages{})

	rec := do(t, s, http.MethodGet, "/v1/channels/ch-1/messages?limit=10", "", "good")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Messages []messageResponse `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].ChannelID != "ch-1" {
		t.Errorf("messages = %+v", resp.Messages)
	}
}

func TestListMessagesForbidden(t *testing.T) {
	s := newTestServer(&fakeAuth{}, &fakeTokens{}, &fakeMessages{listErr: membershipservice.ErrForbidden})

	rec := do(t, s, http.MethodGet, "/v1/channels/ch-1/messages", "", "good")
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestSendMessage(t *testing.T) {
	s := newTestServer(&fakeAuth{}, &fakeTokens{}, &fakeMessages{})

	rec := do(t, s, http.MethodPost, "/v1/channels/ch-1/messages", `{"content":"hello"}`, "good")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	var resp messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.SenderID != "u-1" {
		t.Errorf("sender = %q, want the authenticated user", resp.SenderID)
	}
}

func TestSendMessageErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "empty message", err: messageservice.ErrEmptyMessage, want: http.StatusBadRequest},
		{name: "forbidden", err: membershipservice.ErrForbidden, want: http.StatusForbidden},
		{name: "storage failure", err: messageservice.ErrStorage, want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(&fakeAuth{}, &fakeTokens{}, &fakeMessages{sendErr: tc.err})
			rec := do(t, s, http.MethodPost, "/v1/channels/ch-1/messages", `{"content":"hello"}`, "good")
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestListChannels(t *testing.T) {
	s := newTestServer(&fakeAuth{}, &fakeTokens{}, &fakeMessages{})

	rec := do(t, s, http.MethodGet, "/v1/communities/co-1/channels", "", "good")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Channels []channelItem `json:"channels"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(resp.Channels) != 1 || resp.Channels[0].Name != "general" {
		t.Errorf("channels = %+v", resp.Channels)
	}
}

func TestListChannelsNonMember(t *testing.T) {
	mod := &fakeModeration{role: membershipdomain.RoleNone}
	s := newTestServerMod(&fakeAuth{}, &fakeTokens{}, &fakeMessages{}, mod)

	rec := do(t, s, http.MethodGet, "/v1/communities/co-1/channels", "", "good")
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestChangeRole(t *testing.T) {
	mod := &fakeModeration{role: membershipdomain.RoleAdmin}
	s := newTestServerMod(&fakeAuth{}, &fakeTokens{}, &fakeMessages{}, mod)

	rec := do(t, s, http.MethodPut, "/v1/communities/co-1/members/u-2/role", `{"role":"moderator"}`, "good")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", rec.Code, rec.Body)
	}
	if len(mod.calls) != 1 || mod.calls[0] != "role:moderator" {
		t.Errorf("calls = %v", mod.calls)
	}

	rec = do(t, s, http.MethodPut, "/v1/communities/co-1/members/u-2/role", `{"role":"owner"}`, "good")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status for owner role = %d, want 400", rec.Code)
	}
}

func TestChangeRoleForbidden(t *testing.T) {
	mod := &fakeModeration{actionErr: membershipservice.ErrForbidden}
	s := newTestServerMod(&fakeAuth{}, &fakeTokens{}, &fakeMessages{}, mod)

	rec := do(t, s, http.MethodPut, "/v1/communities/co-1/members/u-2/role", `{"role":"member"}`, "good")
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestMuteAndBan(t *testing.T) {
	mod := &fakeModeration{}
	s := newTestServerMod(&fakeAuth{}, &fakeTokens{}, &fakeMessages{}, mod)

	rec := do(t, s, http.MethodPut, "/v1/communities/co-1/members/u-2/mute", `{"muted":true,"until":"2030-01-01T00:00:00Z"}`, "good")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("mute status = %d, want 204", rec.Code)
	}
	rec = do(t, s, http.MethodPut, "/v1/communities/co-1/members/u-2/ban", `{"banned":true}`, "good")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("ban status = %d, want 204", rec.Code)
	}
	if len(mod.calls) != 2 || mod.calls[0] != "mute:true" || mod.calls[1] != "ban:true" {
		t.Errorf("calls = %v", mod.calls)
	}
}

func TestRemoveMember(t *testing.T) {
	mod := &fakeModeration{}
	s := newTestServerMod(&fakeAuth{}, &fakeTokens{}, &fakeMessages{}, mod)

	rec := do(t, s, http.MethodDelete, "/v1/communities/co-1/members/u-2", "", "good")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	mod.actionErr = membershipservice.ErrNotMember
	rec = do(t, s, http.MethodDelete, "/v1/communities/co-1/members/u-ghost", "", "good")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status for unknown member = %d, want 404", rec.Code)
	}
}

func TestListChannelsUnknownCommunity(t *testing.T) {
	mod := &fakeModeration{role: membershipdomain.RoleMember}
	ws := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusSwitchingProtocols) }
	svc := Services{Auth: &fakeAuth{}, Tokens: &fakeTokens{}, Messages: &fakeMessages{}, Moderation: mod, Channels: fakeChannels{}, Communities: fakeCommunities{missing: true}}
	s := New(":0", svc, ws, zerolog.Nop())

	rec := do(t, s, http.MethodGet, "/v1/communities/co-ghost/channels", "", "good")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
