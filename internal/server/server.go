// Package server assembles the HTTP surface: the auth endpoints, channel
// message history, and the WebSocket upgrade route. Handlers stay thin and
// translate service sentinels into status codes.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	channeldomain "community-platform/backend/internal/channel/domain"
	communitydomain "community-platform/backend/internal/community/domain"
	membershipdomain "community-platform/backend/internal/membership/domain"
	messagedomain "community-platform/backend/internal/message/domain"
	tokendomain "community-platform/backend/internal/token/domain"
	userdomain "community-platform/backend/internal/user/domain"
)

// AuthService is the register/login slice used by the auth endpoints.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*userdomain.User, error)
	Login(ctx context.Context, email, password string) (*tokendomain.TokenPair, error)
}

// TokenAuthority is the token slice used by the refresh/logout endpoints and
// the auth middleware.
type TokenAuthority interface {
	VerifyAccess(token string) (string, error)
	Rotate(ctx context.Context, refreshToken string) (*tokendomain.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

// MessageService is the message slice used by the channel endpoints.
type MessageService interface {
	Send(ctx context.Context, senderID, channelID, content string, attachments []messagedomain.Attachment) (*messagedomain.Message, error)
	List(ctx context.Context, userID, channelID, beforeID string, limit int) ([]*messagedomain.Message, error)
}

// ModerationService is the membership slice used by the moderation endpoints.
type ModerationService interface {
	RoleOf(ctx context.Context, userID, communityID string) (membershipdomain.Role, error)
	ChangeRole(ctx context.Context, requesterID, targetUserID, communityID string, role membershipdomain.Role) error
	SetMuted(ctx context.Context, requesterID, targetUserID, communityID string, muted bool, until *time.Time) error
	SetBanned(ctx context.Context, requesterID, targetUserID, communityID string, banned bool) error
	Remove(ctx context.Context, requesterID, targetUserID, communityID string) error
}

// ChannelDirectory lists a community's channels for the directory endpoint.
type ChannelDirectory interface {
	ListByCommunity(ctx context.Context, communityID string) ([]*channeldomain.Channel, error)
}

// CommunityDirectory resolves communities for the directory endpoint.
type CommunityDirectory interface {
	GetByID(ctx context.Context, id string) (*communitydomain.Community, error)
}

// Services bundles everything the router needs.
type Services struct {
	Auth        AuthService
	Tokens      TokenAuthority
	Messages    MessageService
	Moderation  ModerationService
	Channels    ChannelDirectory
	Communities CommunityDirectory
}

// Server is the assembled HTTP server.
type Server struct {
	http        *http.Server
	auth        AuthService
	tokens      TokenAuthority
	messages    MessageService
	moderation  ModerationService
	channels    ChannelDirectory
	communities CommunityDirectory
	log         zerolog.Logger
}

// New builds the router and the underlying http.Server. wsHandler serves the
// gateway upgrade endpoint; it authenticates the handshake itself.
func New(addr string, svc Services, wsHandler http.HandlerFunc, log zerolog.Logger) *Server {
	s := &Server{
		auth:        svc.Auth,
		tokens:      svc.Tokens,
		messages:    svc.Messages,
		moderation:  svc.Moderation,
		channels:    svc.Channels,
		communities: svc.Communities,
		log:         log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)
		r.Post("/auth/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/channels/{channelID}/messages", s.handleListMessages)
			r.Post("/channels/{channelID}/messages", s.handleSendMessage)
			r.Get("/communities/{communityID}/channels", s.handleListChannels)
			r.Put("/communities/{communityID}/members/{userID}/role", s.handleChangeRole)
			r.Put("/communities/{communityID}/members/{userID}/mute", s.handleSetMuted)
			r.Put("/communities/{communityID}/members/{userID}/ban", s.handleSetBanned)
			r.Delete("/communities/{communityID}/members/{userID}", s.handleRemoveMember)
		})
	})

	r.Get("/ws", wsHandler)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the router, used directly by tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start serves until the listener closes.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server listening")
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
