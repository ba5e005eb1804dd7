// Package handler exposes the WebSocket upgrade endpoint. Handshake
// authentication runs before the upgrade: a request without a valid access
// token never reaches the hub.
package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"community-platform/backend/internal/gateway/service"
)

// AccessVerifier validates an access token and returns the subject user id.
type AccessVerifier interface {
	VerifyAccess(token string) (string, error)
}

// Handler upgrades authenticated requests into gateway connections.
type Handler struct {
	hub      *service.Hub
	verifier AccessVerifier
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// New returns a Handler bound to the hub. allowedOrigin restricts browser
// connections; empty allows any origin.
func New(hub *service.Hub, verifier AccessVerifier, allowedOrigin string, log zerolog.Logger) *Handler {
	return &Handler{
		hub:      hub,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
		log: log,
	}
}

// ServeWS authenticates the handshake and hands the connection to the hub.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		http.Error(w, "missing access token", http.StatusUnauthorized)
		return
	}

	userID, err := h.verifier.VerifyAccess(token)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket handshake rejected")
		http.Error(w, "invalid access token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.hub.HandleConnection(conn, userID)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}
