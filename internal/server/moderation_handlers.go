package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	membershipdomain "community-platform/backend/internal/membership/domain"
)

type changeRoleRequest struct {
	Role string `json:"role"`
}

type muteRequest struct {
	Muted bool       `json:"muted"`
	Until *time.Time `json:"until,omitempty"`
}

type banRequest struct {
	Banned bool `json:"banned"`
}

type channelItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// handleListChannels lists a community's channels for its members.
func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	communityID := chi.URLParam(r, "communityID")

	community, err := s.communities.GetByID(r.Context(), communityID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if community == nil {
		writeError(w, http.StatusNotFound, "community not found")
		return
	}

	role, err := s.moderation.RoleOf(r.Context(), userID(r.Context()), communityID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if role == membershipdomain.RoleNone {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	channels, err := s.channels.ListByCommunity(r.Context(), communityID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	out := make([]channelItem, 0, len(channels))
	for _, c := range channels {
		out = append(out, channelItem{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": out})
}

func (s *Server) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	var req changeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	role := membershipdomain.Role(req.Role)
	switch role {
	case membershipdomain.RoleAdmin, membershipdomain.RoleModerator, membershipdomain.RoleMember:
	default:
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}

	err := s.moderation.ChangeRole(r.Context(), userID(r.Context()), chi.URLParam(r, "userID"), chi.URLParam(r, "communityID"), role)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetMuted(w http.ResponseWriter, r *http.Request) {
	var req muteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	err := s.moderation.SetMuted(r.Context(), userID(r.Context()), chi.URLParam(r, "userID"), chi.URLParam(r, "communityID"), req.Muted, req.Until)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetBanned(w http.ResponseWriter, r *http.Request) {
	var req banRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	err := s.moderation.SetBanned(r.Context(), userID(r.Context()), chi.URLParam(r, "userID"), chi.URLParam(r, "communityID"), req.Banned)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	err := s.moderation.Remove(r.Context(), userID(r.Context()), chi.URLParam(r, "userID"), chi.URLParam(r, "communityID"))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
