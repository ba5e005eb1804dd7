package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	identityservice "community-platform/backend/internal/identity/service"
	membershipservice "community-platform/backend/internal/membership/service"
	messageservice "community-platform/backend/internal/message/service"
	tokenservice "community-platform/backend/internal/token/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// serviceError maps service sentinels onto an HTTP status and a safe message.
// Internal detail stays in the logs, not the response body.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tokenservice.ErrInvalidToken),
		errors.Is(err, tokenservice.ErrExpired),
		errors.Is(err, identityservice.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, membershipservice.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, messageservice.ErrEmptyMessage),
		errors.Is(err, identityservice.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, identityservice.ErrEmailAlreadyRegistered):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, messageservice.ErrNotFound):
		writeError(w, http.StatusNotFound, "message not found")
	case errors.Is(err, membershipservice.ErrNotMember):
		writeError(w, http.StatusNotFound, "membership not found")
	case errors.Is(err, tokenservice.ErrTimeout),
		errors.Is(err, membershipservice.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "store timed out")
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
