package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	messagedomain "community-platform/backend/internal/message/domain"
)

type sendMessageRequest struct {
	Content     string `json:"content"`
	Attachments []struct {
		URL      string `json:"url"`
		MimeType string `json:"mime_type"`
	} `json:"attachments"`
}

type attachmentResponse struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
}

type messageResponse struct {
	ID          string               `json:"id"`
	ChannelID   string               `json:"channel_id"`
	SenderID    string               `json:"sender_id"`
	Content     string               `json:"content"`
	Attachments []attachmentResponse `json:"attachments,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	EditedAt    *time.Time           `json:"edited_at,omitempty"`
	Deleted     bool                 `json:"deleted,omitempty"`
}

func messageFrom(m *messagedomain.Message) messageResponse {
	resp := messageResponse{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		EditedAt:  m.EditedAt,
		Deleted:   m.Deleted(),
	}
	for _, a := range m.Attachments {
		resp.Attachments = append(resp.Attachments, attachmentResponse{ID: a.ID, URL: a.URL, MimeType: a.MimeType})
	}
	return resp
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	attachments := make([]messagedomain.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		attachments = append(attachments, messagedomain.Attachment{URL: a.URL, MimeType: a.MimeType})
	}

	m, err := s.messages.Send(r.Context(), userID(r.Context()), chi.URLParam(r, "channelID"), req.Content, attachments)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageFrom(m))
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	beforeID := r.URL.Query().Get("before")

	messages, err := s.messages.List(r.Context(), userID(r.Context()), chi.URLParam(r, "channelID"), beforeID, limit)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageFrom(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out})
}
