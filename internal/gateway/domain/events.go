// Package domain defines the event vocabulary exchanged over gateway
// connections: client frames decoded once at the socket boundary and typed
// server frames pushed back out.
package domain

import (
	"time"

	messagedomain "community-platform/backend/internal/message/domain"
	userdomain "community-platform/backend/internal/user/domain"
)

// Client event types.
const (
	ClientChannelJoin   = "channel:join"
	ClientChannelLeave  = "channel:leave"
	ClientMessageSend   = "message:send"
	ClientMessageEdit   = "message:edit"
	ClientMessageDelete = "message:delete"
	ClientTypingStart   = "typing:start"
	ClientTypingStop    = "typing:stop"
)

// Server event types.
const (
	ServerPresenceOnline  = "presence:online"
	ServerPresenceOffline = "presence:offline"
	ServerMessageNew      = "message:new"
	ServerMessageUpdated  = "message:updated"
	ServerMessageDeleted  = "message:deleted"
	ServerTypingUser      = "typing:user"
	ServerTypingStop      = "typing:stop"
	ServerError           = "error"
)

// ClientEvent is the single frame shape clients send. Which fields matter
// depends on Type; unused fields are ignored.
type ClientEvent struct {
	Type      string `json:"type"`
	ChannelID string `json:"channel_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

// ServerEvent is a frame pushed to clients. Data holds the payload type for
// the event kind.
type ServerEvent struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// PresencePayload announces a user coming online or going offline.
type PresencePayload struct {
	UserID string `json:"user_id"`
}

// TypingPayload announces typing activity in a channel.
type TypingPayload struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
}

// AttachmentPayload mirrors a stored attachment on the wire.
type AttachmentPayload struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
}

// MessagePayload carries a full message for message:new and message:updated.
type MessagePayload struct {
	ID          string              `json:"id"`
	ChannelID   string              `json:"channel_id"`
	Sender      userdomain.Summary  `json:"sender"`
	Content     string              `json:"content"`
	Attachments []AttachmentPayload `json:"attachments,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	EditedAt    *time.Time          `json:"edited_at,omitempty"`
}

// MessageDeletedPayload identifies a soft-deleted message.
type MessageDeletedPayload struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

// ErrorPayload is sent synchronously to the offending client only.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PresenceOnline builds a presence:online event for the given user.
func PresenceOnline(userID string) ServerEvent {
	return ServerEvent{Type: ServerPresenceOnline, Data: PresencePayload{UserID: userID}}
}

// PresenceOffline builds a presence:offline event for the given user.
func PresenceOffline(userID string) ServerEvent {
	return ServerEvent{Type: ServerPresenceOffline, Data: PresencePayload{UserID: userID}}
}

// TypingUser builds a typing:user event.
func TypingUser(channelID, userID string) ServerEvent {
	return ServerEvent{Type: ServerTypingUser, Data: TypingPayload{ChannelID: channelID, UserID: userID}}
}

// TypingStopped builds a typing:stop event.
func TypingStopped(channelID, userID string) ServerEvent {
	return ServerEvent{Type: ServerTypingStop, Data: TypingPayload{ChannelID: channelID, UserID: userID}}
}

// NewMessageEvent builds a message event of the given type from a stored
// message and its sender summary.
func NewMessageEvent(eventType string, m *messagedomain.Message, sender userdomain.Summary) ServerEvent {
	payload := MessagePayload{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Sender:    sender,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		EditedAt:  m.EditedAt,
	}
	for _, a := range m.Attachments {
		payload.Attachments = append(payload.Attachments, AttachmentPayload{
			ID:       a.ID,
			URL:      a.URL,
			MimeType: a.MimeType,
		})
	}
	return ServerEvent{Type: eventType, Data: payload}
}

// MessageDeleted builds a message:deleted event.
func MessageDeleted(messageID, channelID string) ServerEvent {
	return ServerEvent{Type: ServerMessageDeleted, Data: MessageDeletedPayload{ID: messageID, ChannelID: channelID}}
}

// ErrorEvent builds an error frame for the sender of a failed client event.
func ErrorEvent(code, message string) ServerEvent {
	return ServerEvent{Type: ServerError, Data: ErrorPayload{Code: code, Message: message}}
}
