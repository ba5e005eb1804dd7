// Package service implements the channel message pipeline: validate,
// authorize, persist, fan out. Persistence is the durability boundary;
// delivery after a successful insert is best effort.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	gatewaydomain "community-platform/backend/internal/gateway/domain"
	membershipservice "community-platform/backend/internal/membership/service"
	"community-platform/backend/internal/message/domain"
	"community-platform/backend/internal/message/repository"
	userdomain "community-platform/backend/internal/user/domain"
)

// Sentinel errors for the message service; transports map them to status codes.
var (
	ErrEmptyMessage = errors.New("message has no content")
	ErrNotFound     = errors.New("message not found")
	ErrStorage      = errors.New("message store failure")
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// Authorizer answers the per-operation membership questions. Satisfied by the
// membership authorizer; decisions are read fresh on every call.
type Authorizer interface {
	CanRead(ctx context.Context, userID, channelID string) (bool, error)
	CanWrite(ctx context.Context, userID, channelID string) (bool, error)
}

// UserResolver loads sender profiles for fan-out payloads.
type UserResolver interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// EventPusher delivers server events to gateway connections. Satisfied by the
// gateway hub.
type EventPusher interface {
	PushToRoom(channelID string, event gatewaydomain.ServerEvent)
}

// Service is the channel message service.
type Service struct {
	repo         repository.Repository
	authorizer   Authorizer
	users        UserResolver
	pusher       EventPusher
	storeTimeout time.Duration
	log          zerolog.Logger
}

// NewService wires the message pipeline. pusher may be bound later with
// BindPusher when the gateway is constructed after the service.
func NewService(repo repository.Repository, authorizer Authorizer, users UserResolver, storeTimeout time.Duration, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		authorizer:   authorizer,
		users:        users,
		storeTimeout: storeTimeout,
		log:          log,
	}
}

// BindPusher wires the gateway hub for fan-out. Until bound, sends persist
// without delivery.
func (s *Service) BindPusher(p EventPusher) {
	s.pusher = p
}

// Send validates, authorizes, persists, and fans out a new message. A message
// that fails authorization is never persisted; a persisted message whose
// fan-out fails still succeeds.
func (s *Service) Send(ctx context.Context, senderID, channelID, content string, attachments []domain.Attachment) (*domain.Message, error) {
	m := &domain.Message{
		ID:          uuid.NewString(),
		ChannelID:   channelID,
		SenderID:    senderID,
		Content:     content,
		Attachments: attachments,
		CreatedAt:   time.Now().UTC(),
	}
	if m.Empty() {
		return nil, ErrEmptyMessage
	}

	ok, err := s.authorizer.CanWrite(ctx, senderID, channelID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, membershipservice.ErrForbidden
	}

	for i := range m.Attachments {
		if m.Attachments[i].ID == "" {
			m.Attachments[i].ID = uuid.NewString()
		}
		m.Attachments[i].MessageID = m.ID
	}

	if err := s.insert(ctx, m); err != nil {
		return nil, err
	}

	s.push(ctx, gatewaydomain.ServerMessageNew, m)
	return m, nil
}

// Edit replaces a message body. Only the original sender may edit, verified
// against the stored row, not the claim in the request.
func (s *Service) Edit(ctx context.Context, editorID, messageID, content string) (*domain.Message, error) {
	m, err := s.get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if m == nil || m.Deleted() {
		return nil, ErrNotFound
	}
	if m.SenderID != editorID {
		return nil, membershipservice.ErrForbidden
	}

	m.Content = content
	if m.Empty() {
		return nil, ErrEmptyMessage
	}

	now := time.Now().UTC()
	if err := s.store(ctx, func(ctx context.Context) error {
		return s.repo.UpdateContent(ctx, m.ID, content, now)
	}); err != nil {
		return nil, err
	}
	m.EditedAt = &now

	s.push(ctx, gatewaydomain.ServerMessageUpdated, m)
	return m, nil
}

// Delete soft-deletes a message. Only the original sender may delete.
func (s *Service) Delete(ctx context.Context, requesterID, messageID string) error {
	m, err := s.get(ctx, messageID)
	if err != nil {
		return err
	}
	if m == nil || m.Deleted() {
		return ErrNotFound
	}
	if m.SenderID != requesterID {
		return membershipservice.ErrForbidden
	}

	now := time.Now().UTC()
	if err := s.store(ctx, func(ctx context.Context) error {
		return s.repo.SoftDelete(ctx, m.ID, now)
	}); err != nil {
		return err
	}

	if s.pusher != nil {
		s.pusher.PushToRoom(m.ChannelID, gatewaydomain.MessageDeleted(m.ID, m.ChannelID))
	}
	return nil
}

// List returns a page of channel history, newest first, anchored strictly
// before beforeID when set.
func (s *Service) List(ctx context.Context, userID, channelID, beforeID string, limit int) ([]*domain.Message, error) {
	ok, err := s.authorizer.CanRead(ctx, userID, channelID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, membershipservice.ErrForbidden
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	messages, err := s.repo.ListByChannel(sctx, channelID, beforeID, limit)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return messages, nil
}

func (s *Service) insert(ctx context.Context, m *domain.Message) error {
	return s.store(ctx, func(ctx context.Context) error {
		return s.repo.Insert(ctx, m)
	})
}

func (s *Service) get(ctx context.Context, id string) (*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return m, nil
}

func (s *Service) store(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return s.storeErr(err)
	}
	return nil
}

func (s *Service) storeErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: store timed out", ErrStorage)
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

// push fans a message event out to the channel's room. Failures never affect
// the caller; the message is already durable.
func (s *Service) push(ctx context.Context, eventType string, m *domain.Message) {
	if s.pusher == nil {
		return
	}
	s.pusher.PushToRoom(m.ChannelID, gatewaydomain.NewMessageEvent(eventType, m, s.senderSummary(ctx, m.SenderID)))
}

// senderSummary resolves the sender profile for the wire payload. A resolver
// failure degrades to an id-only summary rather than blocking delivery.
func (s *Service) senderSummary(ctx context.Context, senderID string) userdomain.Summary {
	u, err := s.users.GetByID(ctx, senderID)
	if err != nil || u == nil {
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", senderID).Msg("resolving sender for fan-out")
		}
		return userdomain.Summary{ID: senderID}
	}
	return u.Summary()
}
