// Package service implements the membership authorizer: fresh read-through
// authorization decisions and the moderation operations that mutate membership
// rows. Decisions are never cached; a role change or ban takes effect on the
// next send.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	channeldomain "community-platform/backend/internal/channel/domain"
	"community-platform/backend/internal/membership/domain"
	"community-platform/backend/internal/membership/repository"
)

// Sentinel errors for the authorizer; transports map them to status codes.
var (
	ErrForbidden = errors.New("forbidden")
	ErrNotMember = errors.New("no membership for user in community")
	ErrTimeout   = errors.New("membership store timed out")
)

// ChannelResolver resolves a channel to its owning community. Channel read
// access is gated at the community-membership level, so every channel decision
// starts here.
type ChannelResolver interface {
	GetByID(ctx context.Context, id string) (*channeldomain.Channel, error)
}

// Authorizer answers can-read / can-write / role questions over live membership
// rows and applies moderation changes. It holds no state of its own.
type Authorizer struct {
	memberships  repository.Repository
	channels     ChannelResolver
	storeTimeout time.Duration
}

// NewAuthorizer returns an Authorizer reading memberships and channels through
// the given repositories. storeTimeout bounds each store round trip.
func NewAuthorizer(memberships repository.Repository, channels ChannelResolver, storeTimeout time.Duration) *Authorizer {
	return &Authorizer{
		memberships:  memberships,
		channels:     channels,
		storeTimeout: storeTimeout,
	}
}

// CanRead reports whether the user may read the channel: a non-banned
// membership in the channel's owning community. Unknown channels and missing
// memberships fail closed.
func (a *Authorizer) CanRead(ctx context.Context, userID, channelID string) (bool, error) {
	m, err := a.membershipForChannel(ctx, userID, channelID)
	if err != nil {
		return false, err
	}
	return m != nil && !m.IsBanned, nil
}

// CanWrite reports whether the user may send to the channel: readable, not
// banned, not currently muted, and the send capability flag set. The membership
// row is read fresh on every call.
func (a *Authorizer) CanWrite(ctx context.Context, userID, channelID string) (bool, error) {
	m, err := a.membershipForChannel(ctx, userID, channelID)
	if err != nil {
		return false, err
	}
	if m == nil || m.IsBanned {
		return false, nil
	}
	if m.MutedAt(time.Now()) {
		return false, nil
	}
	return m.CanSendMessages, nil
}

// RoleOf returns the user's role in the community, or RoleNone when the user
// has no membership row.
func (a *Authorizer) RoleOf(ctx context.Context, userID, communityID string) (domain.Role, error) {
	m, err := a.membership(ctx, userID, communityID)
	if err != nil {
		return domain.RoleNone, err
	}
	if m == nil {
		return domain.RoleNone, nil
	}
	return m.Role, nil
}

// ChangeRole sets the target's role. Requester must be admin or owner, the
// target must be outranked by the requester, OWNER can neither be assigned nor
// demoted.
func (a *Authorizer) ChangeRole(ctx context.Context, requesterID, targetUserID, communityID string, role domain.Role) error {
	if role == domain.RoleOwner || role == domain.RoleNone {
		return ErrForbidden
	}
	requester, target, err := a.moderationPair(ctx, requesterID, targetUserID, communityID)
	if err != nil {
		return err
	}
	if requester.Role != domain.RoleOwner && requester.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	if !requester.Role.Outranks(target.Role) {
		return ErrForbidden
	}
	return a.update(ctx, func(ctx context.Context) error {
		return a.memberships.UpdateRole(ctx, target.ID, role)
	})
}

// SetMuted mutes or unmutes the target. until bounds the mute; nil with
// muted=true means indefinite. Moderators and above may mute anyone they
// outrank; OWNER can never be muted.
func (a *Authorizer) SetMuted(ctx context.Context, requesterID, targetUserID, communityID string, muted bool, until *time.Time) error {
	requester, target, err := a.moderationPair(ctx, requesterID, targetUserID, communityID)
	if err != nil {
		return err
	}
	if !requester.Role.AtLeast(domain.RoleModerator) {
		return ErrForbidden
	}
	if !requester.Role.Outranks(target.Role) {
		return ErrForbidden
	}
	return a.update(ctx, func(ctx context.Context) error {
		return a.memberships.UpdateMuted(ctx, target.ID, muted, until)
	})
}

// SetBanned bans or unbans the target. Requester must be admin or owner and
// outrank the target; OWNER can never be banned.
func (a *Authorizer) SetBanned(ctx context.Context, requesterID, targetUserID, communityID string, banned bool) error {
	requester, target, err := a.moderationPair(ctx, requesterID, targetUserID, communityID)
	if err != nil {
		return err
	}
	if requester.Role != domain.RoleOwner && requester.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	if !requester.Role.Outranks(target.Role) {
		return ErrForbidden
	}
	return a.update(ctx, func(ctx context.Context) error {
		return a.memberships.UpdateBanned(ctx, target.ID, banned)
	})
}

// Remove deletes the target's membership. Requester must be admin or owner and
// outrank the target; OWNER can never be removed.
func (a *Authorizer) Remove(ctx context.Context, requesterID, targetUserID, communityID string) error {
	requester, target, err := a.moderationPair(ctx, requesterID, targetUserID, communityID)
	if err != nil {
		return err
	}
	if requester.Role != domain.RoleOwner && requester.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	if !requester.Role.Outranks(target.Role) {
		return ErrForbidden
	}
	return a.update(ctx, func(ctx context.Context) error {
		return a.memberships.Delete(ctx, target.ID)
	})
}

// moderationPair loads both memberships for a moderation operation and applies
// the checks shared by all of them: both rows must exist and the target must
// not be OWNER (OWNER is immutable through the authorizer).
func (a *Authorizer) moderationPair(ctx context.Context, requesterID, targetUserID, communityID string) (requester, target *domain.Membership, err error) {
	requester, err = a.membership(ctx, requesterID, communityID)
	if err != nil {
		return nil, nil, err
	}
	if requester == nil {
		return nil, nil, ErrForbidden
	}
	target, err = a.membership(ctx, targetUserID, communityID)
	if err != nil {
		return nil, nil, err
	}
	if target == nil {
		return nil, nil, ErrNotMember
	}
	if target.Role == domain.RoleOwner {
		return nil, nil, ErrForbidden
	}
	return requester, target, nil
}

func (a *Authorizer) membershipForChannel(ctx context.Context, userID, channelID string) (*domain.Membership, error) {
	ctx, cancel := context.WithTimeout(ctx, a.storeTimeout)
	defer cancel()
	ch, err := a.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, a.storeErr(err)
	}
	if ch == nil {
		return nil, nil
	}
	m, err := a.memberships.GetByUserAndCommunity(ctx, userID, ch.CommunityID)
	if err != nil {
		return nil, a.storeErr(err)
	}
	return m, nil
}

func (a *Authorizer) membership(ctx context.Context, userID, communityID string) (*domain.Membership, error) {
	ctx, cancel := context.WithTimeout(ctx, a.storeTimeout)
	defer cancel()
	m, err := a.memberships.GetByUserAndCommunity(ctx, userID, communityID)
	if err != nil {
		return nil, a.storeErr(err)
	}
	return m, nil
}

func (a *Authorizer) update(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, a.storeTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return a.storeErr(err)
	}
	return nil
}

func (a *Authorizer) storeErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return fmt.Errorf("membership store: %w", err)
}
