package domain

import "time"

// Membership links a user to a community with a role, capability flags, and
// moderation state. Rows are owned by the membership store; the core reads them
// fresh on every authorization decision and mutates them only through the
// moderation operations.
type Membership struct {
	ID              string
	UserID          string
	CommunityID     string
	Role            Role
	CanSendMessages bool
	CanSendMedia    bool
	CanPinMessages  bool
	IsBanned        bool
	IsMuted         bool
	// MutedUntil bounds a mute; nil with IsMuted set means muted indefinitely.
	MutedUntil *time.Time
	CreatedAt  time.Time
}

// MutedAt reports whether the membership counts as muted at the given instant.
func (m *Membership) MutedAt(now time.Time) bool {
	if m.MutedUntil != nil {
		return m.MutedUntil.After(now)
	}
	return m.IsMuted
}

type Role string

const (
	RoleOwner     Role = "owner"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
	// RoleNone is returned for users with no membership row.
	RoleNone Role = ""
)

// rank orders roles for moderation checks. Higher outranks lower.
func (r Role) rank() int {
	switch r {
	case RoleOwner:
		return 4
	case RoleAdmin:
		return 3
	case RoleModerator:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

// Outranks reports whether r strictly outranks other.
func (r Role) Outranks(other Role) bool {
	return r.rank() > other.rank()
}

// AtLeast reports whether r ranks at or above other.
func (r Role) AtLeast(other Role) bool {
	return r.rank() >= other.rank()
}
