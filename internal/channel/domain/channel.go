package domain

import "time"

// Channel is a message channel inside a community. Rooms in the gateway are the
// runtime counterpart of a channel; this is the persisted one.
type Channel struct {
	ID          string
	CommunityID string
	Name        string
	CreatedAt   time.Time
}
