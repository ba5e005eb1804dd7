package domain

import "time"

// Community is a named group of members; channels belong to exactly one
// community and read access is gated at the community-membership level.
type Community struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
}
