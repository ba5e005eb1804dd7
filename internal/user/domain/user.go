package domain

import (
	"errors"
	"time"
)

// User is the core user entity.
type User struct {
	ID        string
	Email     string
	Name      string
	Status    UserStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}

// Summary is the public slice of a user attached to outbound events, so
// receivers can render a sender without another lookup.
type Summary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Summary returns the user's public summary.
func (u *User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.Name}
}
