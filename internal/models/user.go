package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents the kind of account stored in user metadata.
type Role string

const (
	RoleArtist  Role = "artist"
	RoleManager Role = "manager"
)

// ParseRole accepts "artist" or "manager"; empty defaults to artist.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case "", RoleArtist:
		return RoleArtist, true
	case RoleManager:
		return RoleManager, true
	}
	return "", false
}

// UserMetadata is the free-form profile bag kept next to the identity record.
type UserMetadata struct {
	Role        Role   `json:"role,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Social      string `json:"social,omitempty"`
	ManagerID   string `json:"manager_id,omitempty"`
}

// User is an identity-provider account.
type User struct {
	ID               uuid.UUID    `json:"id"`
	Email            string       `json:"email"`
	Password         string       `json:"-"`
	Metadata         UserMetadata `json:"user_metadata"`
	EmailConfirmedAt *time.Time   `json:"email_confirmed_at,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// UserSummary is the joined view of a user embedded in artist listings.
type UserSummary struct {
	ID       uuid.UUID    `json:"id"`
	Email    string       `json:"email"`
	Metadata UserMetadata `json:"user_metadata"`
}

// Summary returns the listing view of u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, Metadata: u.Metadata}
}
