package models

import (
	"time"

	"github.com/google/uuid"
)

// Artist is a managed artist profile, linked 1:1 to its User.
type Artist struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Email          string     `json:"email"`
	PhoneNumber    string     `json:"phone_number"`
	Social         string     `json:"social"`
	Website        string     `json:"website"`
	Bio            string     `json:"bio"`
	Address        string     `json:"address"`
	ProfilePicture string     `json:"profile_picture"`
	ManagerID      *uuid.UUID `json:"manager_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ArtistDetail is an artist with its owning user and manager joined in.
type ArtistDetail struct {
	Artist
	User    *UserSummary `json:"user"`
	Manager *UserSummary `json:"manager"`
}

// ArtistProfile is the public profile card.
type ArtistProfile struct {
	ID             uuid.UUID `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	PhoneNumber    string    `json:"phone_number"`
	Bio            string    `json:"bio"`
	ProfilePicture string    `json:"profile_picture"`
}

// ArtistPatch lists the editable attributes; nil means unchanged.
type ArtistPatch struct {
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	Email          *string `json:"email"`
	PhoneNumber    *string `json:"phone_number"`
	Social         *string `json:"social"`
	Website        *string `json:"website"`
	Bio            *string `json:"bio"`
	Address        *string `json:"address"`
	ProfilePicture *string `json:"profile_picture"`
}

// Empty reports whether the patch changes nothing.
func (p ArtistPatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.PhoneNumber == nil &&
		p.Social == nil && p.Website == nil && p.Bio == nil && p.Address == nil && p.ProfilePicture == nil
}
