package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailTypeArtistWelcome is the credentials email sent to provisioned artists.
const EmailTypeArtistWelcome = "artist_welcome"

// EmailLogStatus for delivery.
const (
	EmailLogStatusPending = "pending"
	EmailLogStatusSent    = "sent"
	EmailLogStatusFailed  = "failed"
)

// EmailLog records an outgoing notification and how its delivery went.
type EmailLog struct {
	ID             uuid.UUID  `json:"id"`
	EmailType      string     `json:"email_type"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject,omitempty"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
