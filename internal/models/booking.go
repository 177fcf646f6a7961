package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conventional booking statuses. Any other string is stored as given.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCompleted = "completed"
)

// Booking is a calendar entry owned by one artist.
type Booking struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Start     time.Time `gorm:"column:start_at;not null" json:"start"`
	End       time.Time `gorm:"column:end_at;not null" json:"end"`
	Status    string    `gorm:"type:varchar(32);not null;default:'pending'" json:"status"`
	ArtistID  uuid.UUID `gorm:"type:uuid;not null;index" json:"artistId"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the table created by the SQL migrations.
func (Booking) TableName() string { return "bookings" }

// BeforeCreate assigns the id and default status.
func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = BookingStatusPending
	}
	return nil
}
