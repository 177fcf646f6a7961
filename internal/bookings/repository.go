package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/talentdesk/backend/internal/models"
	"github.com/talentdesk/backend/pkg/apperr"
)

// Changes is a partial booking update; nil fields are left alone.
type Changes struct {
	Title  *string
	Start  *time.Time
	End    *time.Time
	Status *string
}

func (c Changes) columns() map[string]interface{} {
	m := map[string]interface{}{}
	if c.Title != nil {
		m["title"] = *c.Title
	}
	if c.Start != nil {
		m["start_at"] = *c.Start
	}
	if c.End != nil {
		m["end_at"] = *c.End
	}
	if c.Status != nil {
		m["status"] = *c.Status
	}
	return m
}

// Repository handles booking persistence through gorm.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a booking repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AutoMigrate brings the bookings table in line with the model.
func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&models.Booking{})
}

// ListByArtist returns the artist's bookings, earliest start first.
func (r *Repository) ListByArtist(ctx context.Context, artistID uuid.UUID) ([]models.Booking, error) {
	list := make([]models.Booking, 0)
	err := r.db.WithContext(ctx).
		Where("artist_id = ?", artistID).
		Order("start_at ASC").
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, storeError("list bookings", err)
	}
	return list, nil
}

// Create inserts b; id and an empty status are filled in by the model hook.
func (r *Repository) Create(ctx context.Context, b *models.Booking) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		return storeError("create booking", err)
	}
	return nil
}

// Update applies changes to the booking with id owned by artistID.
func (r *Repository) Update(ctx context.Context, artistID, id uuid.UUID, c Changes) (*models.Booking, error) {
	cols := c.columns()
	if len(cols) == 0 {
		return nil, apperr.Validation("update booking", "no fields to update")
	}
	cols["updated_at"] = time.Now().UTC()

	res := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND artist_id = ?", id, artistID).
		Updates(cols)
	if res.Error != nil {
		return nil, storeError("update booking", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("update booking", "booking not found")
	}
	return r.get(ctx, artistID, id)
}

// Delete removes the booking with id owned by artistID.
func (r *Repository) Delete(ctx context.Context, artistID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND artist_id = ?", id, artistID).
		Delete(&models.Booking{})
	if res.Error != nil {
		return storeError("delete booking", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("delete booking", "booking not found")
	}
	return nil
}

func (r *Repository) get(ctx context.Context, artistID, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	err := r.db.WithContext(ctx).Where("id = ? AND artist_id = ?", id, artistID).First(&b).Error
	if err != nil {
		return nil, storeError("get booking", err)
	}
	return &b, nil
}

func storeError(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(op, "booking not found")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apperr.NotFound(op, "artist not found")
	}
	return apperr.Wrap(apperr.KindStore, op, err, "")
}
