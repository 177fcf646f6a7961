package artists

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talentdesk/backend/internal/models"
	"github.com/talentdesk/backend/pkg/apperr"
)

const artistColumns = `a.id, a.user_id, a.first_name, a.last_name, a.email, a.phone_number, a.social, a.website,
	a.bio, a.address, a.profile_picture, a.manager_id, a.created_at, a.updated_at`

// InsertParams are the columns written when an artist is provisioned.
type InsertParams struct {
	UserID         uuid.UUID
	FirstName      string
	LastName       string
	Email          string
	PhoneNumber    string
	Social         string
	ProfilePicture string
	ManagerID      *uuid.UUID
}

// ListFilter narrows List. A nil ManagerID lists every artist.
type ListFilter struct {
	ManagerID *uuid.UUID
}

// Repository handles artist persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an artist repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert creates an artist row and returns it with generated id and timestamps.
func (r *Repository) Insert(ctx context.Context, p InsertParams) (*models.Artist, error) {
	const q = `INSERT INTO artists AS a (user_id, first_name, last_name, email, phone_number, social, profile_picture, manager_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + artistColumns
	a, err := scanArtist(r.pool.QueryRow(ctx, q, p.UserID, p.FirstName, p.LastName, p.Email, p.PhoneNumber, p.Social, p.ProfilePicture, p.ManagerID))
	if err != nil {
		return nil, storeError("insert artist", err)
	}
	return a, nil
}

// GetByID returns the full artist record.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Artist, error) {
	a, err := scanArtist(r.pool.QueryRow(ctx, `SELECT `+artistColumns+` FROM artists a WHERE a.id = $1`, id))
	if err != nil {
		return nil, storeError("get artist", err)
	}
	return a, nil
}

// GetProfile returns the narrow public projection.
func (r *Repository) GetProfile(ctx context.Context, id uuid.UUID) (*models.ArtistProfile, error) {
	const q = `SELECT id, first_name, last_name, email, phone_number, bio, profile_picture FROM artists WHERE id = $1`
	var p models.ArtistProfile
	err := r.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.PhoneNumber, &p.Bio, &p.ProfilePicture)
	if err != nil {
		return nil, storeError("get artist profile", err)
	}
	return &p, nil
}

// List returns artists joined with their user and manager, ordered by last name.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]*models.ArtistDetail, error) {
	q := `SELECT ` + artistColumns + `,
			u.id, u.email, u.metadata,
			m.id, m.email, m.metadata
		FROM artists a
		LEFT JOIN users u ON u.id = a.user_id
		LEFT JOIN users m ON m.id = a.manager_id`
	args := []interface{}{}
	if f.ManagerID != nil {
		q += ` WHERE a.manager_id = $1`
		args = append(args, *f.ManagerID)
	}
	q += ` ORDER BY a.last_name ASC, a.first_name ASC, a.id ASC`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, storeError("list artists", err)
	}
	defer rows.Close()

	list := make([]*models.ArtistDetail, 0)
	for rows.Next() {
		var d models.ArtistDetail
		var userID, managerID *uuid.UUID
		var userEmail, managerEmail *string
		var userMeta, managerMeta []byte
		a := &d.Artist
		if err := rows.Scan(&a.ID, &a.UserID, &a.FirstName, &a.LastName, &a.Email, &a.PhoneNumber, &a.Social, &a.Website,
			&a.Bio, &a.Address, &a.ProfilePicture, &a.ManagerID, &a.CreatedAt, &a.UpdatedAt,
			&userID, &userEmail, &userMeta,
			&managerID, &managerEmail, &managerMeta); err != nil {
			return nil, storeError("list artists", err)
		}
		if d.User, err = summary(userID, userEmail, userMeta); err != nil {
			return nil, storeError("list artists", err)
		}
		if d.Manager, err = summary(managerID, managerEmail, managerMeta); err != nil {
			return nil, storeError("list artists", err)
		}
		list = append(list, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list artists", err)
	}
	return list, nil
}

// Update applies the non-nil fields of patch and returns the updated row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, p models.ArtistPatch) (*models.Artist, error) {
	const q = `UPDATE artists AS a SET
			first_name = COALESCE($2, a.first_name),
			last_name = COALESCE($3, a.last_name),
			email = COALESCE($4, a.email),
			phone_number = COALESCE($5, a.phone_number),
			social = COALESCE($6, a.social),
			website = COALESCE($7, a.website),
			bio = COALESCE($8, a.bio),
			address = COALESCE($9, a.address),
			profile_picture = COALESCE($10, a.profile_picture),
			updated_at = NOW()
		WHERE a.id = $1
		RETURNING ` + artistColumns
	a, err := scanArtist(r.pool.QueryRow(ctx, q, id, p.FirstName, p.LastName, p.Email, p.PhoneNumber,
		p.Social, p.Website, p.Bio, p.Address, p.ProfilePicture))
	if err != nil {
		return nil, storeError("update artist", err)
	}
	return a, nil
}

// Delete removes the artist row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM artists WHERE id = $1`, id)
	if err != nil {
		return storeError("delete artist", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("delete artist", "artist not found")
	}
	return nil
}

func scanArtist(row pgx.Row) (*models.Artist, error) {
	var a models.Artist
	err := row.Scan(&a.ID, &a.UserID, &a.FirstName, &a.LastName, &a.Email, &a.PhoneNumber, &a.Social, &a.Website,
		&a.Bio, &a.Address, &a.ProfilePicture, &a.ManagerID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func summary(id *uuid.UUID, email *string, meta []byte) (*models.UserSummary, error) {
	if id == nil {
		return nil, nil
	}
	s := &models.UserSummary{ID: *id}
	if email != nil {
		s.Email = *email
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &s.Metadata); err != nil {
			return nil, fmt.Errorf("decode user metadata: %w", err)
		}
	}
	return s, nil
}

func storeError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(op, "artist not found")
	}
	return apperr.Wrap(apperr.KindStore, op, err, "")
}
