package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talentdesk/backend/internal/models"
	"github.com/talentdesk/backend/pkg/apperr"
	"github.com/talentdesk/backend/pkg/utils"
)

const userColumns = `id, email, password_hash, metadata, email_confirmed_at, created_at, updated_at`

// CreateUserParams describes a new account.
type CreateUserParams struct {
	Email     string
	Password  string
	Confirmed bool
	Metadata  models.UserMetadata
}

// UpdateUserParams changes the email and/or merges keys into the metadata bag.
type UpdateUserParams struct {
	Email    *string
	Metadata map[string]string
}

// Repository is the identity provider: users, their password hashes and metadata.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// NormalizeEmail lowercases and trims an address before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, identityError("get user", err)
	}
	return u, nil
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, NormalizeEmail(email)))
	if err != nil {
		return nil, identityError("get user", err)
	}
	return u, nil
}

// CreateUser hashes the password and inserts the account.
func (r *Repository) CreateUser(ctx context.Context, p CreateUserParams) (*models.User, error) {
	hash, err := utils.HashPassword(p.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindIdentity, "create user", err, "failed to hash password")
	}
	meta, err := json.Marshal(p.Metadata)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindIdentity, "create user", err, "invalid user metadata")
	}
	var confirmedAt *time.Time
	if p.Confirmed {
		now := time.Now().UTC()
		confirmedAt = &now
	}
	const q = `INSERT INTO users (email, password_hash, metadata, email_confirmed_at)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns
	u, err := scanUser(r.pool.QueryRow(ctx, q, NormalizeEmail(p.Email), hash, meta, confirmedAt))
	if err != nil {
		return nil, identityError("create user", err)
	}
	return u, nil
}

// UpdateUser sets a new email and merges metadata keys; untouched keys are kept.
func (r *Repository) UpdateUser(ctx context.Context, id uuid.UUID, p UpdateUserParams) (*models.User, error) {
	var email *string
	if p.Email != nil {
		e := NormalizeEmail(*p.Email)
		email = &e
	}
	patch := []byte(`{}`)
	if len(p.Metadata) > 0 {
		var err error
		if patch, err = json.Marshal(p.Metadata); err != nil {
			return nil, apperr.Wrap(apperr.KindIdentity, "update user", err, "invalid user metadata")
		}
	}
	const q = `UPDATE users SET email = COALESCE($2, email), metadata = metadata || $3::jsonb, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	u, err := scanUser(r.pool.QueryRow(ctx, q, id, email, patch))
	if err != nil {
		return nil, identityError("update user", err)
	}
	return u, nil
}

// DeleteUser removes the account; the artist row referencing it cascades.
func (r *Repository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return identityError("delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("delete user", "user not found")
	}
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var meta []byte
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &meta, &u.EmailConfirmedAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &u.Metadata); err != nil {
			return nil, fmt.Errorf("decode user metadata: %w", err)
		}
	}
	return &u, nil
}

func identityError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(op, "user not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.Wrap(apperr.KindConflict, op, err, "email already registered")
	}
	return apperr.Wrap(apperr.KindIdentity, op, err, "")
}
