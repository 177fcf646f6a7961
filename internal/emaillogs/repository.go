package emaillogs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talentdesk/backend/internal/auth"
	"github.com/talentdesk/backend/internal/models"
)

// Repository handles email_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create records a pending email and returns its id.
func (r *Repository) Create(ctx context.Context, emailType, recipient, subject string) (uuid.UUID, error) {
	const q = `INSERT INTO email_logs (email_type, recipient_email, subject, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, q, emailType, auth.NormalizeEmail(recipient), subject, models.EmailLogStatusPending).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("insert email log: %w", err)
	}
	return id, nil
}

// MarkSent flags the log as delivered.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE email_logs SET status = $2, sent_at = NOW(), error_message = NULL WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, id, models.EmailLogStatusSent); err != nil {
		return fmt.Errorf("mark email sent: %w", err)
	}
	return nil
}

// MarkFailed flags the log as failed with the delivery error.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	const q = `UPDATE email_logs SET status = $2, error_message = $3 WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, id, models.EmailLogStatusFailed, reason); err != nil {
		return fmt.Errorf("mark email failed: %w", err)
	}
	return nil
}

// ListByRecipient returns email logs for an address, newest first.
func (r *Repository) ListByRecipient(ctx context.Context, email string) ([]*models.EmailLog, error) {
	const q = `SELECT id, email_type, recipient_email, subject, status, sent_at, error_message, created_at
		FROM email_logs
		WHERE recipient_email = $1
		ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, auth.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("list email logs: %w", err)
	}
	defer rows.Close()
	list := make([]*models.EmailLog, 0)
	for rows.Next() {
		var el models.EmailLog
		var subject, errMsg *string
		if err := rows.Scan(&el.ID, &el.EmailType, &el.RecipientEmail, &subject, &el.Status, &el.SentAt, &errMsg, &el.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan email log: %w", err)
		}
		if subject != nil {
			el.Subject = *subject
		}
		if errMsg != nil {
			el.ErrorMessage = *errMsg
		}
		list = append(list, &el)
	}
	return list, rows.Err()
}
