package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueEmails is the Redis list key for email jobs.
	QueueEmails = "worker:emails"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
	// DLQRetention is how long the dead-letter list survives after its last push.
	DLQRetention = 7 * 24 * time.Hour
	// PollTimeout bounds a single blocking pop so workers notice shutdown.
	PollTimeout = 5 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeEmail JobType = "email"
)

// EmailPayload is the payload for email jobs.
type EmailPayload struct {
	EmailType      string     `json:"email_type"`
	LogID          *uuid.UUID `json:"log_id,omitempty"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject"`
	BodyText       string     `json:"body_text"`
	BodyHTML       string     `json:"body_html,omitempty"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// NewJob wraps a payload in a fresh job envelope.
func NewJob(jobType JobType, payload interface{}) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   body,
		CreatedAt: time.Now(),
	}, nil
}

// EnqueueEmail enqueues an email job.
func (q *Queue) EnqueueEmail(ctx context.Context, payload EmailPayload) error {
	job, err := NewJob(JobTypeEmail, payload)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueEmails, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued email job", zap.String("job_id", job.ID), zap.String("email_type", payload.EmailType))
	return nil
}

// Dequeue blocks until an email job is available, PollTimeout elapses or ctx is done.
// A nil job with nil error means nothing was available.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, PollTimeout, QueueEmails).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	if job.Attempt >= MaxRetries {
		dead, err := DeadLetter(job)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(dead)
		if err != nil {
			return err
		}
		pipe := q.client.TxPipeline()
		pipe.RPush(ctx, QueueDLQ, raw)
		pipe.Expire(ctx, QueueDLQ, DLQRetention)
		if _, err := pipe.Exec(ctx); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, QueueEmails, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}

// DeadLetter returns the copy of job kept in the DLQ. Email bodies carry
// temporary credentials, so they are dropped; recipient, subject and log id stay.
func DeadLetter(job *Job) (*Job, error) {
	dead := *job
	if job.Type != JobTypeEmail {
		return &dead, nil
	}
	var p EmailPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	p.BodyText = redacted
	if p.BodyHTML != "" {
		p.BodyHTML = redacted
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	dead.Payload = body
	return &dead, nil
}

const redacted = "[redacted]"
