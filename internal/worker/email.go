package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talentdesk/backend/internal/metrics"
	"github.com/talentdesk/backend/internal/notify"
	"github.com/talentdesk/backend/pkg/queue"
)

// JobQueue is the part of queue.Queue the processor uses.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// LogUpdater closes out email_logs rows created when the job was enqueued.
type LogUpdater interface {
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// EmailProcessor sends queued emails through the configured provider.
type EmailProcessor struct {
	queue   JobQueue
	sender  notify.Sender
	logs    LogUpdater
	metrics metrics.Recorder
	logger  *zap.Logger
	backoff time.Duration
	timeout time.Duration
}

// NewEmailProcessor creates an email job processor. logs may be nil.
func NewEmailProcessor(q JobQueue, sender notify.Sender, logs LogUpdater, rec metrics.Recorder, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &EmailProcessor{
		queue:   q,
		sender:  sender,
		logs:    logs,
		metrics: rec,
		logger:  logger,
		backoff: queue.RetryBackoff,
		timeout: 30 * time.Second,
	}
}

// Process sends one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	err := p.sender.Send(sendCtx, notify.MessageFromPayload(payload))
	p.metrics.RecordNotification(err == nil)
	if err != nil {
		if job.Attempt+1 >= queue.MaxRetries {
			p.markFailed(ctx, payload.LogID, err)
		}
		return fmt.Errorf("send %s to %s: %w", payload.EmailType, payload.RecipientEmail, err)
	}

	if p.logs != nil && payload.LogID != nil {
		if err := p.logs.MarkSent(ctx, *payload.LogID); err != nil {
			p.metrics.RecordBestEffortFailure(metrics.StepEmailLog)
			p.logger.Warn("mark email sent failed", zap.String("log_id", payload.LogID.String()), zap.Error(err))
		}
	}
	p.logger.Info("email sent", zap.String("job_id", job.ID), zap.String("email_type", payload.EmailType))
	return nil
}

// markFailed runs only on the last attempt so retried jobs stay pending.
func (p *EmailProcessor) markFailed(ctx context.Context, logID *uuid.UUID, cause error) {
	if p.logs == nil || logID == nil {
		return
	}
	if err := p.logs.MarkFailed(ctx, *logID, cause.Error()); err != nil {
		p.metrics.RecordBestEffortFailure(metrics.StepEmailLog)
		p.logger.Warn("mark email failed failed", zap.String("log_id", logID.String()), zap.Error(err))
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *EmailProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
