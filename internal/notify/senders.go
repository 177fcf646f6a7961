package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/talentdesk/backend/pkg/queue"
)

// LogSender writes messages to the log instead of sending them. For development.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email (log provider)",
		zap.String("to", msg.To),
		zap.String("type", msg.Type),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text))
	return nil
}

// Enqueuer is the job queue the QueueSender hands messages to.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// QueueSender defers delivery to the email worker.
type QueueSender struct {
	q Enqueuer
}

// NewQueueSender creates a QueueSender.
func NewQueueSender(q Enqueuer) *QueueSender {
	return &QueueSender{q: q}
}

// Send implements Sender by enqueueing an email job.
func (s *QueueSender) Send(ctx context.Context, msg Message) error {
	if err := s.q.EnqueueEmail(ctx, PayloadFromMessage(msg)); err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}
	return nil
}

// Queued reports that delivery completes later, in the worker.
func (s *QueueSender) Queued() bool { return true }

// PayloadFromMessage converts a message to its queued form.
func PayloadFromMessage(msg Message) queue.EmailPayload {
	return queue.EmailPayload{
		EmailType:      msg.Type,
		LogID:          msg.LogID,
		RecipientEmail: msg.To,
		Subject:        msg.Subject,
		BodyText:       msg.Text,
		BodyHTML:       msg.HTML,
	}
}

// MessageFromPayload is the inverse of PayloadFromMessage.
func MessageFromPayload(p queue.EmailPayload) Message {
	return Message{
		Type:    p.EmailType,
		To:      p.RecipientEmail,
		Subject: p.Subject,
		Text:    p.BodyText,
		HTML:    p.BodyHTML,
		LogID:   p.LogID,
	}
}
