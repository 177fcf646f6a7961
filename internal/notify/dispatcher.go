package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talentdesk/backend/internal/metrics"
	"github.com/talentdesk/backend/pkg/apperr"
)

// ErrClosed is reported for messages dispatched after Close.
var ErrClosed = errors.New("notify: dispatcher closed")

// LogStore records each dispatched email.
type LogStore interface {
	Create(ctx context.Context, emailType, recipient, subject string) (uuid.UUID, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// queued is implemented by senders whose delivery finishes elsewhere.
type queued interface {
	Queued() bool
}

// DispatcherOptions configure a Dispatcher. Zero values are usable.
type DispatcherOptions struct {
	// Timeout bounds one delivery, independent of the request that triggered it.
	Timeout time.Duration
	// Logs, when set, gets one email_logs row per message.
	Logs    LogStore
	Metrics metrics.Recorder
	Logger  *zap.Logger
	// OnError sees every swallowed delivery error, e.g. to report it to Sentry.
	OnError func(error)
}

// Dispatcher sends messages on detached goroutines. Callers never wait and
// never see delivery errors; those go to an error channel drained into the log.
type Dispatcher struct {
	sender  Sender
	opts    DispatcherOptions
	logger  *zap.Logger
	metrics metrics.Recorder

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	errs   chan error
	done   chan struct{}
}

// NewDispatcher starts a dispatcher around sender.
func NewDispatcher(sender Sender, opts DispatcherOptions) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	d := &Dispatcher{
		sender:  sender,
		opts:    opts,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		errs:    make(chan error, 64),
		done:    make(chan struct{}),
	}
	go d.drain()
	return d
}

// Welcome sends the credentials email for a newly provisioned artist.
func (d *Dispatcher) Welcome(email, tempPassword string) {
	d.Dispatch(WelcomeMessage(email, tempPassword))
}

// Dispatch schedules msg for delivery and returns immediately.
func (d *Dispatcher) Dispatch(msg Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("email dropped after shutdown", zap.String("to", msg.To), zap.String("type", msg.Type))
		d.metrics.RecordNotification(false)
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.deliver(msg); err != nil {
			d.report(err)
		}
	}()
}

func (d *Dispatcher) deliver(msg Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.Timeout)
	defer cancel()

	var logID uuid.UUID
	if d.opts.Logs != nil && msg.LogID == nil {
		id, err := d.opts.Logs.Create(ctx, msg.Type, msg.To, msg.Subject)
		if err != nil {
			d.metrics.RecordBestEffortFailure(metrics.StepEmailLog)
			d.logger.Warn("record email log failed", zap.String("to", msg.To), zap.Error(err))
		} else {
			logID = id
			msg.LogID = &id
		}
	}

	sendErr := d.sender.Send(ctx, msg)
	d.metrics.RecordNotification(sendErr == nil)

	if logID != uuid.Nil {
		var logErr error
		switch {
		case sendErr != nil:
			logErr = d.opts.Logs.MarkFailed(ctx, logID, sendErr.Error())
		case !isQueued(d.sender):
			logErr = d.opts.Logs.MarkSent(ctx, logID)
		}
		if logErr != nil {
			d.metrics.RecordBestEffortFailure(metrics.StepEmailLog)
			d.logger.Warn("update email log failed", zap.String("log_id", logID.String()), zap.Error(logErr))
		}
	}

	if sendErr != nil {
		return apperr.Wrap(apperr.KindNotification, "send "+msg.Type, fmt.Errorf("to %s: %w", msg.To, sendErr), "")
	}
	d.logger.Debug("email sent", zap.String("to", msg.To), zap.String("type", msg.Type))
	return nil
}

func isQueued(s Sender) bool {
	q, ok := s.(queued)
	return ok && q.Queued()
}

// report hands err to the drain goroutine, or logs it inline if the channel is full.
func (d *Dispatcher) report(err error) {
	select {
	case d.errs <- err:
	default:
		d.logger.Error("email delivery failed", zap.Error(err))
		if d.opts.OnError != nil {
			d.opts.OnError(err)
		}
	}
}

func (d *Dispatcher) drain() {
	defer close(d.done)
	for err := range d.errs {
		d.logger.Error("email delivery failed", zap.Error(err))
		if d.opts.OnError != nil {
			d.opts.OnError(err)
		}
	}
}

// Close stops accepting messages and waits for in-flight deliveries, or for ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	flushed := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(d.errs)
		<-d.done
		close(flushed)
	}()
	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notify: close: %w", ctx.Err())
	}
}
