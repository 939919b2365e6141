package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/procurekit/procurement-service/internal/mailer"
	"github.com/procurekit/procurement-service/internal/observability"
	"github.com/procurekit/procurement-service/internal/service"
)

const defaultMaxSendAttempts = 3

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// EmailWorker drains the email outbox into the transport. Failed sends are
// re-queued until they have been attempted maxAttempts times, then dropped.
type EmailWorker struct {
	queue       mailer.Queue
	transport   mailer.Transport
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	maxAttempts int
	backoff     time.Duration
}

// EmailWorkerConfig configures an EmailWorker.
type EmailWorkerConfig struct {
	Concurrency int
	MaxAttempts int
	Backoff     time.Duration
}

// NewEmailWorker builds the worker.
func NewEmailWorker(queue mailer.Queue, transport mailer.Transport, logger *zap.Logger, metrics *observability.Metrics, cfg EmailWorkerConfig) *EmailWorker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxSendAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailWorker{
		queue:       queue,
		transport:   transport,
		logger:      logger,
		metrics:     metrics,
		concurrency: cfg.Concurrency,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
	}
}

// Run processes messages until ctx is cancelled.
func (w *EmailWorker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id)
		}(i)
	}
	wg.Wait()
	w.logger.Info("email worker stopped")
}

func (w *EmailWorker) loop(ctx context.Context, id int) {
	for {
		err := w.ProcessOne(ctx)
		switch {
		case err == nil, errors.Is(err, mailer.ErrQueueEmpty):
		case ctx.Err() != nil:
			return
		default:
			w.logger.Warn("email queue read failed", zap.Int("worker", id), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.backoff):
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// ProcessOne takes one message off the queue and sends it. Transport
// failures are logged and handled here; only queue errors are returned.
func (w *EmailWorker) ProcessOne(ctx context.Context) error {
	msg, err := w.queue.Dequeue(ctx)
	if err != nil {
		return err
	}
	msg.Attempts++

	log := w.logger.With(
		zap.String("email_id", msg.ID),
		zap.String("ticket_id", msg.TicketID),
		zap.String("trigger", msg.Trigger),
		zap.Int("attempt", msg.Attempts))

	if err := w.transport.Send(ctx, msg); err != nil {
		w.metrics.RecordEmail(msg.Trigger, "failed")
		if msg.Attempts >= w.maxAttempts {
			log.Error("email dropped after repeated failures", zap.Error(err))
			return nil
		}
		log.Warn("email send failed; re-queued", zap.Error(err))
		if qErr := w.queue.Enqueue(ctx, msg); qErr != nil {
			log.Error("email re-queue failed", zap.Error(qErr))
		}
		return nil
	}
	w.metrics.RecordEmail(msg.Trigger, "sent")
	log.Debug("email sent", zap.Int("recipients", len(msg.To)))
	return nil
}
