package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exampro-backend/internal/broker"
	"github.com/stemsi/exampro-backend/internal/logger"
	"github.com/stemsi/exampro-backend/internal/model"
)

const (
	NotifyPollTimeout = 1 * time.Second
	NotifyRetryDelay  = 5 * time.Second
	RequeueTimeout    = 3 * time.Second
)

// JobQueue is the list the notification worker consumes.
type JobQueue interface {
	Pop(ctx context.Context, timeout time.Duration) (string, error)
	TryPop(ctx context.Context) (string, error)
	Requeue(ctx context.Context, payload string) error
}

// Deliverer persists a notification into its recipient's inbox.
type Deliverer interface {
	Deliver(ctx context.Context, n *model.Notification) error
}

// NotificationWorker consumes notify_queue and writes each job to the inbox.
type NotificationWorker struct {
	queue      JobQueue
	deliverer  Deliverer
	retryDelay time.Duration
	log        zerolog.Logger
}

// NewNotificationWorker creates a new NotificationWorker.
func NewNotificationWorker(queue JobQueue, deliverer Deliverer, log zerolog.Logger) *NotificationWorker {
	return &NotificationWorker{
		queue:      queue,
		deliverer:  deliverer,
		retryDelay: NotifyRetryDelay,
		log:        logger.Component(log, "notification_worker"),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *NotificationWorker) processNext(ctx context.Context) {
	raw, err := w.queue.Pop(ctx, NotifyPollTimeout)
	if err != nil {
		if !errors.Is(err, broker.ErrQueueEmpty) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Pop error")
		}
		return
	}

	if err := w.deliver(ctx, raw); err != nil {
		w.log.Error().Err(err).Msg("Deliver error, retrying later")
		w.requeue(ctx, raw)
		select {
		case <-ctx.Done():
		case <-time.After(w.retryDelay):
		}
	}
}

// deliver returns an error only when a retry could succeed.
func (w *NotificationWorker) deliver(ctx context.Context, raw string) error {
	var n model.Notification
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error, dropping job")
		return nil
	}
	if err := w.deliverer.Deliver(ctx, &n); err != nil {
		return err
	}
	w.log.Debug().
		Int64("user_id", n.UserID).
		Str("type", string(n.Type)).
		Msg("Notification delivered")
	return nil
}

// requeue pushes raw back even when shutdown has already cancelled ctx.
func (w *NotificationWorker) requeue(ctx context.Context, raw string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RequeueTimeout)
	defer cancel()
	if err := w.queue.Requeue(ctx, raw); err != nil {
		w.log.Error().Err(err).Msg("Requeue failed, notification lost")
	}
}

// drain delivers whatever is left in the queue before shutdown.
func (w *NotificationWorker) drain(ctx context.Context) {
	drained := 0
	for {
		raw, err := w.queue.TryPop(ctx)
		if err != nil {
			break
		}
		if err := w.deliver(ctx, raw); err != nil {
			w.log.Error().Err(err).Msg("Drain deliver error")
			w.requeue(ctx, raw)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
