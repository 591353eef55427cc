package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exampro-backend/internal/config"
	"github.com/stemsi/exampro-backend/internal/model"
)

// ErrQueueEmpty is returned by Pop when nothing arrived within the timeout.
var ErrQueueEmpty = errors.New("queue empty")

// NotifyQueue is the Redis list feeding the notification worker.
type NotifyQueue struct {
	rdb *redis.Client
	key string
}

// NewNotifyQueue creates a NotifyQueue on config.WorkerKey.NotifyQueue.
func NewNotifyQueue(rdb *redis.Client) *NotifyQueue {
	return &NotifyQueue{rdb: rdb, key: config.WorkerKey.NotifyQueue}
}

// Enqueue appends a notification job.
func (q *NotifyQueue) Enqueue(ctx context.Context, n model.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return q.rdb.RPush(ctx, q.key, payload).Err()
}

// Pop blocks up to timeout for the next job and returns its raw payload.
func (q *NotifyQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	result, err := q.rdb.BLPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrQueueEmpty
	}
	if err != nil {
		return "", err
	}
	// BLPop returns [key, value].
	return result[1], nil
}

// TryPop returns the next job without blocking.
func (q *NotifyQueue) TryPop(ctx context.Context) (string, error) {
	payload, err := q.rdb.LPop(ctx, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrQueueEmpty
	}
	return payload, err
}

// Requeue pushes a raw payload back for a later attempt.
func (q *NotifyQueue) Requeue(ctx context.Context, payload string) error {
	return q.rdb.RPush(ctx, q.key, payload).Err()
}

// Len reports how many jobs are waiting.
func (q *NotifyQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}
