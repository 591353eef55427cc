package worker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exampro-backend/internal/config"
	"github.com/stemsi/exampro-backend/internal/logger"
)

// Expirer force-submits attempts whose deadline has passed.
type Expirer interface {
	ExpireOverdue(ctx context.Context, now time.Time, limit int) (int, error)
}

// Locker grants a lease on key for ttl to exactly one caller.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisLocker implements Locker with SET NX PX.
type RedisLocker struct {
	rdb *redis.Client
}

// NewRedisLocker creates a new RedisLocker.
func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

// Acquire reports whether this caller now holds the lease.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.rdb.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
}

// ExpiryWorker periodically auto-submits overdue attempts. With several
// replicas only the holder of the scan lock runs a given tick.
type ExpiryWorker struct {
	expirer  Expirer
	locker   Locker
	interval time.Duration
	batch    int
	now      func() time.Time
	log      zerolog.Logger
}

// NewExpiryWorker creates a new ExpiryWorker.
func NewExpiryWorker(expirer Expirer, locker Locker, interval time.Duration, batch int, log zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		expirer:  expirer,
		locker:   locker,
		interval: interval,
		batch:    batch,
		now:      time.Now,
		log:      logger.Component(log, "expiry_worker"),
	}
}

// Start begins the scan loop. Call in a goroutine.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick runs one scan if the lease is free. It returns the number of
// attempts submitted.
func (w *ExpiryWorker) tick(ctx context.Context) int {
	// Lease ends just before the next tick.
	lease := w.interval - w.interval/10
	ok, err := w.locker.Acquire(ctx, config.CacheKey.ExpiryScanLockKey(), lease)
	if err != nil {
		w.log.Error().Err(err).Msg("Failed to acquire scan lock")
		return 0
	}
	if !ok {
		return 0
	}

	scanAt := w.now()
	n, err := w.expirer.ExpireOverdue(ctx, scanAt, w.batch)
	if err != nil {
		w.log.Error().Err(err).Int("submitted", n).Msg("Expiry scan failed")
		return n
	}
	if n > 0 {
		w.log.Info().Int("submitted", n).Time("scan_at", scanAt).Msg("Overdue attempts submitted")
	}
	return n
}
