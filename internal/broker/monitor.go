// Package broker carries the asynchronous side channels over Redis: live
// monitor events on pub/sub and notification jobs on a list.
package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exampro-backend/internal/config"
	"github.com/stemsi/exampro-backend/internal/model"
)

// Monitor publishes and subscribes to per-exam monitor channels and the
// per-submission channels behind student streams.
type Monitor struct {
	rdb *redis.Client
}

// NewMonitor creates a new Monitor.
func NewMonitor(rdb *redis.Client) *Monitor {
	return &Monitor{rdb: rdb}
}

// Publish sends ev to every monitor of its exam and to the stream of the
// submission it concerns.
func (m *Monitor) Publish(ctx context.Context, ev model.MonitorEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode monitor event: %w", err)
	}
	pipe := m.rdb.Pipeline()
	pipe.Publish(ctx, config.CacheKey.ExamMonitorChannel(ev.ExamID), payload)
	if ev.SubmissionID != 0 {
		pipe.Publish(ctx, config.CacheKey.SubmissionEventsChannel(ev.SubmissionID), payload)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Subscribe streams the raw JSON payloads published for an exam. The channel
// closes after the returned stop func is called or ctx ends.
func (m *Monitor) Subscribe(ctx context.Context, examID int64) (<-chan string, func() error) {
	return m.subscribe(ctx, config.CacheKey.ExamMonitorChannel(examID))
}

// SubscribeSubmission streams the payloads published for one submission.
func (m *Monitor) SubscribeSubmission(ctx context.Context, submissionID int64) (<-chan string, func() error) {
	return m.subscribe(ctx, config.CacheKey.SubmissionEventsChannel(submissionID))
}

func (m *Monitor) subscribe(ctx context.Context, channel string) (<-chan string, func() error) {
	ps := m.rdb.Subscribe(ctx, channel)
	out := make(chan string, 64)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, ps.Close
}
