package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exampro-backend/internal/model"
	"github.com/stemsi/exampro-backend/internal/repository/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hangUpStore cancels the caller's context as soon as a mutation commits,
// like a client that disconnects right after its submit lands.
type hangUpStore struct {
	*memstore.Store
	cancel context.CancelFunc
}

func (s *hangUpStore) Mutate(ctx context.Context, id int64, fn func(*model.Submission) error) (*model.Submission, error) {
	sub, err := s.Store.Mutate(ctx, id, fn)
	s.cancel()
	return sub, err
}

// strictSink refuses work on a finished context, as Redis does.
type strictSink struct {
	mu        sync.Mutex
	queued    []model.Notification
	published []model.MonitorEvent
}

func (q *strictSink) Enqueue(ctx context.Context, n model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queued = append(q.queued, n)
	return nil
}

func (q *strictSink) Publish(ctx context.Context, ev model.MonitorEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, ev)
	return nil
}

func TestSubmitAnnouncesAfterClientHangsUp(t *testing.T) {
	f := newFixture(t)
	examID, qids := f.exam(t, func(e *model.Exam) { e.NeedsGrading = true },
		q{model.QuestionTypeSingle, "B", 10},
		q{model.QuestionTypeShortAnswer, "", 10},
	)
	f.start(t, examID, studentID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &hangUpStore{Store: f.store, cancel: cancel}
	sink := &strictSink{}
	svc := NewSubmissionService(f.store, store, sink, sink, zerolog.Nop())
	svc.now = func() time.Time { return f.clock }

	sub, err := svc.Submit(ctx, examID, studentID, model.Answers{qids[0]: "B"})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionSubmitted, sub.Status)
	require.Error(t, ctx.Err())

	require.Len(t, sink.queued, 1)
	assert.Equal(t, model.NotificationGradingRequired, sink.queued[0].Type)
	assert.Equal(t, teacherID, sink.queued[0].UserID)
	require.Len(t, sink.published, 1)
	assert.Equal(t, model.MonitorEventSubmitted, sink.published[0].Type)
}
