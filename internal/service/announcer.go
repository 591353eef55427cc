package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exampro-backend/internal/model"
)

// announceTimeout bounds each side effect once it is detached from the
// request that triggered it.
const announceTimeout = 5 * time.Second

// announcer emits the side effects of lifecycle changes: live monitor events
// and queued notifications. Failures are logged, never returned; the
// submission is already committed when these run, so they outlive the
// caller's context.
type announcer struct {
	queue     NotificationQueue
	publisher EventPublisher
	log       zerolog.Logger
}

func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), announceTimeout)
}

func (a *announcer) publish(ctx context.Context, kind string, s *model.Submission, eventType model.ProctoringEventType, at time.Time) {
	if a.publisher == nil {
		return
	}
	ev := model.MonitorEvent{
		Type:         kind,
		ExamID:       s.ExamID,
		SubmissionID: s.ID,
		UserID:       s.UserID,
		EventType:    eventType,
		SwitchCount:  s.SwitchCount,
		Status:       s.Status,
		At:           at,
	}
	ctx, cancel := detach(ctx)
	defer cancel()
	if err := a.publisher.Publish(ctx, ev); err != nil {
		a.log.Warn().Err(err).
			Int64("exam_id", s.ExamID).
			Int64("submission_id", s.ID).
			Msg("Failed to publish monitor event")
	}
}

func (a *announcer) notify(ctx context.Context, n model.Notification) {
	if a.queue == nil {
		return
	}
	ctx, cancel := detach(ctx)
	defer cancel()
	if err := a.queue.Enqueue(ctx, n); err != nil {
		a.log.Error().Err(err).
			Int64("user_id", n.UserID).
			Str("type", string(n.Type)).
			Msg("Failed to enqueue notification")
	}
}

// submitted announces a transition to SUBMITTED.
func (a *announcer) submitted(ctx context.Context, def *model.ExamDefinition, s *model.Submission) {
	a.publish(ctx, model.MonitorEventSubmitted, s, "", *s.SubmitTime)

	related := s.ID
	if s.SubmitReason != nil && *s.SubmitReason != model.SubmitReasonManual {
		content := fmt.Sprintf("Your attempt at %q was submitted automatically (%s).", def.Exam.Title, *s.SubmitReason)
		a.notify(ctx, model.Notification{
			UserID:    s.UserID,
			Type:      model.NotificationForceSubmitted,
			Title:     "Exam submitted automatically",
			Content:   &content,
			RelatedID: &related,
		})
	}

	if s.Graded() {
		a.released(ctx, def, s)
		return
	}
	content := fmt.Sprintf("A submission for %q is waiting for grading.", def.Exam.Title)
	a.notify(ctx, model.Notification{
		UserID:    def.Exam.CreatorID,
		Type:      model.NotificationGradingRequired,
		Title:     "Grading required",
		Content:   &content,
		RelatedID: &related,
	})
}

// released tells the student that a final score is available.
func (a *announcer) released(ctx context.Context, def *model.ExamDefinition, s *model.Submission) {
	related := s.ID
	content := fmt.Sprintf("You scored %d/%d on %q.", *s.TotalScore, def.Exam.TotalScore, def.Exam.Title)
	a.notify(ctx, model.Notification{
		UserID:    s.UserID,
		Type:      model.NotificationScoreReleased,
		Title:     "Score released",
		Content:   &content,
		RelatedID: &related,
	})
}
