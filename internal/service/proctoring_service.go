package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exampro-backend/internal/logger"
	"github.com/stemsi/exampro-backend/internal/model"
)

// ProctoringService records integrity events against a student's active
// attempt and enforces the exam's switch policy.
type ProctoringService struct {
	exams       ExamSource
	submissions SubmissionStore
	announce    *announcer
	log         zerolog.Logger
	now         func() time.Time
}

// NewProctoringService creates a new ProctoringService.
func NewProctoringService(
	exams ExamSource,
	submissions SubmissionStore,
	queue NotificationQueue,
	publisher EventPublisher,
	log zerolog.Logger,
) *ProctoringService {
	l := logger.Component(log, "proctoring_service")
	return &ProctoringService{
		exams:       exams,
		submissions: submissions,
		announce:    &announcer{queue: queue, publisher: publisher, log: l},
		log:         l,
		now:         time.Now,
	}
}

// RecordEvent appends an event to the caller's active attempt. Switch events
// bump switchCount; under a strict policy, exceeding maxSwitchCount submits
// the attempt and the result carries Enforced=true.
func (s *ProctoringService) RecordEvent(ctx context.Context, examID, userID int64, eventType model.ProctoringEventType, detail *string) (*model.ProctoringResult, error) {
	if !eventType.Valid() {
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
	def, err := s.exams.Definition(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("load exam %d: %w", examID, err)
	}
	current, err := s.submissions.FindSubmission(ctx, examID, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNoActiveSubmission
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}

	now := s.now()
	ev := &model.ProctoringEvent{
		SubmissionID: current.ID,
		ExamID:       examID,
		UserID:       userID,
		EventType:    eventType,
		Detail:       detail,
		CreatedAt:    now,
	}

	enforced := false
	updated, err := s.submissions.AppendEvent(ctx, current.ID, ev, func(sub *model.Submission) error {
		enforced = false
		if sub.Status != model.SubmissionInProgress {
			return ErrNoActiveSubmission
		}
		if !eventType.CountsAsSwitch() {
			return nil
		}
		sub.SwitchCount++
		if def.Exam.Exceeded(sub.SwitchCount) {
			if err := finish(def, sub, now, model.SubmitReasonProctoring); err != nil {
				return err
			}
			enforced = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record event: %w", err)
	}

	s.announce.publish(ctx, model.MonitorEventProctor, updated, eventType, now)

	result := &model.ProctoringResult{
		SubmissionID: updated.ID,
		SwitchCount:  updated.SwitchCount,
		Enforced:     enforced,
	}
	if enforced {
		s.log.Warn().
			Int64("exam_id", examID).
			Int64("submission_id", updated.ID).
			Int("switch_count", updated.SwitchCount).
			Msg("Switch limit exceeded, submission forced")
		s.announce.submitted(ctx, def, updated)
		resp := model.NewSubmissionResponse(updated, def.Exam.Title)
		result.Submission = &resp
	}
	return result, nil
}
