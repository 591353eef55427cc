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

// SubmissionService drives the attempt state machine:
// NOT_STARTED -> IN_PROGRESS -> SUBMITTED.
type SubmissionService struct {
	exams       ExamSource
	submissions SubmissionStore
	announce    *announcer
	log         zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	exams ExamSource,
	submissions SubmissionStore,
	queue NotificationQueue,
	publisher EventPublisher,
	log zerolog.Logger,
) *SubmissionService {
	l := logger.Component(log, "submission_service")
	return &SubmissionService{
		exams:       exams,
		submissions: submissions,
		announce:    &announcer{queue: queue, publisher: publisher, log: l},
		log:         l,
		now:         time.Now,
	}
}

func (s *SubmissionService) definition(ctx context.Context, examID int64) (*model.ExamDefinition, error) {
	def, err := s.exams.Definition(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("load exam %d: %w", examID, err)
	}
	return def, nil
}

// StartOrResume returns the caller's attempt, creating it on first call.
// Gates are evaluated in order: platform, publication, window, then an
// already submitted attempt.
func (s *SubmissionService) StartOrResume(ctx context.Context, examID, userID int64, platform model.Platform) (*model.SubmissionResponse, error) {
	def, err := s.definition(ctx, examID)
	if err != nil {
		return nil, err
	}
	exam := &def.Exam

	if !exam.AllowedPlatforms.Permits(platform) {
		return nil, ErrPlatformNotAllowed
	}
	if exam.Status != model.ExamStatusPublished {
		return nil, ErrExamNotPublished
	}
	now := s.now()
	if !exam.InWindow(now) {
		return nil, ErrOutOfWindow
	}

	existing, err := s.submissions.FindSubmission(ctx, examID, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find submission: %w", err)
	}
	if existing != nil {
		if existing.Status == model.SubmissionSubmitted {
			return nil, ErrAlreadySubmitted
		}
		resp := model.NewSubmissionResponse(existing, exam.Title)
		return &resp, nil
	}

	sub := model.NewSubmission(examID, userID)
	if err := sub.Begin(now); err != nil {
		return nil, err
	}
	created, err := s.submissions.CreateSubmission(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}
	if !created {
		// A concurrent start won the unique (exam, user) row.
		existing, err := s.submissions.FindSubmission(ctx, examID, userID)
		if err != nil {
			return nil, fmt.Errorf("concurrent start detected, but fetch failed: %w", err)
		}
		if existing.Status == model.SubmissionSubmitted {
			return nil, ErrAlreadySubmitted
		}
		sub = existing
	} else {
		s.log.Info().
			Int64("exam_id", examID).
			Int64("user_id", userID).
			Int64("submission_id", sub.ID).
			Msg("Submission started")
		s.announce.publish(ctx, model.MonitorEventStarted, sub, "", now)
	}

	resp := model.NewSubmissionResponse(sub, exam.Title)
	return &resp, nil
}

// checkQuestions rejects answers for questions outside the exam.
func checkQuestions(def *model.ExamDefinition, answers model.Answers) error {
	for qid := range answers {
		if _, ok := def.Question(qid); !ok {
			return fmt.Errorf("%w: question %d", ErrQuestionNotInExam, qid)
		}
	}
	return nil
}

// SaveAnswers merges answers into the caller's in-progress attempt.
func (s *SubmissionService) SaveAnswers(ctx context.Context, submissionID, userID int64, answers model.Answers) (*model.SubmissionResponse, error) {
	current, err := s.submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	if current.UserID != userID {
		return nil, fmt.Errorf("submission %d: %w", submissionID, ErrNotFound)
	}
	def, err := s.definition(ctx, current.ExamID)
	if err != nil {
		return nil, err
	}
	if err := checkQuestions(def, answers); err != nil {
		return nil, err
	}

	now := s.now()
	updated, err := s.submissions.Mutate(ctx, submissionID, func(sub *model.Submission) error {
		if sub.Status != model.SubmissionInProgress {
			return ErrInvalidState
		}
		if sub.StartTime != nil && now.After(def.Exam.Deadline(*sub.StartTime)) {
			return ErrOutOfWindow
		}
		sub.Answers.Merge(answers)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save answers: %w", err)
	}

	resp := model.NewSubmissionResponse(updated, def.Exam.Title)
	return &resp, nil
}

// Submit finalizes the caller's attempt. A second call returns the stored
// record and ignores its payload. Answers that arrive after the deadline are
// discarded and the persisted ones are submitted instead.
func (s *SubmissionService) Submit(ctx context.Context, examID, userID int64, answers model.Answers) (*model.SubmissionResponse, error) {
	def, err := s.definition(ctx, examID)
	if err != nil {
		return nil, err
	}
	current, err := s.submissions.FindSubmission(ctx, examID, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNoActiveSubmission
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}

	now := s.now()
	transitioned := false
	updated, err := s.submissions.Mutate(ctx, current.ID, func(sub *model.Submission) error {
		transitioned = false
		if sub.Status == model.SubmissionSubmitted {
			return nil
		}
		if sub.Status != model.SubmissionInProgress {
			return ErrInvalidState
		}
		late := sub.StartTime != nil && now.After(def.Exam.Deadline(*sub.StartTime))
		if !late {
			if err := checkQuestions(def, answers); err != nil {
				return err
			}
			sub.Answers.Merge(answers)
		}
		if err := finish(def, sub, now, model.SubmitReasonManual); err != nil {
			return err
		}
		transitioned = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}

	if transitioned {
		s.log.Info().
			Int64("exam_id", examID).
			Int64("submission_id", updated.ID).
			Bool("graded", updated.Graded()).
			Msg("Submission submitted")
		s.announce.submitted(ctx, def, updated)
	}

	resp := model.NewSubmissionResponse(updated, def.Exam.Title)
	return &resp, nil
}

// ForceSubmit submits an attempt on the student's behalf with whatever
// answers are persisted. It is a no-op on SUBMITTED attempts and reports
// whether this call made the transition.
func (s *SubmissionService) ForceSubmit(ctx context.Context, submissionID int64, now time.Time, reason model.SubmitReason) (*model.Submission, bool, error) {
	current, err := s.submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, false, fmt.Errorf("get submission: %w", err)
	}
	def, err := s.definition(ctx, current.ExamID)
	if err != nil {
		return nil, false, err
	}

	transitioned := false
	updated, err := s.submissions.Mutate(ctx, submissionID, func(sub *model.Submission) error {
		transitioned = false
		if sub.Status != model.SubmissionInProgress {
			return nil
		}
		if reason == model.SubmitReasonExpired && sub.StartTime != nil && !now.After(def.Exam.Deadline(*sub.StartTime)) {
			return nil
		}
		if err := finish(def, sub, now, reason); err != nil {
			return err
		}
		transitioned = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("force submit: %w", err)
	}
	if transitioned {
		s.log.Info().
			Int64("exam_id", updated.ExamID).
			Int64("submission_id", updated.ID).
			Str("reason", string(reason)).
			Msg("Submission force-submitted")
		s.announce.submitted(ctx, def, updated)
	}
	return updated, transitioned, nil
}

// ExpireOverdue force-submits every attempt whose deadline passed before
// now, reading limit ids per page. An attempt that fails is logged and
// skipped so it cannot hold back the rest of the scan. Repeated runs over the
// same rows do nothing.
func (s *SubmissionService) ExpireOverdue(ctx context.Context, now time.Time, limit int) (int, error) {
	expired := 0
	var cursor int64
	for {
		ids, err := s.submissions.ListOverdue(ctx, now, cursor, limit)
		if err != nil {
			return expired, fmt.Errorf("list overdue: %w", err)
		}
		for _, id := range ids {
			if ctx.Err() != nil {
				return expired, ctx.Err()
			}
			cursor = id
			_, done, err := s.ForceSubmit(ctx, id, now, model.SubmitReasonExpired)
			if err != nil {
				s.log.Error().Err(err).Int64("submission_id", id).Msg("Expiry submit failed")
				continue
			}
			if done {
				expired++
			}
		}
		if limit <= 0 || len(ids) < limit {
			return expired, nil
		}
	}
}

// Get returns a submission visible to the actor. Students only see their
// own; teachers only see submissions of exams they created.
func (s *SubmissionService) Get(ctx context.Context, submissionID int64, actor model.Actor) (*model.SubmissionResponse, error) {
	sub, err := s.submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	def, err := s.definition(ctx, sub.ExamID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, sub, def) {
		return nil, fmt.Errorf("submission %d: %w", submissionID, ErrNotFound)
	}
	resp := model.NewSubmissionResponse(sub, def.Exam.Title)
	return &resp, nil
}

// GetMine returns the caller's own submission for an exam.
func (s *SubmissionService) GetMine(ctx context.Context, examID, userID int64) (*model.SubmissionResponse, error) {
	def, err := s.definition(ctx, examID)
	if err != nil {
		return nil, err
	}
	sub, err := s.submissions.FindSubmission(ctx, examID, userID)
	if err != nil {
		return nil, fmt.Errorf("find submission: %w", err)
	}
	resp := model.NewSubmissionResponse(sub, def.Exam.Title)
	return &resp, nil
}

// ListByExam returns every submission of an exam for its owner.
func (s *SubmissionService) ListByExam(ctx context.Context, examID int64, actor model.Actor) ([]model.SubmissionResponse, error) {
	def, err := s.definition(ctx, examID)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(def.Exam.CreatorID) {
		return nil, ErrForbidden
	}
	subs, err := s.submissions.ListSubmissionsByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	out := make([]model.SubmissionResponse, 0, len(subs))
	for i := range subs {
		out = append(out, model.NewSubmissionResponse(&subs[i], def.Exam.Title))
	}
	return out, nil
}

// ListEvents returns the proctoring log of a submission.
func (s *SubmissionService) ListEvents(ctx context.Context, submissionID int64, actor model.Actor) ([]model.ProctoringEvent, error) {
	sub, err := s.submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	def, err := s.definition(ctx, sub.ExamID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, sub, def) {
		return nil, fmt.Errorf("submission %d: %w", submissionID, ErrNotFound)
	}
	events, err := s.submissions.ListEvents(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func canView(actor model.Actor, sub *model.Submission, def *model.ExamDefinition) bool {
	if actor.Role == model.RoleStudent {
		return sub.UserID == actor.UserID
	}
	return actor.Owns(def.Exam.CreatorID)
}
