package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exampro-backend/internal/logger"
	"github.com/stemsi/exampro-backend/internal/model"
	"golang.org/x/sync/errgroup"
)

// regradeConcurrency bounds the parallel submissions of an exam-wide regrade.
const regradeConcurrency = 8

// GradingService applies manual scores and recomputes grades.
type GradingService struct {
	exams       ExamSource
	submissions SubmissionStore
	announce    *announcer
	log         zerolog.Logger
	now         func() time.Time
}

// NewGradingService creates a new GradingService.
func NewGradingService(exams ExamSource, submissions SubmissionStore, queue NotificationQueue, log zerolog.Logger) *GradingService {
	l := logger.Component(log, "grading_service")
	return &GradingService{
		exams:       exams,
		submissions: submissions,
		announce:    &announcer{queue: queue, log: l},
		log:         l,
		now:         time.Now,
	}
}

func (s *GradingService) owned(ctx context.Context, submissionID int64, actor model.Actor) (*model.ExamDefinition, error) {
	current, err := s.submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	def, err := s.exams.Definition(ctx, current.ExamID)
	if err != nil {
		return nil, fmt.Errorf("load exam %d: %w", current.ExamID, err)
	}
	if !actor.Owns(def.Exam.CreatorID) {
		return nil, ErrForbidden
	}
	return def, nil
}

// validateScores checks every score before any is applied.
func validateScores(def *model.ExamDefinition, scores map[int64]int) error {
	for qid, score := range scores {
		q, ok := def.Question(qid)
		if !ok {
			return fmt.Errorf("%w: question %d", ErrQuestionNotInExam, qid)
		}
		if q.Question.Type.Objective() {
			return fmt.Errorf("%w: question %d", ErrNotManuallyGradable, qid)
		}
		if score < 0 || score > q.Score {
			return fmt.Errorf("%w: question %d allows 0..%d, got %d", ErrScoreOutOfRange, qid, q.Score, score)
		}
	}
	return nil
}

// ApplyManualScores records a grader's scores for subjective questions.
// Validation is all-or-nothing. Once every subjective question is scored the
// submission's total is finalized; applying again regrades.
func (s *GradingService) ApplyManualScores(ctx context.Context, submissionID int64, actor model.Actor, scores map[int64]int) (*model.SubmissionResponse, error) {
	def, err := s.owned(ctx, submissionID, actor)
	if err != nil {
		return nil, err
	}
	if err := validateScores(def, scores); err != nil {
		return nil, err
	}

	now := s.now()
	wasGraded := false
	updated, err := s.submissions.Mutate(ctx, submissionID, func(sub *model.Submission) error {
		if sub.Status != model.SubmissionSubmitted {
			return ErrInvalidState
		}
		wasGraded = sub.Graded()

		detail := Grade(def, sub.Answers, sub.SubmitDetail)
		grader := actor.UserID
		for qid, score := range scores {
			item := detail.Item(qid)
			awarded := score
			at := now
			item.Awarded = &awarded
			item.Source = model.GradeSourceManual
			item.GradedBy = &grader
			item.GradedAt = &at
		}
		settle(sub, detail, true, now)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply manual scores: %w", err)
	}

	s.log.Info().
		Int64("submission_id", submissionID).
		Int64("grader_id", actor.UserID).
		Int("scored", len(scores)).
		Bool("graded", updated.Graded()).
		Msg("Manual scores applied")
	if updated.Graded() && !wasGraded {
		s.announce.released(ctx, def, updated)
	}

	resp := model.NewSubmissionResponse(updated, def.Exam.Title)
	return &resp, nil
}

// Finalize releases the total of a submitted attempt that has nothing left
// to score by hand, such as an objective-only exam marked needsGrading.
// Finalizing a graded attempt returns it unchanged.
func (s *GradingService) Finalize(ctx context.Context, submissionID int64, actor model.Actor) (*model.SubmissionResponse, error) {
	def, err := s.owned(ctx, submissionID, actor)
	if err != nil {
		return nil, err
	}

	now := s.now()
	wasGraded := false
	updated, err := s.submissions.Mutate(ctx, submissionID, func(sub *model.Submission) error {
		if sub.Status != model.SubmissionSubmitted {
			return ErrInvalidState
		}
		wasGraded = sub.Graded()
		if wasGraded {
			return nil
		}
		detail := Grade(def, sub.Answers, sub.SubmitDetail)
		if detail.HasPending() {
			return fmt.Errorf("%w: subjective answers still need scores", ErrInvalidState)
		}
		settle(sub, detail, true, now)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("finalize submission %d: %w", submissionID, err)
	}

	if !wasGraded {
		s.log.Info().Int64("submission_id", submissionID).Int64("grader_id", actor.UserID).Msg("Submission finalized")
		s.announce.released(ctx, def, updated)
	}
	resp := model.NewSubmissionResponse(updated, def.Exam.Title)
	return &resp, nil
}

// Regrade recomputes a submitted attempt from its stored answers and the
// current canonical answers. Manual awards are kept.
func (s *GradingService) Regrade(ctx context.Context, submissionID int64, actor model.Actor) (*model.SubmissionResponse, error) {
	def, err := s.owned(ctx, submissionID, actor)
	if err != nil {
		return nil, err
	}
	updated, err := s.regrade(ctx, def, submissionID)
	if err != nil {
		return nil, err
	}
	resp := model.NewSubmissionResponse(updated, def.Exam.Title)
	return &resp, nil
}

func (s *GradingService) regrade(ctx context.Context, def *model.ExamDefinition, submissionID int64) (*model.Submission, error) {
	now := s.now()
	updated, err := s.submissions.Mutate(ctx, submissionID, func(sub *model.Submission) error {
		if sub.Status != model.SubmissionSubmitted {
			return ErrInvalidState
		}
		detail := Grade(def, sub.Answers, sub.SubmitDetail)
		settle(sub, detail, sub.GradedAt != nil || autoFinal(def), now)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("regrade submission %d: %w", submissionID, err)
	}
	return updated, nil
}

// RegradeExam regrades every submitted attempt of an exam in parallel and
// returns how many were regraded.
func (s *GradingService) RegradeExam(ctx context.Context, examID int64, actor model.Actor) (int, error) {
	def, err := s.exams.Definition(ctx, examID)
	if err != nil {
		return 0, fmt.Errorf("load exam %d: %w", examID, err)
	}
	if !actor.Owns(def.Exam.CreatorID) {
		return 0, ErrForbidden
	}
	subs, err := s.submissions.ListSubmissionsByExam(ctx, examID)
	if err != nil {
		return 0, fmt.Errorf("list submissions: %w", err)
	}

	var ids []int64
	for _, sub := range subs {
		if sub.Status == model.SubmissionSubmitted {
			ids = append(ids, sub.ID)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(regradeConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			_, err := s.regrade(gctx, def, id)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	s.log.Info().Int64("exam_id", examID).Int("regraded", len(ids)).Msg("Exam regraded")
	return len(ids), nil
}
