package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/exampro-backend/internal/logger"
	"github.com/stemsi/exampro-backend/internal/model"
)

// ExamService handles exam definitions and their question set.
type ExamService struct {
	exams       ExamStore
	questions   QuestionStore
	source      ExamSource
	submissions SubmissionStore
	log         zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	exams ExamStore,
	questions QuestionStore,
	source ExamSource,
	submissions SubmissionStore,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		exams:       exams,
		questions:   questions,
		source:      source,
		submissions: submissions,
		log:         logger.Component(log, "exam_service"),
	}
}

// Create stores a new DRAFT exam owned by the actor.
func (s *ExamService) Create(ctx context.Context, actor model.Actor, req *model.ExamRequest) (*model.Exam, error) {
	exam := req.ToExam(actor.UserID)
	exam.Status = model.ExamStatusDraft
	if err := s.exams.CreateExam(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	s.log.Info().Int64("exam_id", exam.ID).Int64("creator_id", actor.UserID).Msg("Exam created")
	return exam, nil
}

// Get returns an exam with its questions. Students only see published exams
// and never the canonical answers.
func (s *ExamService) Get(ctx context.Context, examID int64, actor model.Actor) (*model.ExamDefinition, error) {
	def, err := s.source.Definition(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("load exam %d: %w", examID, err)
	}
	if actor.Role != model.RoleStudent {
		if !actor.Owns(def.Exam.CreatorID) {
			return nil, ErrForbidden
		}
		return def, nil
	}

	if def.Exam.Status != model.ExamStatusPublished {
		return nil, fmt.Errorf("exam %d: %w", examID, ErrNotFound)
	}
	view := &model.ExamDefinition{Exam: def.Exam, Questions: make([]model.ScoredQuestion, len(def.Questions))}
	for i, q := range def.Questions {
		view.Questions[i] = q.ForStudent()
	}
	return view, nil
}

// locked returns ErrExamLocked once any submission exists for the exam,
// unless the actor is an admin.
func (s *ExamService) locked(ctx context.Context, examID int64, actor model.Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	n, err := s.submissions.CountSubmissions(ctx, examID)
	if err != nil {
		return fmt.Errorf("count submissions: %w", err)
	}
	if n > 0 {
		return ErrExamLocked
	}
	return nil
}

// lockedErr reports a write refused because an attempt started meanwhile.
func lockedErr(err error) error {
	if errors.Is(err, ErrExamAttempted) {
		return ErrExamLocked
	}
	return err
}

func (s *ExamService) owned(ctx context.Context, examID int64, actor model.Actor) (*model.Exam, error) {
	exam, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if !actor.Owns(exam.CreatorID) {
		return nil, ErrForbidden
	}
	return exam, nil
}

// Update replaces the editable fields of an exam. Exams with submissions are
// immutable except for admins.
func (s *ExamService) Update(ctx context.Context, examID int64, actor model.Actor, req *model.ExamRequest) (*model.Exam, error) {
	existing, err := s.owned(ctx, examID, actor)
	if err != nil {
		return nil, err
	}
	if err := s.locked(ctx, examID, actor); err != nil {
		return nil, err
	}

	exam := req.ToExam(existing.CreatorID)
	exam.ID = existing.ID
	exam.Status = existing.Status
	exam.CreatedAt = existing.CreatedAt
	if err := s.exams.UpdateExam(ctx, exam, actor.IsAdmin()); err != nil {
		return nil, fmt.Errorf("update exam: %w", lockedErr(err))
	}
	s.refresh(ctx, examID)
	return exam, nil
}

// Publish opens a DRAFT exam to students and warms its cached definition.
func (s *ExamService) Publish(ctx context.Context, examID int64, actor model.Actor) error {
	exam, err := s.owned(ctx, examID, actor)
	if err != nil {
		return err
	}
	if exam.Status != model.ExamStatusDraft {
		return fmt.Errorf("exam status is %s, expected draft: %w", exam.Status.Description(), ErrInvalidState)
	}

	def, err := s.source.Definition(ctx, examID)
	if err != nil {
		return fmt.Errorf("load exam %d: %w", examID, err)
	}
	if len(def.Questions) == 0 {
		return ErrNoQuestions
	}

	if err := s.exams.SetExamStatus(ctx, examID, model.ExamStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	s.refresh(ctx, examID)
	if _, err := s.source.Definition(ctx, examID); err != nil {
		s.log.Warn().Err(err).Int64("exam_id", examID).Msg("Failed to warm exam cache")
	}

	s.log.Info().Int64("exam_id", examID).Msg("Exam published")
	return nil
}

// AttachQuestion adds a scored question to an exam.
func (s *ExamService) AttachQuestion(ctx context.Context, examID int64, actor model.Actor, req *model.ExamQuestionRequest) (*model.ExamQuestion, error) {
	if _, err := s.owned(ctx, examID, actor); err != nil {
		return nil, err
	}
	if err := s.locked(ctx, examID, actor); err != nil {
		return nil, err
	}
	if _, err := s.questions.GetQuestion(ctx, req.QuestionID); err != nil {
		return nil, fmt.Errorf("get question %d: %w", req.QuestionID, err)
	}

	eq := model.ExamQuestion{
		ExamID:     examID,
		QuestionID: req.QuestionID,
		Score:      req.Score,
		Sequence:   req.Sequence,
	}
	if err := s.exams.AttachQuestion(ctx, eq, actor.IsAdmin()); err != nil {
		return nil, fmt.Errorf("attach question: %w", lockedErr(err))
	}
	s.refresh(ctx, examID)
	return &eq, nil
}

// CreateQuestion stores a bank question owned by the actor.
func (s *ExamService) CreateQuestion(ctx context.Context, actor model.Actor, req *model.QuestionRequest) (*model.Question, error) {
	q, err := questionFromRequest(req)
	if err != nil {
		return nil, err
	}
	q.CreatorID = actor.UserID
	if err := s.questions.CreateQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// GetQuestion returns a bank question to its owner.
func (s *ExamService) GetQuestion(ctx context.Context, id int64, actor model.Actor) (*model.Question, error) {
	q, err := s.questions.GetQuestion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	if !actor.Owns(q.CreatorID) {
		return nil, ErrForbidden
	}
	return q, nil
}

// UpdateQuestion corrects a bank question. Every exam using it has its cached
// definition dropped; stored grades change only when regraded.
func (s *ExamService) UpdateQuestion(ctx context.Context, id int64, actor model.Actor, req *model.QuestionRequest) (*model.Question, error) {
	existing, err := s.GetQuestion(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	q, err := questionFromRequest(req)
	if err != nil {
		return nil, err
	}
	q.ID = existing.ID
	q.CreatorID = existing.CreatorID
	q.CreatedAt = existing.CreatedAt
	if err := s.questions.UpdateQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}

	examIDs, err := s.exams.ExamIDsByQuestion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find exams using question: %w", err)
	}
	for _, examID := range examIDs {
		s.refresh(ctx, examID)
	}
	return q, nil
}

func questionFromRequest(req *model.QuestionRequest) (*model.Question, error) {
	t := model.QuestionType(req.Type)
	if t.NeedsOptions() && len(req.Options) < 2 {
		return nil, fmt.Errorf("%w: %s needs at least two options", ErrQuestionInvalid, t)
	}
	if t == model.QuestionTypeTrueFalse {
		a := strings.ToLower(strings.TrimSpace(req.Answer))
		if a != "true" && a != "false" {
			return nil, fmt.Errorf("%w: true_false answer must be true or false", ErrQuestionInvalid)
		}
	}
	if t.Objective() && strings.TrimSpace(req.Answer) == "" {
		return nil, fmt.Errorf("%w: %s needs a canonical answer", ErrQuestionInvalid, t)
	}
	return &model.Question{
		Content:    req.Content,
		Type:       t,
		Options:    req.Options,
		Answer:     req.Answer,
		Analysis:   req.Analysis,
		Difficulty: model.Difficulty(req.Difficulty),
		Category:   req.Category,
	}, nil
}

// refresh drops the cached definition so the next read reloads it.
func (s *ExamService) refresh(ctx context.Context, examID int64) {
	if err := s.source.Invalidate(ctx, examID); err != nil {
		s.log.Warn().Err(err).Int64("exam_id", examID).Msg("Failed to invalidate exam cache")
	}
}

// PrewarmCaches loads every published exam into the definition cache.
func (s *ExamService) PrewarmCaches(ctx context.Context) error {
	ids, err := s.exams.ListExamIDsByStatus(ctx, model.ExamStatusPublished)
	if err != nil {
		return fmt.Errorf("list published exams: %w", err)
	}
	warmed := 0
	for _, id := range ids {
		if _, err := s.source.Definition(ctx, id); err != nil {
			s.log.Warn().Err(err).Int64("exam_id", id).Msg("Failed to warm exam, skipping")
			continue
		}
		warmed++
	}
	s.log.Info().Int("warmed", warmed).Int("total", len(ids)).Msg("Prewarming complete")
	return nil
}
