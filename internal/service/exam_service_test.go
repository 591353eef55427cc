package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exampro-backend/internal/model"
	"github.com/stemsi/exampro-backend/internal/repository/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func examRequest() *model.ExamRequest {
	start, end := examStart, examEnd
	return &model.ExamRequest{
		Title:     "Quiz",
		CourseID:  7,
		StartTime: &start,
		EndTime:   &end,
	}
}

func TestCreateAndPublishExam(t *testing.T) {
	f := newFixture(t)

	exam, err := f.exams.Create(f.ctx, teacher, examRequest())
	require.NoError(t, err)
	assert.Equal(t, model.ExamStatusDraft, exam.Status)
	assert.Equal(t, model.PlatformBoth, exam.AllowedPlatforms)
	assert.Equal(t, 100, exam.TotalScore)

	assert.ErrorIs(t, f.exams.Publish(f.ctx, exam.ID, teacher), ErrNoQuestions)

	question, err := f.exams.CreateQuestion(f.ctx, teacher, &model.QuestionRequest{
		Content:    "2+2?",
		Type:       string(model.QuestionTypeSingle),
		Options:    []string{"3", "4"},
		Answer:     "B",
		Difficulty: string(model.DifficultyEasy),
	})
	require.NoError(t, err)
	_, err = f.exams.AttachQuestion(f.ctx, exam.ID, teacher, &model.ExamQuestionRequest{QuestionID: question.ID, Score: 5, Sequence: 1})
	require.NoError(t, err)

	_, err = f.exams.AttachQuestion(f.ctx, exam.ID, teacher, &model.ExamQuestionRequest{QuestionID: question.ID, Score: 5, Sequence: 2})
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, f.exams.Publish(f.ctx, exam.ID, teacher))
	assert.ErrorIs(t, f.exams.Publish(f.ctx, exam.ID, teacher), ErrInvalidState)

	view, err := f.exams.Get(f.ctx, exam.ID, student)
	require.NoError(t, err)
	require.Len(t, view.Questions, 1)
	assert.Empty(t, view.Questions[0].Question.Answer, "students never see canonical answers")

	full, err := f.exams.Get(f.ctx, exam.ID, teacher)
	require.NoError(t, err)
	assert.Equal(t, "B", full.Questions[0].Question.Answer)
}

func TestStudentsCannotSeeDrafts(t *testing.T) {
	f := newFixture(t)
	examID, _ := f.exam(t, func(e *model.Exam) { e.Status = model.ExamStatusDraft }, q{model.QuestionTypeSingle, "A", 1})

	_, err := f.exams.Get(f.ctx, examID, student)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExamLockedOnceAttempted(t *testing.T) {
	f := newFixture(t)
	examID, _ := f.exam(t, nil, q{model.QuestionTypeSingle, "A", 10})

	req := examRequest()
	req.Title = "Renamed"
	_, err := f.exams.Update(f.ctx, examID, teacher, req)
	require.NoError(t, err)

	f.start(t, examID, studentID)

	_, err = f.exams.Update(f.ctx, examID, teacher, req)
	assert.ErrorIs(t, err, ErrExamLocked)

	admin := model.Actor{UserID: 1000, Role: model.RoleAdmin}
	req.DurationMinutes = intPtr(45)
	updated, err := f.exams.Update(f.ctx, examID, admin, req)
	require.NoError(t, err)
	assert.Equal(t, teacherID, updated.CreatorID)
	assert.Equal(t, model.ExamStatusPublished, updated.Status)

	_, err = f.exams.Update(f.ctx, examID, model.Actor{UserID: 555, Role: model.RoleTeacher}, req)
	assert.ErrorIs(t, err, ErrForbidden)
}

// lateStartStore starts an attempt right after the lock check has counted.
type lateStartStore struct {
	*memstore.Store
}

func (s *lateStartStore) CountSubmissions(ctx context.Context, examID int64) (int, error) {
	n, err := s.Store.CountSubmissions(ctx, examID)
	start := examStart.Add(time.Minute)
	_, _ = s.Store.CreateSubmission(ctx, &model.Submission{
		ExamID:    examID,
		UserID:    studentID,
		Status:    model.SubmissionInProgress,
		Answers:   model.Answers{},
		StartTime: &start,
	})
	return n, err
}

func TestExamLockHoldsAgainstConcurrentStart(t *testing.T) {
	f := newFixture(t)
	svc := NewExamService(f.store, f.store, f.store, &lateStartStore{Store: f.store}, zerolog.Nop())

	examID, _ := f.exam(t, nil, q{model.QuestionTypeSingle, "A", 10})
	req := examRequest()
	req.Title = "Renamed"
	_, err := svc.Update(f.ctx, examID, teacher, req)
	assert.ErrorIs(t, err, ErrExamLocked)
	stored, err := f.store.GetExam(f.ctx, examID)
	require.NoError(t, err)
	assert.Equal(t, "Midterm", stored.Title)

	otherID, _ := f.exam(t, nil)
	question := &model.Question{CreatorID: teacherID, Content: "c", Type: model.QuestionTypeFillBlank, Answer: "x", Difficulty: model.DifficultyEasy}
	require.NoError(t, f.store.CreateQuestion(f.ctx, question))
	_, err = svc.AttachQuestion(f.ctx, otherID, teacher, &model.ExamQuestionRequest{QuestionID: question.ID, Score: 5, Sequence: 1})
	assert.ErrorIs(t, err, ErrExamLocked)
	def, err := f.store.Definition(f.ctx, otherID)
	require.NoError(t, err)
	assert.Empty(t, def.Questions)
}

func TestQuestionValidation(t *testing.T) {
	tests := []struct {
		name string
		req  model.QuestionRequest
	}{
		{"single without options", model.QuestionRequest{Type: "single", Answer: "A"}},
		{"true_false with letter", model.QuestionRequest{Type: "true_false", Answer: "A"}},
		{"fill_blank without answer", model.QuestionRequest{Type: "fill_blank"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.req.Content = "c"
			tt.req.Difficulty = "easy"
			_, err := f.exams.CreateQuestion(f.ctx, teacher, &tt.req)
			assert.ErrorIs(t, err, ErrQuestionInvalid)
		})
	}

	f := newFixture(t)
	_, err := f.exams.CreateQuestion(f.ctx, teacher, &model.QuestionRequest{Content: "essay", Type: "short_answer", Difficulty: "hard"})
	assert.NoError(t, err, "subjective questions need no canonical answer")
}

func TestPrewarmCaches(t *testing.T) {
	f := newFixture(t)
	f.exam(t, nil, q{model.QuestionTypeSingle, "A", 1})
	f.exam(t, func(e *model.Exam) { e.Status = model.ExamStatusDraft }, q{model.QuestionTypeSingle, "A", 1})

	assert.NoError(t, f.exams.PrewarmCaches(f.ctx))
}
