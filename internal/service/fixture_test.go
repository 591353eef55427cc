package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exampro-backend/internal/model"
	"github.com/stemsi/exampro-backend/internal/repository/memstore"
	"github.com/stretchr/testify/require"
)

const (
	teacherID int64 = 100
	studentID int64 = 1
)

var (
	examStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	examEnd   = examStart.Add(2 * time.Hour)

	teacher = model.Actor{UserID: teacherID, Role: model.RoleTeacher}
	student = model.Actor{UserID: studentID, Role: model.RoleStudent}
)

type fixture struct {
	ctx   context.Context
	store *memstore.Store
	clock time.Time

	exams      *ExamService
	submission *SubmissionService
	proctoring *ProctoringService
	grading    *GradingService
	stats      *StatisticsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	log := zerolog.Nop()
	f := &fixture{
		ctx:        context.Background(),
		store:      store,
		clock:      examStart.Add(10 * time.Minute),
		exams:      NewExamService(store, store, store, store, log),
		submission: NewSubmissionService(store, store, store, store, log),
		proctoring: NewProctoringService(store, store, store, store, log),
		grading:    NewGradingService(store, store, store, log),
		stats:      NewStatisticsService(store, store, log),
	}
	now := func() time.Time { return f.clock }
	f.submission.now = now
	f.proctoring.now = now
	f.grading.now = now
	return f
}

// q describes a question to attach to a fixture exam.
type q struct {
	typ    model.QuestionType
	answer string
	score  int
}

// exam creates a published exam owned by teacherID with the given questions
// attached in order. It returns the exam id and the question ids.
func (f *fixture) exam(t *testing.T, edit func(*model.Exam), questions ...q) (int64, []int64) {
	t.Helper()
	e := &model.Exam{
		Title:      "Midterm",
		CourseID:   7,
		CreatorID:  teacherID,
		StartTime:  examStart,
		EndTime:    examEnd,
		TotalScore: 100,
		Status:     model.ExamStatusPublished,
		ProctoringPolicy: model.ProctoringPolicy{
			AllowedPlatforms: model.PlatformBoth,
		},
	}
	if edit != nil {
		edit(e)
	}
	require.NoError(t, f.store.CreateExam(f.ctx, e))

	ids := make([]int64, 0, len(questions))
	for i, qs := range questions {
		question := &model.Question{
			CreatorID:  teacherID,
			Content:    "question",
			Type:       qs.typ,
			Answer:     qs.answer,
			Difficulty: model.DifficultyMedium,
		}
		if qs.typ.NeedsOptions() {
			question.Options = []string{"A", "B", "C", "D"}
		}
		require.NoError(t, f.store.CreateQuestion(f.ctx, question))
		require.NoError(t, f.store.AttachQuestion(f.ctx, model.ExamQuestion{
			ExamID:     e.ID,
			QuestionID: question.ID,
			Score:      qs.score,
			Sequence:   i + 1,
		}, true))
		ids = append(ids, question.ID)
	}
	return e.ID, ids
}

func (f *fixture) start(t *testing.T, examID, userID int64) *model.SubmissionResponse {
	t.Helper()
	sub, err := f.submission.StartOrResume(f.ctx, examID, userID, model.PlatformDesktop)
	require.NoError(t, err)
	return sub
}

func intPtr(v int) *int { return &v }
