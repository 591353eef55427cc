package service

import (
	"testing"

	"github.com/stemsi/exampro-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExamStatistics(t *testing.T) {
	f := newFixture(t)
	// Ten single-choice questions worth 10 points each; answering the first
	// n correctly scores n*10 out of 100.
	specs := make([]q, 10)
	for i := range specs {
		specs[i] = q{model.QuestionTypeSingle, "A", 10}
	}
	examID, qids := f.exam(t, nil, specs...)

	correct := map[int64]int{1: 9, 2: 6, 3: 5, 4: 10}
	for uid, n := range correct {
		f.start(t, examID, uid)
		answers := model.Answers{}
		for i, qid := range qids {
			if i < n {
				answers[qid] = "A"
			} else {
				answers[qid] = "B"
			}
		}
		_, err := f.submission.Submit(f.ctx, examID, uid, answers)
		require.NoError(t, err)
	}
	f.start(t, examID, 5) // still in progress

	stats, err := f.stats.ExamStatistics(f.ctx, examID, teacher)
	require.NoError(t, err)

	assert.Equal(t, "Midterm", stats.ExamTitle)
	assert.Equal(t, 5, stats.TotalStudents)
	assert.Equal(t, 4, stats.SubmittedCount)
	assert.Equal(t, 80.0, stats.CompletionRate)
	assert.Equal(t, 75.0, *stats.AverageScore)
	assert.Equal(t, 100, *stats.HighestScore)
	assert.Equal(t, 50, *stats.LowestScore)
	assert.Equal(t, 3, stats.PassCount)
	assert.Equal(t, 75.0, stats.PassRate)
	assert.Equal(t, map[string]int{
		"0-59":   1,
		"60-69":  1,
		"70-79":  0,
		"80-89":  0,
		"90-100": 2,
	}, stats.ScoreDistribution)

	require.Len(t, stats.Questions, 10)
	first := stats.Questions[0]
	assert.Equal(t, 4, first.TotalAttempts)
	assert.Equal(t, 4, first.CorrectCount)
	assert.Equal(t, 100.0, first.Accuracy)
	assert.Equal(t, map[string]int{"A": 4}, first.OptionDistribution)
	last := stats.Questions[9]
	assert.Equal(t, 1, last.CorrectCount)
	assert.Equal(t, 25.0, last.Accuracy)

	_, err = f.stats.ExamStatistics(f.ctx, examID, model.Actor{UserID: 555, Role: model.RoleTeacher})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestExamStatisticsWithoutScores(t *testing.T) {
	f := newFixture(t)
	examID, _ := f.exam(t, nil, q{model.QuestionTypeShortAnswer, "", 10})
	f.start(t, examID, studentID)
	_, err := f.submission.Submit(f.ctx, examID, studentID, nil)
	require.NoError(t, err)

	stats, err := f.stats.ExamStatistics(f.ctx, examID, teacher)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SubmittedCount)
	assert.Nil(t, stats.AverageScore)
	assert.Nil(t, stats.HighestScore)
	assert.Equal(t, 0.0, stats.PassRate)
}

func TestStudentStatistics(t *testing.T) {
	f := newFixture(t)
	first, qa := f.exam(t, nil, q{model.QuestionTypeSingle, "A", 10})
	second, qb := f.exam(t, func(e *model.Exam) { e.Title = "Final" }, q{model.QuestionTypeSingle, "A", 20})
	third, _ := f.exam(t, nil, q{model.QuestionTypeShortAnswer, "", 10})

	for examID, answers := range map[int64]model.Answers{
		first:  {qa[0]: "A"},
		second: {qb[0]: "B"},
		third:  nil,
	} {
		f.start(t, examID, studentID)
		_, err := f.submission.Submit(f.ctx, examID, studentID, answers)
		require.NoError(t, err)
	}

	stats, err := f.stats.StudentStatistics(f.ctx, studentID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalExams)
	assert.Len(t, stats.Scores, 3)
	assert.Equal(t, 5.0, *stats.AverageScore, "ungraded attempts are left out")
	assert.Equal(t, 10, *stats.HighestScore)
	assert.Equal(t, 0, *stats.LowestScore)

	titles := map[string]bool{}
	for _, rec := range stats.Scores {
		titles[rec.ExamTitle] = true
	}
	assert.True(t, titles["Final"])
}
