package service

import (
	"testing"

	"github.com/stemsi/exampro-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyManualScoresValidation(t *testing.T) {
	f := newFixture(t)
	examID, qids := f.exam(t, func(e *model.Exam) { e.NeedsGrading = true },
		q{model.QuestionTypeSingle, "B", 10},
		q{model.QuestionTypeShortAnswer, "", 10},
		q{model.QuestionTypeShortAnswer, "", 5},
	)
	sub := f.start(t, examID, studentID)

	_, err := f.grading.ApplyManualScores(f.ctx, sub.ID, teacher, map[int64]int{qids[1]: 5})
	assert.ErrorIs(t, err, ErrInvalidState, "in-progress attempts cannot be graded")

	_, err = f.submission.Submit(f.ctx, examID, studentID, model.Answers{qids[0]: "B", qids[1]: "x", qids[2]: "y"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		actor   model.Actor
		scores  map[int64]int
		wantErr error
	}{
		{"unknown question", teacher, map[int64]int{999: 1}, ErrQuestionNotInExam},
		{"above max", teacher, map[int64]int{qids[1]: 11}, ErrScoreOutOfRange},
		{"negative", teacher, map[int64]int{qids[1]: -1}, ErrScoreOutOfRange},
		{"objective question", teacher, map[int64]int{qids[0]: 10}, ErrNotManuallyGradable},
		{"one bad score rejects all", teacher, map[int64]int{qids[1]: 6, qids[2]: 6}, ErrScoreOutOfRange},
		{"other teacher", model.Actor{UserID: 555, Role: model.RoleTeacher}, map[int64]int{qids[1]: 1}, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.grading.ApplyManualScores(f.ctx, sub.ID, tt.actor, tt.scores)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	stored, err := f.store.GetSubmission(f.ctx, sub.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.SubmitDetail.Item(qids[1]).Awarded, "rejected calls apply nothing")
}

func TestApplyManualScoresInSteps(t *testing.T) {
	f := newFixture(t)
	examID, qids := f.exam(t, nil,
		q{model.QuestionTypeSingle, "B", 10},
		q{model.QuestionTypeShortAnswer, "", 10},
		q{model.QuestionTypeShortAnswer, "", 5},
	)
	sub := f.start(t, examID, studentID)
	_, err := f.submission.Submit(f.ctx, examID, studentID, model.Answers{qids[0]: "B"})
	require.NoError(t, err)

	partial, err := f.grading.ApplyManualScores(f.ctx, sub.ID, teacher, map[int64]int{qids[1]: 8})
	require.NoError(t, err)
	assert.Nil(t, partial.TotalScore, "one subjective question still pending")
	assert.Equal(t, teacherID, *partial.SubmitDetail.Item(qids[1]).GradedBy)

	full, err := f.grading.ApplyManualScores(f.ctx, sub.ID, teacher, map[int64]int{qids[2]: 5})
	require.NoError(t, err)
	assert.Equal(t, 13, *full.SubjectiveScore)
	assert.Equal(t, 23, *full.TotalScore)

	// Re-applying regrades.
	again, err := f.grading.ApplyManualScores(f.ctx, sub.ID, teacher, map[int64]int{qids[1]: 2})
	require.NoError(t, err)
	assert.Equal(t, 17, *again.TotalScore)
	assert.Len(t, f.store.QueuedOfType(model.NotificationScoreReleased), 1, "release is announced once")
}

func TestNeedsGradingObjectiveExamIsFinalizedByTeacher(t *testing.T) {
	f := newFixture(t)
	examID, qids := f.exam(t, func(e *model.Exam) { e.NeedsGrading = true },
		q{model.QuestionTypeSingle, "B", 10})
	sub := f.start(t, examID, studentID)

	submitted, err := f.submission.Submit(f.ctx, examID, studentID, model.Answers{qids[0]: "B"})
	require.NoError(t, err)
	assert.Nil(t, submitted.TotalScore)

	graded, err := f.grading.Finalize(f.ctx, sub.ID, teacher)
	require.NoError(t, err)
	require.NotNil(t, graded.TotalScore)
	assert.Equal(t, 10, *graded.TotalScore)
	assert.Equal(t, 0, *graded.SubjectiveScore)
	assert.Len(t, f.store.QueuedOfType(model.NotificationScoreReleased), 1)

	again, err := f.grading.Finalize(f.ctx, sub.ID, teacher)
	require.NoError(t, err)
	assert.Equal(t, 10, *again.TotalScore)
	assert.Len(t, f.store.QueuedOfType(model.NotificationScoreReleased), 1, "release is announced once")
}

func TestFinalizeRefusesPendingSubjective(t *testing.T) {
	f := newFixture(t)
	examID, qids := f.exam(t, nil,
		q{model.QuestionTypeSingle, "B", 10},
		q{model.QuestionTypeShortAnswer, "", 10})
	sub := f.start(t, examID, studentID)
	_, err := f.submission.Submit(f.ctx, examID, studentID, model.Answers{qids[0]: "B", qids[1]: "essay"})
	require.NoError(t, err)

	_, err = f.grading.Finalize(f.ctx, sub.ID, teacher)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.grading.Finalize(f.ctx, sub.ID, model.Actor{UserID: 555, Role: model.RoleTeacher})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRegradeAfterAnswerCorrection(t *testing.T) {
	f := newFixture(t)
	examID, qids := f.exam(t, nil,
		q{model.QuestionTypeSingle, "B", 10},
		q{model.QuestionTypeShortAnswer, "", 10},
	)

	var subIDs []int64
	for _, uid := range []int64{1, 2, 3} {
		sub := f.start(t, examID, uid)
		subIDs = append(subIDs, sub.ID)
		_, err := f.submission.Submit(f.ctx, examID, uid, model.Answers{qids[0]: "C"})
		require.NoError(t, err)
	}
	_, err := f.grading.ApplyManualScores(f.ctx, subIDs[0], teacher, map[int64]int{qids[1]: 4})
	require.NoError(t, err)

	_, err = f.exams.UpdateQuestion(f.ctx, qids[0], teacher, &model.QuestionRequest{
		Content:    "question",
		Type:       string(model.QuestionTypeSingle),
		Options:    []string{"A", "B", "C", "D"},
		Answer:     "C",
		Difficulty: string(model.DifficultyMedium),
	})
	require.NoError(t, err)

	n, err := f.grading.RegradeExam(f.ctx, examID, teacher)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	first, err := f.store.GetSubmission(f.ctx, subIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 10, *first.ObjectiveScore)
	assert.Equal(t, 14, *first.TotalScore, "manual award survives regrade")

	second, err := f.store.GetSubmission(f.ctx, subIDs[1])
	require.NoError(t, err)
	assert.Equal(t, 10, *second.ObjectiveScore)
	assert.Nil(t, second.TotalScore)

	once, err := f.grading.Regrade(f.ctx, subIDs[0], teacher)
	require.NoError(t, err)
	assert.Equal(t, *first.TotalScore, *once.TotalScore, "regrading is deterministic")

	_, err = f.grading.RegradeExam(f.ctx, examID, model.Actor{UserID: 555, Role: model.RoleTeacher})
	assert.ErrorIs(t, err, ErrForbidden)
}
