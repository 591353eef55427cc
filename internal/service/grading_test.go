package service

import (
	"testing"

	"github.com/stemsi/exampro-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerMatches(t *testing.T) {
	tests := []struct {
		name      string
		typ       model.QuestionType
		canonical string
		answer    string
		want      bool
	}{
		{"single exact", model.QuestionTypeSingle, "B", "B", true},
		{"single ignores case", model.QuestionTypeSingle, "B", "b", true},
		{"single wrong", model.QuestionTypeSingle, "B", "C", false},
		{"single empty", model.QuestionTypeSingle, "B", "", false},
		{"true_false ignores case", model.QuestionTypeTrueFalse, "true", "TRUE", true},
		{"true_false wrong", model.QuestionTypeTrueFalse, "true", "false", false},
		{"multiple same order", model.QuestionTypeMultiple, "A,C", "A,C", true},
		{"multiple reversed", model.QuestionTypeMultiple, "A,C", "C,A", true},
		{"multiple spaced and lower", model.QuestionTypeMultiple, "A,C", " c , a ", true},
		{"multiple subset", model.QuestionTypeMultiple, "A,C", "A", false},
		{"multiple superset", model.QuestionTypeMultiple, "A,C", "A,B,C", false},
		{"fill_blank exact", model.QuestionTypeFillBlank, "goroutine", "goroutine", true},
		{"fill_blank trims outer space", model.QuestionTypeFillBlank, "goroutine", "  goroutine ", true},
		{"fill_blank is case sensitive", model.QuestionTypeFillBlank, "goroutine", "Goroutine", false},
		{"short_answer never matches", model.QuestionTypeShortAnswer, "anything", "anything", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnswerMatches(tt.typ, tt.canonical, tt.answer))
		})
	}
}

func definition(questions ...model.ScoredQuestion) *model.ExamDefinition {
	return &model.ExamDefinition{Exam: model.Exam{TotalScore: 100}, Questions: questions}
}

func scored(id int64, typ model.QuestionType, answer string, score int) model.ScoredQuestion {
	return model.ScoredQuestion{
		ExamQuestion: model.ExamQuestion{QuestionID: id, Score: score, Sequence: int(id)},
		Question:     model.Question{ID: id, Type: typ, Answer: answer},
	}
}

func TestGradeIsDeterministic(t *testing.T) {
	def := definition(
		scored(1, model.QuestionTypeSingle, "B", 10),
		scored(2, model.QuestionTypeMultiple, "A,C", 20),
		scored(3, model.QuestionTypeFillBlank, "chan", 5),
		scored(4, model.QuestionTypeShortAnswer, "", 10),
	)
	answers := model.Answers{1: "B", 2: "C,A", 3: "mutex", 4: "free text"}

	first := Grade(def, answers, nil)
	second := Grade(def, answers, nil)

	assert.Equal(t, first, second)
	assert.Equal(t, 30, first.ObjectiveScore())
	assert.True(t, first.HasPending())
	require.Len(t, first.Items, 4)
	assert.Nil(t, first.Item(4).Awarded)
	assert.False(t, *first.Item(3).Correct)
}

func TestGradeKeepsManualAwards(t *testing.T) {
	def := definition(
		scored(1, model.QuestionTypeSingle, "B", 10),
		scored(2, model.QuestionTypeShortAnswer, "", 10),
	)
	prior := Grade(def, model.Answers{1: "A", 2: "essay"}, nil)
	seven := 7
	prior.Item(2).Awarded = &seven
	prior.Item(2).Source = model.GradeSourceManual

	// The canonical answer was corrected from B to A.
	def.Questions[0].Question.Answer = "A"
	regraded := Grade(def, model.Answers{1: "A", 2: "essay"}, prior)

	assert.Equal(t, 10, regraded.ObjectiveScore())
	assert.Equal(t, 7, regraded.SubjectiveScore())
	assert.Equal(t, model.GradeSourceManual, regraded.Item(2).Source)
	assert.False(t, regraded.HasPending())
}

func TestSettleOnlyFinalizesWithoutPending(t *testing.T) {
	def := definition(
		scored(1, model.QuestionTypeSingle, "B", 10),
		scored(2, model.QuestionTypeShortAnswer, "", 10),
	)
	s := &model.Submission{}
	settle(s, Grade(def, model.Answers{1: "B"}, nil), true, examStart)

	require.NotNil(t, s.ObjectiveScore)
	assert.Equal(t, 10, *s.ObjectiveScore)
	assert.Nil(t, s.SubjectiveScore)
	assert.Nil(t, s.TotalScore)
	assert.Nil(t, s.GradedAt)
}
