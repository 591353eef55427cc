package model

import (
	"time"
)

// QuestionType is the answer format of a question.
type QuestionType string

const (
	QuestionTypeSingle      QuestionType = "single"
	QuestionTypeMultiple    QuestionType = "multiple"
	QuestionTypeTrueFalse   QuestionType = "true_false"
	QuestionTypeFillBlank   QuestionType = "fill_blank"
	QuestionTypeShortAnswer QuestionType = "short_answer"
)

// Objective reports whether answers of this type are auto-graded.
func (t QuestionType) Objective() bool {
	switch t {
	case QuestionTypeSingle, QuestionTypeMultiple, QuestionTypeTrueFalse, QuestionTypeFillBlank:
		return true
	default:
		return false
	}
}

// NeedsOptions reports whether the type requires a choice list.
func (t QuestionType) NeedsOptions() bool {
	return t == QuestionTypeSingle || t == QuestionTypeMultiple
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is a bank question with its canonical answer.
type Question struct {
	ID         int64        `json:"id"`
	CreatorID  int64        `json:"creatorId"`
	Content    string       `json:"content"`
	Type       QuestionType `json:"type"`
	Options    []string     `json:"options,omitempty"`
	Answer     string       `json:"answer,omitempty"`
	Analysis   *string      `json:"analysis,omitempty"`
	Difficulty Difficulty   `json:"difficulty"`
	Category   *string      `json:"category,omitempty"`
	CreatedAt  time.Time    `json:"createTime"`
}

// QuestionRequest is the payload for creating a question.
type QuestionRequest struct {
	Content    string   `json:"content" binding:"required"`
	Type       string   `json:"type" binding:"required,oneof=single multiple true_false fill_blank short_answer"`
	Options    []string `json:"options" binding:"omitempty,dive,required"`
	Answer     string   `json:"answer"`
	Analysis   *string  `json:"analysis"`
	Difficulty string   `json:"difficulty" binding:"required,oneof=easy medium hard"`
	Category   *string  `json:"category" binding:"omitempty,max=50"`
}

// ExamQuestion is the scored association of a question with an exam.
type ExamQuestion struct {
	ExamID     int64 `json:"examId"`
	QuestionID int64 `json:"questionId"`
	Score      int   `json:"score"`
	Sequence   int   `json:"sequence"`
}

// ExamQuestionRequest is the payload for attaching a question to an exam.
type ExamQuestionRequest struct {
	QuestionID int64 `json:"questionId" binding:"required,min=1"`
	Score      int   `json:"score" binding:"required,min=1"`
	Sequence   int   `json:"sequence" binding:"required,min=1"`
}

// ScoredQuestion joins an exam's association row with the question it points to.
type ScoredQuestion struct {
	ExamQuestion
	Question Question `json:"question"`
}

// ForStudent strips the canonical answer and analysis.
func (q ScoredQuestion) ForStudent() ScoredQuestion {
	q.Question.Answer = ""
	q.Question.Analysis = nil
	return q
}

// ExamDefinition bundles an exam with its ordered scored questions.
type ExamDefinition struct {
	Exam      Exam             `json:"exam"`
	Questions []ScoredQuestion `json:"questions"`
}

// Question returns the scored question with the given id.
func (d *ExamDefinition) Question(id int64) (ScoredQuestion, bool) {
	for _, q := range d.Questions {
		if q.QuestionID == id {
			return q, true
		}
	}
	return ScoredQuestion{}, false
}

// HasSubjective reports whether any question needs manual grading.
func (d *ExamDefinition) HasSubjective() bool {
	for _, q := range d.Questions {
		if !q.Question.Type.Objective() {
			return true
		}
	}
	return false
}
