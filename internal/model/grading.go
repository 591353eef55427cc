package model

import (
	"time"
)

// GradeSource records who produced a question's score.
type GradeSource string

const (
	GradeSourceAuto   GradeSource = "auto"
	GradeSourceManual GradeSource = "manual"
)

// QuestionGrade is the scoring record of one question in a submission.
type QuestionGrade struct {
	QuestionID int64        `json:"questionId"`
	Type       QuestionType `json:"type"`
	MaxScore   int          `json:"maxScore"`
	Answer     string       `json:"answer"`
	Awarded    *int         `json:"awarded"`
	Correct    *bool        `json:"correct,omitempty"`
	Source     GradeSource  `json:"source,omitempty"`
	GradedBy   *int64       `json:"gradedBy,omitempty"`
	GradedAt   *time.Time   `json:"gradedAt,omitempty"`
}

// Pending reports whether the question still awaits a score.
func (g QuestionGrade) Pending() bool {
	return g.Awarded == nil
}

// GradingDetail is the per-question scoring record stored as submitDetail.
type GradingDetail struct {
	Items []QuestionGrade `json:"items"`
}

// Item returns a pointer to the grade of questionID, or nil.
func (d *GradingDetail) Item(questionID int64) *QuestionGrade {
	for i := range d.Items {
		if d.Items[i].QuestionID == questionID {
			return &d.Items[i]
		}
	}
	return nil
}

// ObjectiveScore sums the awards of auto-graded questions.
func (d *GradingDetail) ObjectiveScore() int {
	sum := 0
	for _, it := range d.Items {
		if it.Type.Objective() && it.Awarded != nil {
			sum += *it.Awarded
		}
	}
	return sum
}

// SubjectiveScore sums the awards of manually graded questions.
func (d *GradingDetail) SubjectiveScore() int {
	sum := 0
	for _, it := range d.Items {
		if !it.Type.Objective() && it.Awarded != nil {
			sum += *it.Awarded
		}
	}
	return sum
}

// HasPending reports whether any question still awaits a score.
func (d *GradingDetail) HasPending() bool {
	for _, it := range d.Items {
		if it.Pending() {
			return true
		}
	}
	return false
}

// ManualGradeRequest is the payload for subjective scoring. Attempts with
// nothing to score by hand are finalized instead.
type ManualGradeRequest struct {
	SubmissionID   int64         `json:"submissionId" binding:"required,min=1"`
	QuestionScores map[int64]int `json:"questionScores" binding:"required,min=1"`
}

// AIGradingRequest asks the advisor for a suggested score.
type AIGradingRequest struct {
	QuestionID    int64  `json:"questionId" binding:"required,min=1"`
	StudentAnswer string `json:"studentAnswer" binding:"required"`
	MaxScore      int    `json:"maxScore" binding:"required,min=1"`
}

// AIGradingResponse is an advisory suggestion; it is never applied automatically.
type AIGradingResponse struct {
	QuestionID     int64    `json:"questionId"`
	MaxScore       int      `json:"maxScore"`
	SuggestedScore int      `json:"suggestedScore"`
	Explanation    string   `json:"explanation"`
	Strengths      []string `json:"strengths"`
	Improvements   []string `json:"improvements"`
}
