package model

import (
	"errors"
	"fmt"
	"time"
)

// SubmissionStatus enumerates attempt states. SUBMITTED is terminal.
type SubmissionStatus int

const (
	SubmissionNotStarted SubmissionStatus = 0
	SubmissionInProgress SubmissionStatus = 1
	SubmissionSubmitted  SubmissionStatus = 2
)

// Description returns the human-readable status label.
func (s SubmissionStatus) Description() string {
	switch s {
	case SubmissionNotStarted:
		return "not started"
	case SubmissionInProgress:
		return "in progress"
	case SubmissionSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// ErrIllegalTransition is returned when a status change would skip
// IN_PROGRESS or leave SUBMITTED.
var ErrIllegalTransition = errors.New("illegal submission transition")

// CanTransitionTo reports whether next directly follows s.
func (s SubmissionStatus) CanTransitionTo(next SubmissionStatus) bool {
	return next == s+1 && next <= SubmissionSubmitted
}

// SubmitReason records what moved an attempt to SUBMITTED.
type SubmitReason string

const (
	SubmitReasonManual     SubmitReason = "manual"
	SubmitReasonExpired    SubmitReason = "expired"
	SubmitReasonProctoring SubmitReason = "proctoring"
)

// Answers maps question id to the raw answer string.
type Answers map[int64]string

// Merge upserts every entry of other into a.
func (a Answers) Merge(other Answers) {
	for qid, ans := range other {
		a[qid] = ans
	}
}

// Submission is one student's attempt at one exam.
type Submission struct {
	ID              int64            `json:"id"`
	ExamID          int64            `json:"examId"`
	UserID          int64            `json:"userId"`
	Answers         Answers          `json:"answers"`
	Status          SubmissionStatus `json:"status"`
	ObjectiveScore  *int             `json:"objectiveScore"`
	SubjectiveScore *int             `json:"subjectiveScore"`
	TotalScore      *int             `json:"totalScore"`
	SwitchCount     int              `json:"switchCount"`
	StartTime       *time.Time       `json:"startTime"`
	SubmitTime      *time.Time       `json:"submitTime"`
	SubmitReason    *SubmitReason    `json:"submitReason,omitempty"`
	SubmitDetail    *GradingDetail   `json:"submitDetail"`
	GradedAt        *time.Time       `json:"gradedAt,omitempty"`
}

// NewSubmission returns a NOT_STARTED attempt.
func NewSubmission(examID, userID int64) *Submission {
	return &Submission{
		ExamID:  examID,
		UserID:  userID,
		Answers: Answers{},
		Status:  SubmissionNotStarted,
	}
}

func (s *Submission) transition(next SubmissionStatus) error {
	if !s.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.Status.Description(), next.Description())
	}
	s.Status = next
	return nil
}

// Begin moves NOT_STARTED to IN_PROGRESS and stamps the start time once.
func (s *Submission) Begin(now time.Time) error {
	if err := s.transition(SubmissionInProgress); err != nil {
		return err
	}
	if s.StartTime == nil {
		t := now
		s.StartTime = &t
	}
	return nil
}

// Finish moves IN_PROGRESS to SUBMITTED and stamps the submit time once.
func (s *Submission) Finish(now time.Time, reason SubmitReason) error {
	if err := s.transition(SubmissionSubmitted); err != nil {
		return err
	}
	t := now
	s.SubmitTime = &t
	s.SubmitReason = &reason
	return nil
}

// Graded reports whether the total score is final.
func (s *Submission) Graded() bool {
	return s.TotalScore != nil
}

// SubmissionResponse is the API view of a submission.
type SubmissionResponse struct {
	Submission
	ExamTitle         string `json:"examTitle"`
	StatusDescription string `json:"statusDescription"`
}

// NewSubmissionResponse decorates s for the API.
func NewSubmissionResponse(s *Submission, examTitle string) SubmissionResponse {
	return SubmissionResponse{
		Submission:        *s,
		ExamTitle:         examTitle,
		StatusDescription: s.Status.Description(),
	}
}

// StartRequest carries the client's platform when starting an exam.
type StartRequest struct {
	Platform string `json:"platform" binding:"omitempty,oneof=desktop mobile"`
}

// AnswersRequest is the payload for saving or submitting answers.
type AnswersRequest struct {
	Answers Answers `json:"answers"`
}
