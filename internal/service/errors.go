package service

import (
	"errors"

	"github.com/stemsi/exampro-backend/internal/repository"
)

// Domain errors returned by the services. Handlers map them to envelope codes
// with errors.Is, so callers must wrap with %w.
var (
	ErrOutOfWindow           = errors.New("outside of the exam window")
	ErrAlreadySubmitted      = errors.New("exam already submitted")
	ErrInvalidState          = errors.New("submission is not in a valid state for this operation")
	ErrNoActiveSubmission    = errors.New("no active submission for this exam")
	ErrPlatformNotAllowed    = errors.New("platform not allowed for this exam")
	ErrQuestionNotInExam     = errors.New("question does not belong to this exam")
	ErrScoreOutOfRange       = errors.New("score out of range")
	ErrExamNotPublished      = errors.New("exam is not published")
	ErrExamLocked            = errors.New("exam is locked by existing submissions")
	ErrNotManuallyGradable   = errors.New("question is graded automatically")
	ErrSuggestionUnavailable = errors.New("grading suggestion unavailable")
	ErrForbidden             = errors.New("forbidden")
	ErrNoQuestions           = errors.New("exam has no questions")
	ErrQuestionInvalid       = errors.New("question does not fit its type")

	ErrNotFound      = repository.ErrNotFound
	ErrConflict      = repository.ErrConflict
	ErrExamAttempted = repository.ErrAttempted
)
