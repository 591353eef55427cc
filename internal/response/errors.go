package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrStaffAccessOnly   ErrCode = "STAFF_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam definition ───────────────────────────────────────────────
	ErrExamNotPublished ErrCode = "EXAM_NOT_PUBLISHED"
	ErrExamLocked       ErrCode = "EXAM_LOCKED"
	ErrNoQuestions      ErrCode = "NO_QUESTIONS"
	ErrQuestionInvalid  ErrCode = "QUESTION_INVALID"

	// ─── Submission lifecycle ──────────────────────────────────────────
	ErrOutOfWindow         ErrCode = "OUT_OF_WINDOW"
	ErrAlreadySubmitted    ErrCode = "ALREADY_SUBMITTED"
	ErrInvalidState        ErrCode = "INVALID_STATE"
	ErrNoActiveSubmission  ErrCode = "NO_ACTIVE_SUBMISSION"
	ErrPlatformNotAllowed  ErrCode = "PLATFORM_NOT_ALLOWED"
	ErrQuestionNotInExam   ErrCode = "QUESTION_NOT_IN_EXAM"
	ErrForceSubmitted      ErrCode = "FORCE_SUBMITTED"
	ErrScoreOutOfRange     ErrCode = "SCORE_OUT_OF_RANGE"
	ErrNotManuallyGradable ErrCode = "NOT_MANUALLY_GRADABLE"

	// ─── Grading advisor ───────────────────────────────────────────────
	ErrSuggestionUnavailable ErrCode = "SUGGESTION_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrStaffAccessOnly:
		return "This resource is restricted to teachers and administrators."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	case ErrExamNotPublished:
		return "This exam has not been published."
	case ErrExamLocked:
		return "This exam already has submissions and can no longer be edited."
	case ErrNoQuestions:
		return "This exam has no questions."
	case ErrQuestionInvalid:
		return "The question is missing options or a valid answer for its type."

	case ErrOutOfWindow:
		return "The exam is not open at this time."
	case ErrAlreadySubmitted:
		return "This exam has already been submitted."
	case ErrInvalidState:
		return "The submission is not in a state that allows this action."
	case ErrNoActiveSubmission:
		return "You have no active attempt for this exam."
	case ErrPlatformNotAllowed:
		return "This exam cannot be taken on your device."
	case ErrQuestionNotInExam:
		return "An answer or score refers to a question outside this exam."
	case ErrForceSubmitted:
		return "Your exam was submitted automatically after too many focus violations."
	case ErrScoreOutOfRange:
		return "A score is outside the question's allowed range."
	case ErrNotManuallyGradable:
		return "Only short answer questions can be graded manually."

	case ErrSuggestionUnavailable:
		return "The grading advisor is currently unavailable."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
