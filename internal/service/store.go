package service

import (
	"context"
	"time"

	"github.com/stemsi/exampro-backend/internal/model"
)

// ExamSource resolves an exam together with its scored questions.
// Implementations may cache; Invalidate drops any cached copy.
type ExamSource interface {
	Definition(ctx context.Context, examID int64) (*model.ExamDefinition, error)
	Invalidate(ctx context.Context, examID int64) error
}

// ExamStore persists exam definitions and their question associations.
type ExamStore interface {
	CreateExam(ctx context.Context, e *model.Exam) error
	GetExam(ctx context.Context, id int64) (*model.Exam, error)
	// UpdateExam and AttachQuestion fail with ErrExamAttempted once the exam
	// has a submission, unless allowAttempted is set. The check and the
	// write are atomic.
	UpdateExam(ctx context.Context, e *model.Exam, allowAttempted bool) error
	SetExamStatus(ctx context.Context, id int64, status model.ExamStatus) error
	AttachQuestion(ctx context.Context, eq model.ExamQuestion, allowAttempted bool) error
	ExamIDsByQuestion(ctx context.Context, questionID int64) ([]int64, error)
	ListExamIDsByStatus(ctx context.Context, status model.ExamStatus) ([]int64, error)
}

// QuestionStore persists bank questions.
type QuestionStore interface {
	CreateQuestion(ctx context.Context, q *model.Question) error
	GetQuestion(ctx context.Context, id int64) (*model.Question, error)
	UpdateQuestion(ctx context.Context, q *model.Question) error
}

// SubmissionStore persists submissions and their proctoring log. Mutate and
// AppendEvent run fn while holding the submission's row lock, so concurrent
// writers to one submission are serialized. fn edits the submission in place;
// returning an error aborts the whole mutation and nothing is written.
type SubmissionStore interface {
	GetSubmission(ctx context.Context, id int64) (*model.Submission, error)
	FindSubmission(ctx context.Context, examID, userID int64) (*model.Submission, error)
	// CreateSubmission inserts s unless a row for (examId, userId) exists.
	// It reports whether s was inserted; on true s.ID is populated.
	CreateSubmission(ctx context.Context, s *model.Submission) (bool, error)
	Mutate(ctx context.Context, id int64, fn func(*model.Submission) error) (*model.Submission, error)
	// AppendEvent runs fn then inserts ev in the same critical section.
	AppendEvent(ctx context.Context, id int64, ev *model.ProctoringEvent, fn func(*model.Submission) error) (*model.Submission, error)
	ListSubmissionsByExam(ctx context.Context, examID int64) ([]model.Submission, error)
	ListSubmissionsByUser(ctx context.Context, userID int64) ([]model.Submission, error)
	ListEvents(ctx context.Context, submissionID int64) ([]model.ProctoringEvent, error)
	// ListOverdue returns IN_PROGRESS submissions whose deadline is before
	// now, in ascending id order after afterID.
	ListOverdue(ctx context.Context, now time.Time, afterID int64, limit int) ([]int64, error)
	CountSubmissions(ctx context.Context, examID int64) (int, error)
}

// NotificationStore persists delivered notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, id, userID int64) error
}

// NotificationQueue hands notifications to the asynchronous dispatcher.
type NotificationQueue interface {
	Enqueue(ctx context.Context, n model.Notification) error
}

// EventPublisher fans out live monitor events for an exam.
type EventPublisher interface {
	Publish(ctx context.Context, ev model.MonitorEvent) error
}
