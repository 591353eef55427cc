package model

import (
	"time"
)

// ProctoringEventType is a client-reported integrity signal.
type ProctoringEventType string

const (
	EventTabSwitch      ProctoringEventType = "tab_switch"
	EventExitFullscreen ProctoringEventType = "exit_fullscreen"
	EventBlur           ProctoringEventType = "blur"
)

// CountsAsSwitch reports whether the event increments switchCount.
// Blur is logged only; it fires on too many benign focus changes.
func (t ProctoringEventType) CountsAsSwitch() bool {
	return t == EventTabSwitch || t == EventExitFullscreen
}

// Valid reports whether t is a known event type.
func (t ProctoringEventType) Valid() bool {
	switch t {
	case EventTabSwitch, EventExitFullscreen, EventBlur:
		return true
	default:
		return false
	}
}

// ProctoringEvent is an append-only integrity log entry.
type ProctoringEvent struct {
	ID           int64               `json:"id"`
	SubmissionID int64               `json:"submissionId"`
	ExamID       int64               `json:"examId"`
	UserID       int64               `json:"userId"`
	EventType    ProctoringEventType `json:"eventType"`
	Detail       *string             `json:"detail"`
	CreatedAt    time.Time           `json:"createTime"`
}

// ProctoringEventRequest is the payload for reporting an event.
type ProctoringEventRequest struct {
	ExamID    int64   `json:"examId" binding:"required,min=1"`
	EventType string  `json:"eventType" binding:"required,oneof=tab_switch exit_fullscreen blur"`
	Detail    *string `json:"detail" binding:"omitempty,max=500"`
}

// ProctoringResult is returned to the client after an event is recorded.
type ProctoringResult struct {
	SubmissionID int64 `json:"submissionId"`
	SwitchCount  int   `json:"switchCount"`
	// Enforced is true when the event forced the attempt to SUBMITTED;
	// the client must leave exam mode.
	Enforced   bool                `json:"enforced"`
	Submission *SubmissionResponse `json:"submission,omitempty"`
}

// MonitorEvent is the payload published on an exam's live monitor channel.
type MonitorEvent struct {
	Type         string              `json:"type"`
	ExamID       int64               `json:"examId"`
	SubmissionID int64               `json:"submissionId"`
	UserID       int64               `json:"userId"`
	EventType    ProctoringEventType `json:"eventType,omitempty"`
	SwitchCount  int                 `json:"switchCount"`
	Status       SubmissionStatus    `json:"status"`
	At           time.Time           `json:"at"`
}

const (
	MonitorEventStarted   = "started"
	MonitorEventProctor   = "proctoring"
	MonitorEventSubmitted = "submitted"
)

// MonitorStudent is one row of the live monitor snapshot.
type MonitorStudent struct {
	SubmissionID  int64            `json:"submissionId"`
	UserID        int64            `json:"userId"`
	Status        SubmissionStatus `json:"status"`
	AnsweredCount int              `json:"answeredCount"`
	SwitchCount   int              `json:"switchCount"`
	StartTime     *time.Time       `json:"startTime"`
	SubmitTime    *time.Time       `json:"submitTime"`
	TotalScore    *int             `json:"totalScore"`
}

// MonitorSnapshot is the state a live monitor starts from.
type MonitorSnapshot struct {
	ExamID          int64            `json:"examId"`
	Title           string           `json:"title"`
	TotalQuestions  int              `json:"totalQuestions"`
	TotalJoined     int              `json:"totalJoined"`
	TotalInProgress int              `json:"totalInProgress"`
	TotalSubmitted  int              `json:"totalSubmitted"`
	TotalSwitches   int              `json:"totalSwitches"`
	Students        []MonitorStudent `json:"students"`
}
