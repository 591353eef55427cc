package model

import (
	"time"
)

// ExamStatus enumerates the publication states of an exam.
type ExamStatus int

const (
	ExamStatusDraft     ExamStatus = 0
	ExamStatusPublished ExamStatus = 1
	ExamStatusEnded     ExamStatus = 2
)

// Description returns the human-readable status label.
func (s ExamStatus) Description() string {
	switch s {
	case ExamStatusDraft:
		return "draft"
	case ExamStatusPublished:
		return "published"
	case ExamStatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Platform is a client device class.
type Platform string

const (
	PlatformDesktop Platform = "desktop"
	PlatformMobile  Platform = "mobile"
	PlatformBoth    Platform = "both"
)

// Permits reports whether a client on the given platform may start the exam.
func (p Platform) Permits(client Platform) bool {
	if p == "" || p == PlatformBoth {
		return true
	}
	return p == client
}

// ProctoringPolicy is the anti-cheating configuration of an exam.
type ProctoringPolicy struct {
	AllowedPlatforms   Platform `json:"allowedPlatforms"`
	StrictMode         bool     `json:"strictMode"`
	MaxSwitchCount     *int     `json:"maxSwitchCount"`
	FullscreenRequired bool     `json:"fullscreenRequired"`
}

// Exceeded reports whether switchCount breaks a strict policy.
// A nil MaxSwitchCount never forces a submit.
func (p ProctoringPolicy) Exceeded(switchCount int) bool {
	if !p.StrictMode || p.MaxSwitchCount == nil {
		return false
	}
	return switchCount > *p.MaxSwitchCount
}

// Exam is the exam definition.
type Exam struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	CourseID        int64      `json:"courseId"`
	CreatorID       int64      `json:"creatorId"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         time.Time  `json:"endTime"`
	DurationMinutes *int       `json:"duration"`
	TotalScore      int        `json:"totalScore"`
	NeedsGrading    bool       `json:"needsGrading"`
	Status          ExamStatus `json:"status"`
	ProctoringPolicy
	CreatedAt time.Time `json:"createTime"`
	UpdatedAt time.Time `json:"updateTime"`
}

// InWindow reports whether t lies within [StartTime, EndTime].
func (e *Exam) InWindow(t time.Time) bool {
	return !t.Before(e.StartTime) && !t.After(e.EndTime)
}

// Deadline returns the latest moment an attempt started at startedAt may
// accept answers: the exam end time, shortened by the duration when one is set.
func (e *Exam) Deadline(startedAt time.Time) time.Time {
	if e.DurationMinutes == nil || *e.DurationMinutes <= 0 {
		return e.EndTime
	}
	byDuration := startedAt.Add(time.Duration(*e.DurationMinutes) * time.Minute)
	if byDuration.Before(e.EndTime) {
		return byDuration
	}
	return e.EndTime
}

// ExamResponse is the exam as returned by the API.
type ExamResponse struct {
	Exam
	StatusDescription string `json:"statusDescription"`
	QuestionCount     int    `json:"questionCount"`
}

// ExamRequest is the payload for creating or updating an exam.
type ExamRequest struct {
	Title              string     `json:"title" binding:"required,max=100"`
	Description        *string    `json:"description" binding:"omitempty,max=500"`
	CourseID           int64      `json:"courseId" binding:"required,min=1"`
	StartTime          *time.Time `json:"startTime" binding:"required"`
	EndTime            *time.Time `json:"endTime" binding:"required,gtfield=StartTime"`
	DurationMinutes    *int       `json:"duration" binding:"omitempty,min=1"`
	TotalScore         int        `json:"totalScore" binding:"omitempty,min=1"`
	NeedsGrading       bool       `json:"needsGrading"`
	AllowedPlatforms   string     `json:"allowedPlatforms" binding:"omitempty,oneof=desktop mobile both"`
	StrictMode         bool       `json:"strictMode"`
	MaxSwitchCount     *int       `json:"maxSwitchCount" binding:"omitempty,min=0"`
	FullscreenRequired bool       `json:"fullscreenRequired"`
}

// ToExam converts the request into an exam definition owned by creatorID.
func (r *ExamRequest) ToExam(creatorID int64) *Exam {
	platforms := Platform(r.AllowedPlatforms)
	if platforms == "" {
		platforms = PlatformBoth
	}
	total := r.TotalScore
	if total == 0 {
		total = 100
	}
	e := &Exam{
		Title:           r.Title,
		Description:     r.Description,
		CourseID:        r.CourseID,
		CreatorID:       creatorID,
		DurationMinutes: r.DurationMinutes,
		TotalScore:      total,
		NeedsGrading:    r.NeedsGrading,
		ProctoringPolicy: ProctoringPolicy{
			AllowedPlatforms:   platforms,
			StrictMode:         r.StrictMode,
			MaxSwitchCount:     r.MaxSwitchCount,
			FullscreenRequired: r.FullscreenRequired,
		},
	}
	if r.StartTime != nil {
		e.StartTime = *r.StartTime
	}
	if r.EndTime != nil {
		e.EndTime = *r.EndTime
	}
	return e
}
