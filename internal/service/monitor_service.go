package service

import (
	"context"
	"fmt"

	"github.com/stemsi/exampro-backend/internal/model"
)

// MonitorService builds the live exam monitor's snapshot. Subsequent
// changes reach the monitor through the exam's pub/sub channel.
type MonitorService struct {
	exams       ExamSource
	submissions SubmissionStore
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(exams ExamSource, submissions SubmissionStore) *MonitorService {
	return &MonitorService{exams: exams, submissions: submissions}
}

// Snapshot returns every attempt of an exam with its progress counters.
func (s *MonitorService) Snapshot(ctx context.Context, examID int64, actor model.Actor) (*model.MonitorSnapshot, error) {
	def, err := s.exams.Definition(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("load exam %d: %w", examID, err)
	}
	if !actor.Owns(def.Exam.CreatorID) {
		return nil, ErrForbidden
	}
	subs, err := s.submissions.ListSubmissionsByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	snap := &model.MonitorSnapshot{
		ExamID:         examID,
		Title:          def.Exam.Title,
		TotalQuestions: len(def.Questions),
		TotalJoined:    len(subs),
		Students:       make([]model.MonitorStudent, 0, len(subs)),
	}
	for _, sub := range subs {
		switch sub.Status {
		case model.SubmissionInProgress:
			snap.TotalInProgress++
		case model.SubmissionSubmitted:
			snap.TotalSubmitted++
		}
		snap.TotalSwitches += sub.SwitchCount

		answered := 0
		for _, a := range sub.Answers {
			if a != "" {
				answered++
			}
		}
		snap.Students = append(snap.Students, model.MonitorStudent{
			SubmissionID:  sub.ID,
			UserID:        sub.UserID,
			Status:        sub.Status,
			AnsweredCount: answered,
			SwitchCount:   sub.SwitchCount,
			StartTime:     sub.StartTime,
			SubmitTime:    sub.SubmitTime,
			TotalScore:    sub.TotalScore,
		})
	}
	return snap, nil
}
