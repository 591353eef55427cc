package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/stemsi/exampro-backend/internal/model"
	"github.com/stemsi/exampro-backend/internal/repository"
)

func clone(s *model.Submission) *model.Submission {
	c := *s
	c.Answers = make(model.Answers, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = v
	}
	if s.SubmitDetail != nil {
		d := model.GradingDetail{Items: append([]model.QuestionGrade(nil), s.SubmitDetail.Items...)}
		c.SubmitDetail = &d
	}
	return &c
}

func (m *Store) GetSubmission(_ context.Context, id int64) (*model.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.submissions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(s), nil
}

func (m *Store) FindSubmission(_ context.Context, examID, userID int64) (*model.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.submissions {
		if s.ExamID == examID && s.UserID == userID {
			return clone(s), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *Store) CreateSubmission(_ context.Context, s *model.Submission) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.submissions {
		if existing.ExamID == s.ExamID && existing.UserID == s.UserID {
			return false, nil
		}
	}
	s.ID = m.id()
	m.submissions[s.ID] = clone(s)
	return true, nil
}

// Mutate applies fn to a copy and stores it only when fn succeeds.
func (m *Store) Mutate(_ context.Context, id int64, fn func(*model.Submission) error) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutateLocked(id, fn)
}

func (m *Store) mutateLocked(id int64, fn func(*model.Submission) error) (*model.Submission, error) {
	s, ok := m.submissions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	work := clone(s)
	if err := fn(work); err != nil {
		return nil, err
	}
	m.submissions[id] = clone(work)
	return work, nil
}

func (m *Store) AppendEvent(_ context.Context, id int64, ev *model.ProctoringEvent, fn func(*model.Submission) error) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	updated, err := m.mutateLocked(id, fn)
	if err != nil {
		return nil, err
	}
	ev.ID = m.id()
	ev.SubmissionID = id
	m.events = append(m.events, *ev)
	return updated, nil
}

func (m *Store) list(match func(*model.Submission) bool) []model.Submission {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.Submission{}
	for _, s := range m.submissions {
		if match(s) {
			out = append(out, *clone(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Store) ListSubmissionsByExam(_ context.Context, examID int64) ([]model.Submission, error) {
	return m.list(func(s *model.Submission) bool { return s.ExamID == examID }), nil
}

func (m *Store) ListSubmissionsByUser(_ context.Context, userID int64) ([]model.Submission, error) {
	return m.list(func(s *model.Submission) bool { return s.UserID == userID }), nil
}

func (m *Store) CountSubmissions(_ context.Context, examID int64) (int, error) {
	return len(m.list(func(s *model.Submission) bool { return s.ExamID == examID })), nil
}

func (m *Store) ListEvents(_ context.Context, submissionID int64) ([]model.ProctoringEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.ProctoringEvent{}
	for _, ev := range m.events {
		if ev.SubmissionID == submissionID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *Store) ListOverdue(_ context.Context, now time.Time, afterID int64, limit int) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []int64
	for id, s := range m.submissions {
		if id <= afterID || s.Status != model.SubmissionInProgress || s.StartTime == nil {
			continue
		}
		e, ok := m.exams[s.ExamID]
		if !ok {
			continue
		}
		if e.Deadline(*s.StartTime).Before(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}
