// Package memstore is an in-memory implementation of the service storage
// interfaces. It backs the service and handler tests and local runs without
// PostgreSQL or Redis.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stemsi/exampro-backend/internal/model"
	"github.com/stemsi/exampro-backend/internal/repository"
)

// Store keeps every entity in maps guarded by one mutex. Values are copied on
// the way in and out so callers never share state with the store.
type Store struct {
	mu sync.RWMutex

	exams         map[int64]model.Exam
	questions     map[int64]model.Question
	examQuestions map[int64][]model.ExamQuestion
	submissions   map[int64]*model.Submission
	events        []model.ProctoringEvent
	notifications []model.Notification

	// Queued and Published record what the services handed to the
	// asynchronous side channels.
	Queued    []model.Notification
	Published []model.MonitorEvent

	nextID int64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		exams:         map[int64]model.Exam{},
		questions:     map[int64]model.Question{},
		examQuestions: map[int64][]model.ExamQuestion{},
		submissions:   map[int64]*model.Submission{},
	}
}

func (m *Store) id() int64 {
	m.nextID++
	return m.nextID
}

// ─── Exams ─────────────────────────────────────────────────────────────────

func (m *Store) CreateExam(_ context.Context, e *model.Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.id()
	now := time.Now()
	e.CreatedAt, e.UpdatedAt = now, now
	m.exams[e.ID] = *e
	return nil
}

func (m *Store) GetExam(_ context.Context, id int64) (*model.Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (m *Store) UpdateExam(_ context.Context, e *model.Exam, allowAttempted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[e.ID]; !ok {
		return repository.ErrNotFound
	}
	if !allowAttempted && m.attemptedLocked(e.ID) {
		return repository.ErrAttempted
	}
	e.UpdatedAt = time.Now()
	m.exams[e.ID] = *e
	return nil
}

func (m *Store) SetExamStatus(_ context.Context, id int64, status model.ExamStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exams[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.Status = status
	m.exams[id] = e
	return nil
}

func (m *Store) AttachQuestion(_ context.Context, eq model.ExamQuestion, allowAttempted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[eq.ExamID]; !ok {
		return repository.ErrNotFound
	}
	if !allowAttempted && m.attemptedLocked(eq.ExamID) {
		return repository.ErrAttempted
	}
	for _, existing := range m.examQuestions[eq.ExamID] {
		if existing.QuestionID == eq.QuestionID || existing.Sequence == eq.Sequence {
			return repository.ErrConflict
		}
	}
	m.examQuestions[eq.ExamID] = append(m.examQuestions[eq.ExamID], eq)
	return nil
}

func (m *Store) attemptedLocked(examID int64) bool {
	for _, s := range m.submissions {
		if s.ExamID == examID {
			return true
		}
	}
	return false
}

func (m *Store) ExamIDsByQuestion(_ context.Context, questionID int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []int64
	for examID, eqs := range m.examQuestions {
		for _, eq := range eqs {
			if eq.QuestionID == questionID {
				ids = append(ids, examID)
				break
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *Store) ListExamIDsByStatus(_ context.Context, status model.ExamStatus) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []int64
	for id, e := range m.exams {
		if e.Status == status {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Definition assembles the exam and its questions ordered by sequence.
func (m *Store) Definition(_ context.Context, examID int64) (*model.ExamDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exams[examID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	def := &model.ExamDefinition{Exam: e, Questions: []model.ScoredQuestion{}}
	for _, eq := range m.examQuestions[examID] {
		q := m.questions[eq.QuestionID]
		q.Options = append([]string(nil), q.Options...)
		def.Questions = append(def.Questions, model.ScoredQuestion{ExamQuestion: eq, Question: q})
	}
	sort.Slice(def.Questions, func(i, j int) bool {
		return def.Questions[i].Sequence < def.Questions[j].Sequence
	})
	return def, nil
}

// Invalidate is a no-op; definitions are always assembled fresh.
func (m *Store) Invalidate(context.Context, int64) error { return nil }

// ─── Questions ─────────────────────────────────────────────────────────────

func (m *Store) CreateQuestion(_ context.Context, q *model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.ID = m.id()
	q.CreatedAt = time.Now()
	m.questions[q.ID] = *q
	return nil
}

func (m *Store) GetQuestion(_ context.Context, id int64) (*model.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

func (m *Store) UpdateQuestion(_ context.Context, q *model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[q.ID]; !ok {
		return repository.ErrNotFound
	}
	m.questions[q.ID] = *q
	return nil
}
