package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exampro-backend/internal/model"
)

// SubmissionRepository handles submissions and their proctoring log.
// Every write to an existing submission happens inside a transaction that
// holds the row lock (SELECT ... FOR UPDATE).
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

const submissionColumns = `id, exam_id, user_id, answers, status, objective_score, subjective_score,
	total_score, switch_count, start_time, submit_time, submit_reason, submit_detail, graded_at`

func scanSubmission(row scanner) (*model.Submission, error) {
	s := &model.Submission{}
	var (
		answers []byte
		detail  []byte
		status  int16
		reason  *string
	)
	err := row.Scan(&s.ID, &s.ExamID, &s.UserID, &answers, &status, &s.ObjectiveScore,
		&s.SubjectiveScore, &s.TotalScore, &s.SwitchCount, &s.StartTime, &s.SubmitTime,
		&reason, &detail, &s.GradedAt)
	if err != nil {
		return nil, err
	}
	s.Status = model.SubmissionStatus(status)
	if reason != nil {
		r := model.SubmitReason(*reason)
		s.SubmitReason = &r
	}

	s.Answers = model.Answers{}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &s.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of submission %d: %w", s.ID, err)
		}
	}
	if len(detail) > 0 {
		s.SubmitDetail = &model.GradingDetail{}
		if err := json.Unmarshal(detail, s.SubmitDetail); err != nil {
			return nil, fmt.Errorf("decode detail of submission %d: %w", s.ID, err)
		}
	}
	return s, nil
}

// GetSubmission retrieves a submission by ID.
func (r *SubmissionRepository) GetSubmission(ctx context.Context, id int64) (*model.Submission, error) {
	s, err := scanSubmission(r.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return s, nil
}

// FindSubmission retrieves the attempt of a student at an exam.
func (r *SubmissionRepository) FindSubmission(ctx context.Context, examID, userID int64) (*model.Submission, error) {
	s, err := scanSubmission(r.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE exam_id = $1 AND user_id = $2`, examID, userID))
	if err != nil {
		return nil, translate(err)
	}
	return s, nil
}

// CreateSubmission inserts s unless the (exam_id, user_id) pair already has
// a row. Concurrent starts resolve to a single row.
func (r *SubmissionRepository) CreateSubmission(ctx context.Context, s *model.Submission) (bool, error) {
	answers, detail, err := encodeSubmission(s)
	if err != nil {
		return false, err
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Share lock on the exam orders the insert against guarded exam edits.
	var examID int64
	if err := tx.QueryRow(ctx, `SELECT id FROM exams WHERE id = $1 FOR SHARE`, s.ExamID).Scan(&examID); err != nil {
		return false, translate(err)
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO submissions (exam_id, user_id, answers, status, objective_score, subjective_score,
		                          total_score, switch_count, start_time, submit_time, submit_reason,
		                          submit_detail, graded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (exam_id, user_id) DO NOTHING
		 RETURNING id`,
		s.ExamID, s.UserID, answers, int16(s.Status), s.ObjectiveScore, s.SubjectiveScore,
		s.TotalScore, s.SwitchCount, s.StartTime, s.SubmitTime, reasonArg(s.SubmitReason),
		detail, s.GradedAt,
	).Scan(&s.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, translate(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Mutate locks the submission row, applies fn and writes the result back in
// one transaction. An error from fn rolls everything back.
func (r *SubmissionRepository) Mutate(ctx context.Context, id int64, fn func(*model.Submission) error) (*model.Submission, error) {
	return r.inLock(ctx, id, fn, nil)
}

// AppendEvent is Mutate plus the insert of ev, committed together.
func (r *SubmissionRepository) AppendEvent(ctx context.Context, id int64, ev *model.ProctoringEvent, fn func(*model.Submission) error) (*model.Submission, error) {
	return r.inLock(ctx, id, fn, func(tx pgx.Tx) error {
		ev.SubmissionID = id
		return tx.QueryRow(ctx,
			`INSERT INTO proctoring_events (submission_id, exam_id, user_id, event_type, detail, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			ev.SubmissionID, ev.ExamID, ev.UserID, string(ev.EventType), ev.Detail, ev.CreatedAt,
		).Scan(&ev.ID)
	})
}

func (r *SubmissionRepository) inLock(ctx context.Context, id int64, fn func(*model.Submission) error, after func(pgx.Tx) error) (*model.Submission, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	s, err := scanSubmission(tx.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, translate(err)
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	if err := r.save(ctx, tx, s); err != nil {
		return nil, err
	}
	if after != nil {
		if err := after(tx); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s, nil
}

func (r *SubmissionRepository) save(ctx context.Context, tx pgx.Tx, s *model.Submission) error {
	answers, detail, err := encodeSubmission(s)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`UPDATE submissions SET answers = $1, status = $2, objective_score = $3, subjective_score = $4,
		        total_score = $5, switch_count = $6, start_time = $7, submit_time = $8,
		        submit_reason = $9, submit_detail = $10, graded_at = $11
		 WHERE id = $12`,
		answers, int16(s.Status), s.ObjectiveScore, s.SubjectiveScore, s.TotalScore, s.SwitchCount,
		s.StartTime, s.SubmitTime, reasonArg(s.SubmitReason), detail, s.GradedAt, s.ID,
	)
	return err
}

func encodeSubmission(s *model.Submission) (answers, detail []byte, err error) {
	a := s.Answers
	if a == nil {
		a = model.Answers{}
	}
	if answers, err = json.Marshal(a); err != nil {
		return nil, nil, fmt.Errorf("encode answers: %w", err)
	}
	if s.SubmitDetail != nil {
		if detail, err = json.Marshal(s.SubmitDetail); err != nil {
			return nil, nil, fmt.Errorf("encode detail: %w", err)
		}
	}
	return answers, detail, nil
}

func reasonArg(r *model.SubmitReason) *string {
	if r == nil {
		return nil
	}
	s := string(*r)
	return &s
}

// ListSubmissionsByExam returns every attempt at an exam.
func (r *SubmissionRepository) ListSubmissionsByExam(ctx context.Context, examID int64) ([]model.Submission, error) {
	return r.list(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE exam_id = $1 ORDER BY id`, examID)
}

// ListSubmissionsByUser returns every attempt of a student.
func (r *SubmissionRepository) ListSubmissionsByUser(ctx context.Context, userID int64) ([]model.Submission, error) {
	return r.list(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE user_id = $1 ORDER BY id`, userID)
}

func (r *SubmissionRepository) list(ctx context.Context, query string, args ...any) ([]model.Submission, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []model.Submission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}

// CountSubmissions counts the attempts at an exam.
func (r *SubmissionRepository) CountSubmissions(ctx context.Context, examID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM submissions WHERE exam_id = $1`, examID).Scan(&n)
	return n, err
}

// ListEvents returns the proctoring log of a submission in insertion order.
func (r *SubmissionRepository) ListEvents(ctx context.Context, submissionID int64) ([]model.ProctoringEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, submission_id, exam_id, user_id, event_type, detail, created_at
		 FROM proctoring_events WHERE submission_id = $1 ORDER BY id`, submissionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []model.ProctoringEvent{}
	for rows.Next() {
		var ev model.ProctoringEvent
		var eventType string
		if err := rows.Scan(&ev.ID, &ev.SubmissionID, &ev.ExamID, &ev.UserID, &eventType, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.EventType = model.ProctoringEventType(eventType)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ListOverdue returns IN_PROGRESS attempts whose deadline lies before now.
// The deadline is the exam end time, shortened by the duration when set.
// Ids are ascending and start after afterID.
func (r *SubmissionRepository) ListOverdue(ctx context.Context, now time.Time, afterID int64, limit int) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id
		 FROM submissions s
		 JOIN exams e ON e.id = s.exam_id
		 WHERE s.status = $1
		   AND s.start_time IS NOT NULL
		   AND CASE
		         WHEN e.duration_minutes IS NULL OR e.duration_minutes <= 0 THEN e.end_time
		         ELSE LEAST(e.end_time, s.start_time + make_interval(mins => e.duration_minutes))
		       END < $2
		   AND s.id > $3
		 ORDER BY s.id
		 LIMIT $4`,
		int16(model.SubmissionInProgress), now, afterID, limitArg(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// limitArg maps a non-positive limit to NULL, which LIMIT treats as unbounded.
func limitArg(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}
