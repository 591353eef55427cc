package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exampro-backend/internal/model"
)

// ExamRepository handles exam and exam_questions data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `id, title, description, course_id, creator_id, start_time, end_time,
	duration_minutes, total_score, needs_grading, status, allowed_platforms,
	strict_mode, max_switch_count, fullscreen_required, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanExam(row scanner, e *model.Exam) error {
	var (
		status    int16
		platforms string
	)
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.CourseID, &e.CreatorID,
		&e.StartTime, &e.EndTime, &e.DurationMinutes, &e.TotalScore, &e.NeedsGrading,
		&status, &platforms, &e.StrictMode, &e.MaxSwitchCount,
		&e.FullscreenRequired, &e.CreatedAt, &e.UpdatedAt)
	e.Status = model.ExamStatus(status)
	e.AllowedPlatforms = model.Platform(platforms)
	return err
}

// CreateExam inserts a new exam and fills its generated fields.
func (r *ExamRepository) CreateExam(ctx context.Context, e *model.Exam) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, description, course_id, creator_id, start_time, end_time,
		                    duration_minutes, total_score, needs_grading, status, allowed_platforms,
		                    strict_mode, max_switch_count, fullscreen_required)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id, created_at, updated_at`,
		e.Title, e.Description, e.CourseID, e.CreatorID, e.StartTime, e.EndTime,
		e.DurationMinutes, e.TotalScore, e.NeedsGrading, int16(e.Status), string(e.AllowedPlatforms),
		e.StrictMode, e.MaxSwitchCount, e.FullscreenRequired,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return translate(err)
}

// GetExam retrieves an exam by ID.
func (r *ExamRepository) GetExam(ctx context.Context, id int64) (*model.Exam, error) {
	e := &model.Exam{}
	if err := scanExam(r.pool.QueryRow(ctx, `SELECT `+examColumns+` FROM exams WHERE id = $1`, id), e); err != nil {
		return nil, translate(err)
	}
	return e, nil
}

// UpdateExam overwrites the editable fields of an exam. Unless
// allowAttempted is set it fails with ErrAttempted once a submission exists.
func (r *ExamRepository) UpdateExam(ctx context.Context, e *model.Exam, allowAttempted bool) error {
	return r.unattempted(ctx, e.ID, allowAttempted, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx,
			`UPDATE exams SET title = $1, description = $2, course_id = $3, start_time = $4, end_time = $5,
			        duration_minutes = $6, total_score = $7, needs_grading = $8, allowed_platforms = $9,
			        strict_mode = $10, max_switch_count = $11, fullscreen_required = $12,
			        updated_at = CURRENT_TIMESTAMP
			 WHERE id = $13
			 RETURNING updated_at`,
			e.Title, e.Description, e.CourseID, e.StartTime, e.EndTime,
			e.DurationMinutes, e.TotalScore, e.NeedsGrading, string(e.AllowedPlatforms),
			e.StrictMode, e.MaxSwitchCount, e.FullscreenRequired, e.ID,
		).Scan(&e.UpdatedAt)
	})
}

// SetExamStatus changes the publication status.
func (r *ExamRepository) SetExamStatus(ctx context.Context, id int64, status model.ExamStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		int16(status), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AttachQuestion adds a scored question to an exam. A repeated question or
// sequence number yields ErrConflict; the submission guard is UpdateExam's.
func (r *ExamRepository) AttachQuestion(ctx context.Context, eq model.ExamQuestion, allowAttempted bool) error {
	return r.unattempted(ctx, eq.ExamID, allowAttempted, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO exam_questions (exam_id, question_id, score, sequence) VALUES ($1, $2, $3, $4)`,
			eq.ExamID, eq.QuestionID, eq.Score, eq.Sequence,
		)
		return err
	})
}

// unattempted runs write while holding the exam row lock. CreateSubmission
// takes the same lock in share mode, so no attempt can start between the
// submission check and the write.
func (r *ExamRepository) unattempted(ctx context.Context, examID int64, allowAttempted bool, write func(pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	if err := tx.QueryRow(ctx, `SELECT id FROM exams WHERE id = $1 FOR UPDATE`, examID).Scan(&id); err != nil {
		return translate(err)
	}
	if !allowAttempted {
		var attempted bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM submissions WHERE exam_id = $1)`, examID,
		).Scan(&attempted); err != nil {
			return err
		}
		if attempted {
			return ErrAttempted
		}
	}
	if err := write(tx); err != nil {
		return translate(err)
	}
	return tx.Commit(ctx)
}

// ExamIDsByQuestion lists the exams a question is attached to.
func (r *ExamRepository) ExamIDsByQuestion(ctx context.Context, questionID int64) ([]int64, error) {
	return r.ids(ctx, `SELECT exam_id FROM exam_questions WHERE question_id = $1 ORDER BY exam_id`, questionID)
}

// ListExamIDsByStatus lists the exams in the given status.
func (r *ExamRepository) ListExamIDsByStatus(ctx context.Context, status model.ExamStatus) ([]int64, error) {
	return r.ids(ctx, `SELECT id FROM exams WHERE status = $1 ORDER BY id`, int16(status))
}

func (r *ExamRepository) ids(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := r.pool.Query(ctx, query, args...)
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

// Definition loads an exam with its scored questions ordered by sequence.
func (r *ExamRepository) Definition(ctx context.Context, examID int64) (*model.ExamDefinition, error) {
	exam, err := r.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT eq.exam_id, eq.question_id, eq.score, eq.sequence, `+questionColumns("q")+`
		 FROM exam_questions eq
		 JOIN questions q ON q.id = eq.question_id
		 WHERE eq.exam_id = $1
		 ORDER BY eq.sequence`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	def := &model.ExamDefinition{Exam: *exam, Questions: []model.ScoredQuestion{}}
	for rows.Next() {
		var sq model.ScoredQuestion
		if err := scanQuestion(rows, &sq.Question, &sq.ExamID, &sq.QuestionID, &sq.Score, &sq.Sequence); err != nil {
			return nil, err
		}
		def.Questions = append(def.Questions, sq)
	}
	return def, rows.Err()
}

// Invalidate is a no-op; the repository always reads fresh rows.
func (r *ExamRepository) Invalidate(context.Context, int64) error { return nil }
