package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exampro-backend/internal/model"
)

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

func questionColumns(alias string) string {
	p := alias + "."
	return p + "id, " + p + "creator_id, " + p + "content, " + p + "type, " + p + "options, " +
		p + "answer, " + p + "analysis, " + p + "difficulty, " + p + "category, " + p + "created_at"
}

// options are stored as a JSONB array so the column never holds SQL NULL.
func encodeOptions(options []string) ([]byte, error) {
	if options == nil {
		options = []string{}
	}
	return json.Marshal(options)
}

func decodeOptions(raw []byte, q *model.Question) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &q.Options); err != nil {
		return fmt.Errorf("decode options of question %d: %w", q.ID, err)
	}
	if len(q.Options) == 0 {
		q.Options = nil
	}
	return nil
}

// scanQuestion reads questionColumns after any leading destinations.
func scanQuestion(row scanner, q *model.Question, leading ...any) error {
	var (
		typ, difficulty string
		options         []byte
	)
	dest := append(leading, &q.ID, &q.CreatorID, &q.Content, &typ, &options,
		&q.Answer, &q.Analysis, &difficulty, &q.Category, &q.CreatedAt)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	q.Type = model.QuestionType(typ)
	q.Difficulty = model.Difficulty(difficulty)
	return decodeOptions(options, q)
}

// CreateQuestion inserts a bank question.
func (r *QuestionRepository) CreateQuestion(ctx context.Context, q *model.Question) error {
	options, err := encodeOptions(q.Options)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx,
		`INSERT INTO questions (creator_id, content, type, options, answer, analysis, difficulty, category)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		q.CreatorID, q.Content, string(q.Type), options, q.Answer, q.Analysis, string(q.Difficulty), q.Category,
	).Scan(&q.ID, &q.CreatedAt)
	return translate(err)
}

// GetQuestion retrieves a question with its canonical answer.
func (r *QuestionRepository) GetQuestion(ctx context.Context, id int64) (*model.Question, error) {
	q := &model.Question{}
	row := r.pool.QueryRow(ctx, `SELECT `+questionColumns("q")+` FROM questions q WHERE q.id = $1`, id)
	if err := scanQuestion(row, q); err != nil {
		return nil, translate(err)
	}
	return q, nil
}

// UpdateQuestion overwrites a question's content and canonical answer.
func (r *QuestionRepository) UpdateQuestion(ctx context.Context, q *model.Question) error {
	options, err := encodeOptions(q.Options)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE questions SET content = $1, type = $2, options = $3, answer = $4, analysis = $5,
		        difficulty = $6, category = $7
		 WHERE id = $8`,
		q.Content, string(q.Type), options, q.Answer, q.Analysis, string(q.Difficulty), q.Category, q.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
