package exams

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pride-academy/academy/internal/shared"
)

// Repository implements exam persistence on PostgreSQL. Question sets are
// stored as jsonb, their shape belongs to the exam author, not the schema.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an exam and returns its id.
func (r *Repository) Create(ctx context.Context, e Exam) (int64, error) {
	questions, err := json.Marshal(e.Questions)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, description, questions, passing_score, time_limit_seconds, max_attempts, published, creator_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING id`,
		e.Title, e.Description, questions, e.PassingScore, int(e.TimeLimit.Seconds()), e.MaxAttempts, e.Published, e.CreatorID).Scan(&id)
	return id, err
}

// Update rewrites an exam's definition.
func (r *Repository) Update(ctx context.Context, e Exam) error {
	questions, err := json.Marshal(e.Questions)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams SET title = $2, description = $3, questions = $4, passing_score = $5,
		        time_limit_seconds = $6, max_attempts = $7, published = $8, updated_at = NOW()
		 WHERE id = $1`,
		e.ID, e.Title, e.Description, questions, e.PassingScore, int(e.TimeLimit.Seconds()), e.MaxAttempts, e.Published)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes an exam and its attempts.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetByID fetches one exam with its question set.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Exam, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, title, description, questions, passing_score, time_limit_seconds, max_attempts, published, creator_id, created_at, updated_at
		 FROM exams WHERE id = $1`, id)
	return scanExam(row)
}

// List returns exams, optionally only published ones.
func (r *Repository) List(ctx context.Context, publishedOnly bool) ([]Exam, error) {
	query := `SELECT id, title, description, questions, passing_score, time_limit_seconds, max_attempts, published, creator_id, created_at, updated_at
	          FROM exams`
	if publishedOnly {
		query += ` WHERE published = TRUE`
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// CreateAttempt opens a new attempt and returns its id.
func (r *Repository) CreateAttempt(ctx context.Context, examID, userID int64, startedAt time.Time) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_attempts (exam_id, user_id, answers, score, passed, started_at)
		 VALUES ($1, $2, '{}', 0, FALSE, $3) RETURNING id`,
		examID, userID, startedAt.UTC()).Scan(&id)
	return id, err
}

// FinishAttempt records the graded submission.
func (r *Repository) FinishAttempt(ctx context.Context, attemptID int64, answers map[string]int, score int, passed bool, submittedAt time.Time) error {
	raw, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_attempts SET answers = $2, score = $3, passed = $4, submitted_at = $5
		 WHERE id = $1 AND submitted_at IS NULL`,
		attemptID, raw, score, passed, submittedAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetAttempt fetches one attempt.
func (r *Repository) GetAttempt(ctx context.Context, id int64) (*Attempt, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, user_id, answers, score, passed, started_at, submitted_at
		 FROM exam_attempts WHERE id = $1`, id)
	return scanAttempt(row)
}

// AttemptsForUser returns a user's attempts at one exam, newest first.
func (r *Repository) AttemptsForUser(ctx context.Context, examID, userID int64) ([]Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, user_id, answers, score, passed, started_at, submitted_at
		 FROM exam_attempts WHERE exam_id = $1 AND user_id = $2 ORDER BY started_at DESC`,
		examID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAttempts(rows)
}

// AttemptsForExam returns every attempt at one exam for grading review.
func (r *Repository) AttemptsForExam(ctx context.Context, examID int64) ([]Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, user_id, answers, score, passed, started_at, submitted_at
		 FROM exam_attempts WHERE exam_id = $1 ORDER BY started_at DESC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAttempts(rows)
}

// ExamStats aggregates pass rate and average score for the analytics view.
type ExamStats struct {
	ExamID       int64   `json:"examId"`
	Attempts     int     `json:"attempts"`
	Passed       int     `json:"passed"`
	AverageScore float64 `json:"averageScore"`
}

// StatsForExam computes attempt aggregates in the database.
func (r *Repository) StatsForExam(ctx context.Context, examID int64) (*ExamStats, error) {
	stats := ExamStats{ExamID: examID}
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE passed), COALESCE(AVG(score), 0)
		 FROM exam_attempts WHERE exam_id = $1 AND submitted_at IS NOT NULL`,
		examID).Scan(&stats.Attempts, &stats.Passed, &stats.AverageScore)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func scanExam(row pgx.Row) (*Exam, error) {
	var (
		e         Exam
		questions []byte
		seconds   int
	)
	err := row.Scan(&e.ID, &e.Title, &e.Description, &questions, &e.PassingScore, &seconds,
		&e.MaxAttempts, &e.Published, &e.CreatorID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(questions, &e.Questions); err != nil {
		return nil, err
	}
	e.TimeLimit = time.Duration(seconds) * time.Second
	return &e, nil
}

func scanAttempt(row pgx.Row) (*Attempt, error) {
	var (
		a         Attempt
		answers   []byte
		submitted pgtype.Timestamptz
	)
	err := row.Scan(&a.ID, &a.ExamID, &a.UserID, &answers, &a.Score, &a.Passed, &a.StartedAt, &submitted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(answers, &a.Answers); err != nil {
		return nil, err
	}
	if submitted.Valid {
		a.SubmittedAt = &submitted.Time
	}
	return &a, nil
}

func collectAttempts(rows pgx.Rows) ([]Attempt, error) {
	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
