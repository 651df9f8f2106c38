package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pride-academy/academy/internal/shared"
)

const taskColumns = `id, title, description, status, priority, creator_id, assignee_id, due_at, escalated, created_at, updated_at, completed_at`

// Repository implements task persistence on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a task and returns it with generated fields filled.
func (r *Repository) Create(ctx context.Context, t Task) (*Task, error) {
	due := pgtype.Timestamptz{}
	if t.DueAt != nil {
		due = pgtype.Timestamptz{Time: t.DueAt.UTC(), Valid: true}
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO tasks (title, description, status, priority, creator_id, assignee_id, due_at, escalated, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, NOW(), NOW())
		 RETURNING `+taskColumns,
		t.Title, t.Description, t.Status, t.Priority, t.CreatorID, t.AssigneeID, due)
	return scanTask(row)
}

// GetByID fetches one task.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Task, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

// List returns tasks matching the filter, critical first, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	args := []any{}
	if f.AssigneeID != 0 {
		args = append(args, f.AssigneeID)
		query += fmt.Sprintf(` AND assignee_id = $%d`, len(args))
	}
	if f.CreatorID != 0 {
		args = append(args, f.CreatorID)
		query += fmt.Sprintf(` AND creator_id = $%d`, len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY
		CASE priority WHEN 'CRITICAL' THEN 0 WHEN 'HIGH' THEN 1 WHEN 'MEDIUM' THEN 2 ELSE 3 END,
		created_at DESC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// UpdateStatus moves a task to a new workflow state.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status Status, completedAt *time.Time) error {
	completed := pgtype.Timestamptz{}
	if completedAt != nil {
		completed = pgtype.Timestamptz{Time: completedAt.UTC(), Valid: true}
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET status = $2, completed_at = $3, updated_at = NOW() WHERE id = $1`,
		id, status, completed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Update rewrites the editable fields of a task.
func (r *Repository) Update(ctx context.Context, t Task) error {
	due := pgtype.Timestamptz{}
	if t.DueAt != nil {
		due = pgtype.Timestamptz{Time: t.DueAt.UTC(), Valid: true}
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET title = $2, description = $3, priority = $4, assignee_id = $5, due_at = $6, updated_at = NOW() WHERE id = $1`,
		t.ID, t.Title, t.Description, t.Priority, t.AssigneeID, due)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a task and its comments.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListOverdue returns open tasks past their due date that were not yet
// escalated. Used by the periodic scan.
func (r *Repository) ListOverdue(ctx context.Context, now time.Time) ([]Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE due_at IS NOT NULL AND due_at < $1 AND status <> $2 AND escalated = FALSE
		 ORDER BY due_at`,
		now.UTC(), StatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// MarkEscalated records that the overdue scan already flagged the task.
func (r *Repository) MarkEscalated(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE tasks SET escalated = TRUE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

// AddComment appends a discussion entry.
func (r *Repository) AddComment(ctx context.Context, c Comment) (*Comment, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO task_comments (task_id, author_id, body, created_at)
		 VALUES ($1, $2, $3, NOW()) RETURNING id, created_at`,
		c.TaskID, c.AuthorID, c.Body).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComments returns a task's discussion, oldest first.
func (r *Repository) ListComments(ctx context.Context, taskID int64) ([]Comment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, task_id, author_id, body, created_at FROM task_comments WHERE task_id = $1 ORDER BY created_at`,
		taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountByStatus aggregates a user's tasks for the dashboard.
func (r *Repository) CountByStatus(ctx context.Context, assigneeID int64) (map[Status]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM tasks WHERE assignee_id = $1 GROUP BY status`, assigneeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[Status]int)
	for rows.Next() {
		var (
			status Status
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanTask(row pgx.Row) (*Task, error) {
	var (
		t         Task
		due       pgtype.Timestamptz
		completed pgtype.Timestamptz
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.CreatorID,
		&t.AssigneeID, &due, &t.Escalated, &t.CreatedAt, &t.UpdatedAt, &completed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if due.Valid {
		t.DueAt = &due.Time
	}
	if completed.Valid {
		t.CompletedAt = &completed.Time
	}
	return &t, nil
}

func collectTasks(rows pgx.Rows) ([]Task, error) {
	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
