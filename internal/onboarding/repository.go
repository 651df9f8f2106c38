package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pride-academy/academy/internal/shared"
)

// Repository stores per-user progress as a jsonb document keyed by user id.
// The document shape changes with the program, jsonb avoids a migration per
// content tweak.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get loads a user's progress document. Missing rows map to ErrNotFound.
func (r *Repository) Get(ctx context.Context, userID int64) (*Progress, error) {
	var (
		doc       []byte
		startedAt time.Time
		updatedAt time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT progress, started_at, updated_at FROM onboarding_progress WHERE user_id = $1`,
		userID).Scan(&doc, &startedAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	var p Progress
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, err
	}
	p.UserID = userID
	p.StartedAt = startedAt
	p.UpdatedAt = updatedAt
	if p.Days == nil {
		p.Days = make(map[int]*DayProgress)
	}
	return &p, nil
}

// Save upserts the progress document.
func (r *Repository) Save(ctx context.Context, p *Progress) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO onboarding_progress (user_id, progress, started_at, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE SET progress = EXCLUDED.progress, updated_at = EXCLUDED.updated_at`,
		p.UserID, doc, p.StartedAt.UTC(), p.UpdatedAt.UTC())
	return err
}

// Delete removes a user's progress, used when an account is deleted.
func (r *Repository) Delete(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM onboarding_progress WHERE user_id = $1`, userID)
	return err
}
