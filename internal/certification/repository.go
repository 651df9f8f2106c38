package certification

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pride-academy/academy/internal/shared"
)

const certColumns = `id, number, user_id, exam_id, title, score, issued_at, revoked`

// Repository implements certificate persistence on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a freshly issued certificate.
func (r *Repository) Insert(ctx context.Context, c Certificate) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO certificates (number, user_id, exam_id, title, score, issued_at, revoked)
		 VALUES ($1, $2, $3, $4, $5, $6, FALSE) RETURNING id`,
		c.Number, c.UserID, c.ExamID, c.Title, c.Score, c.IssuedAt.UTC()).Scan(&id)
	return id, err
}

// FindByNumber looks up a certificate for validation.
func (r *Repository) FindByNumber(ctx context.Context, number string) (*Certificate, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+certColumns+` FROM certificates WHERE number = $1`, number)
	return scanCertificate(row)
}

// ListForUser returns a user's certificates, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID int64) ([]Certificate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+certColumns+` FROM certificates WHERE user_id = $1 ORDER BY issued_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// List returns every certificate for the administrative registry.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Certificate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+certColumns+` FROM certificates ORDER BY issued_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// Revoke invalidates a certificate without deleting the record.
func (r *Repository) Revoke(ctx context.Context, number string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE certificates SET revoked = TRUE WHERE number = $1`, number)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count reports the registry size for pagination.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM certificates`).Scan(&count)
	return count, err
}

// CountForUser counts a user's valid certificates.
func (r *Repository) CountForUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM certificates WHERE user_id = $1 AND revoked = FALSE`, userID).Scan(&count)
	return count, err
}

func scanCertificate(row pgx.Row) (*Certificate, error) {
	var c Certificate
	err := row.Scan(&c.ID, &c.Number, &c.UserID, &c.ExamID, &c.Title, &c.Score, &c.IssuedAt, &c.Revoked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func collect(rows pgx.Rows) ([]Certificate, error) {
	var out []Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
