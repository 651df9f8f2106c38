package users

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pride-academy/academy/internal/access"
	"github.com/pride-academy/academy/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, display_name, last_name, position, department, role, status, avatar_url, created_at, updated_at, last_login_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.LastName, &u.Position, &u.Department, &u.Role, &u.Status, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	return u, err
}

// ListUsers returns all profiles.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListByStatus returns profiles filtered by registration status.
func (r *Repository) ListByStatus(ctx context.Context, status access.ProfileStatus) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE status = $1 ORDER BY created_at`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetByID fetches one profile.
func (r *Repository) GetByID(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// RoleByUserID is the resolver's single point-read: role and status only.
func (r *Repository) RoleByUserID(ctx context.Context, userID int64) (string, access.ProfileStatus, error) {
	var role string
	var status access.ProfileStatus
	err := r.pool.QueryRow(ctx, `SELECT role, status FROM users WHERE id = $1`, userID).Scan(&role, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", shared.ErrNotFound
		}
		return "", "", err
	}
	return role, status, nil
}

// UpdateProfile updates the self-service fields.
func (r *Repository) UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET display_name = $2, last_name = $3, position = $4, department = $5, avatar_url = $6, updated_at = NOW() WHERE id = $1`,
		id, upd.DisplayName, upd.LastName, upd.Position, upd.Department, upd.AvatarURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Approve sets status approved and assigns the role in one statement.
func (r *Repository) Approve(ctx context.Context, id int64, role access.Role) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET status = $2, role = $3, updated_at = NOW() WHERE id = $1`,
		id, access.StatusApproved, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Reject marks a registration rejected.
func (r *Repository) Reject(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1`, id, access.StatusRejected)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// IDsByRole returns user IDs holding the given role, used by broadcast
// notification fan-out.
func (r *Repository) IDsByRole(ctx context.Context, role access.Role) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users WHERE role = $1 AND status = $2`, role, access.StatusApproved)
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

// BulkUpdateRole reassigns the role of several users at once.
func (r *Repository) BulkUpdateRole(ctx context.Context, ids []int64, role access.Role) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE id = ANY($1)`, ids, role)
	return err
}

// TouchLastLogin stamps a successful sign-in.
func (r *Repository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
	return err
}

// Delete removes a profile. Dependent rows cascade at the schema level.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
