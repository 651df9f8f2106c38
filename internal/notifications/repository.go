package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pride-academy/academy/internal/access"
	"github.com/pride-academy/academy/internal/shared"
)

// Repository persists notifications in PostgreSQL. Broadcast rows carry a
// NULL user_id and an optional target_roles array.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores one notification row and returns its id.
func (r *Repository) Insert(ctx context.Context, n Notification) (int64, error) {
	userID := pgtype.Int8{Int64: n.UserID, Valid: !n.Broadcast}
	var roles []string
	for _, role := range n.TargetRoles {
		roles = append(roles, string(role))
	}
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO notifications (user_id, target_roles, title, message, type, read, created_at)
		 VALUES ($1, $2, $3, $4, $5, FALSE, NOW()) RETURNING id`,
		userID, roles, n.Title, n.Message, n.Type).Scan(&id)
	return id, err
}

// ListForUser returns the newest personal and matching broadcast entries.
func (r *Repository) ListForUser(ctx context.Context, userID int64, role access.Role, limit int) ([]Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, target_roles, title, message, type, read, created_at
		 FROM notifications
		 WHERE user_id = $1
		    OR (user_id IS NULL AND (target_roles IS NULL OR cardinality(target_roles) = 0 OR $2 = ANY(target_roles)))
		 ORDER BY created_at DESC
		 LIMIT $3`,
		userID, string(role), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// UnreadCount counts unread personal and matching broadcast entries.
func (r *Repository) UnreadCount(ctx context.Context, userID int64, role access.Role) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM notifications
		 WHERE read = FALSE
		   AND (user_id = $1
		    OR (user_id IS NULL AND (target_roles IS NULL OR cardinality(target_roles) = 0 OR $2 = ANY(target_roles))))`,
		userID, string(role)).Scan(&count)
	return count, err
}

// MarkRead flips the read flag. Personal entries are only writable by their
// owner; broadcast entries flip for everyone.
func (r *Repository) MarkRead(ctx context.Context, id, userID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND (user_id = $2 OR user_id IS NULL)`,
		id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkAllRead marks every visible entry read for the user.
func (r *Repository) MarkAllRead(ctx context.Context, userID int64, role access.Role) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE
		 WHERE read = FALSE
		   AND (user_id = $1
		    OR (user_id IS NULL AND (target_roles IS NULL OR cardinality(target_roles) = 0 OR $2 = ANY(target_roles))))`,
		userID, string(role))
	return err
}

// DeleteOlderThan purges read notifications past the retention cutoff and
// reports how many rows were removed.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM notifications WHERE read = TRUE AND created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanNotifications(rows pgx.Rows) ([]Notification, error) {
	var out []Notification
	for rows.Next() {
		var (
			n      Notification
			userID pgtype.Int8
			roles  []string
		)
		if err := rows.Scan(&n.ID, &userID, &roles, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		if userID.Valid {
			n.UserID = userID.Int64
		} else {
			n.Broadcast = true
		}
		for _, role := range roles {
			parsed, err := access.ParseRole(role)
			if err != nil {
				continue
			}
			n.TargetRoles = append(n.TargetRoles, parsed)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return out, nil
		}
		return nil, err
	}
	return out, nil
}
