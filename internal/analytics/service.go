package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/pride-academy/academy/internal/access"
	"github.com/pride-academy/academy/internal/onboarding"
	"github.com/pride-academy/academy/internal/tasks"
)

// TaskCounter aggregates a user's tasks by workflow state.
type TaskCounter interface {
	CountByStatus(ctx context.Context, assigneeID int64) (map[tasks.Status]int, error)
}

// CertificateCounter counts a user's valid certificates.
type CertificateCounter interface {
	CountForUser(ctx context.Context, userID int64) (int, error)
}

// ProgressLoader loads a user's onboarding document.
type ProgressLoader interface {
	ProgressFor(ctx context.Context, userID int64) (*onboarding.Progress, error)
}

// Service assembles dashboard aggregates. Per-user numbers come from the
// domain services, platform-wide counts straight from the database, both
// behind the versioned cache.
type Service struct {
	pool     *pgxpool.Pool
	cache    *Cache
	tasks    TaskCounter
	certs    CertificateCounter
	progress ProgressLoader
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(pool *pgxpool.Pool, cache *Cache, taskCounter TaskCounter, certCounter CertificateCounter, progressLoader ProgressLoader, logger *slog.Logger) *Service {
	return &Service{
		pool:     pool,
		cache:    cache,
		tasks:    taskCounter,
		certs:    certCounter,
		progress: progressLoader,
		logger:   logger,
	}
}

// UserProgress is the personal dashboard payload.
type UserProgress struct {
	OnboardingCompletion float64                 `json:"onboardingCompletion"`
	Achievements         onboarding.Achievements `json:"achievements"`
	TaskCounts           map[tasks.Status]int    `json:"taskCounts"`
	Certificates         int                     `json:"certificates"`
	GeneratedAt          time.Time               `json:"generatedAt"`
}

// UserProgressFor loads the personal dashboard, fanning the independent
// sources out in parallel.
func (s *Service) UserProgressFor(ctx context.Context, userID int64) (*UserProgress, error) {
	key, err := s.cache.BuildKey(ctx, keyUserProgress(userID))
	if err != nil {
		return nil, err
	}
	var out UserProgress
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		result := UserProgress{GeneratedAt: time.Now().UTC()}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			p, err := s.progress.ProgressFor(gctx, userID)
			if err != nil {
				return err
			}
			result.OnboardingCompletion = onboarding.OverallCompletion(p)
			result.Achievements = onboarding.ComputeAchievements(p)
			return nil
		})
		g.Go(func() error {
			counts, err := s.tasks.CountByStatus(gctx, userID)
			if err != nil {
				return err
			}
			result.TaskCounts = counts
			return nil
		})
		g.Go(func() error {
			count, err := s.certs.CountForUser(gctx, userID)
			if err != nil {
				return err
			}
			result.Certificates = count
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminStats is the platform-wide dashboard payload.
type AdminStats struct {
	UsersByRole       map[access.Role]int `json:"usersByRole"`
	PendingUsers      int                 `json:"pendingUsers"`
	OpenTasks         int                 `json:"openTasks"`
	CompletedTasks    int                 `json:"completedTasks"`
	ExamAttempts      int                 `json:"examAttempts"`
	ExamsPassed       int                 `json:"examsPassed"`
	CertificatesTotal int                 `json:"certificatesTotal"`
	GeneratedAt       time.Time           `json:"generatedAt"`
}

// AdminStatsFor loads platform-wide counters in parallel queries.
func (s *Service) AdminStatsFor(ctx context.Context) (*AdminStats, error) {
	key, err := s.cache.BuildKey(ctx, keyAdminStats())
	if err != nil {
		return nil, err
	}
	var out AdminStats
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		result := AdminStats{
			UsersByRole: make(map[access.Role]int),
			GeneratedAt: time.Now().UTC(),
		}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			rows, err := s.pool.Query(gctx,
				`SELECT role, COUNT(*) FROM users WHERE status = 'approved' GROUP BY role`)
			if err != nil {
				return err
			}
			defer rows.Close()
			for rows.Next() {
				var (
					role  access.Role
					count int
				)
				if err := rows.Scan(&role, &count); err != nil {
					return err
				}
				result.UsersByRole[role] = count
			}
			return rows.Err()
		})
		g.Go(func() error {
			return s.pool.QueryRow(gctx,
				`SELECT COUNT(*) FROM users WHERE status = 'pending'`).Scan(&result.PendingUsers)
		})
		g.Go(func() error {
			return s.pool.QueryRow(gctx,
				`SELECT COUNT(*) FILTER (WHERE status <> 'COMPLETED'), COUNT(*) FILTER (WHERE status = 'COMPLETED') FROM tasks`).
				Scan(&result.OpenTasks, &result.CompletedTasks)
		})
		g.Go(func() error {
			return s.pool.QueryRow(gctx,
				`SELECT COUNT(*), COUNT(*) FILTER (WHERE passed) FROM exam_attempts WHERE submitted_at IS NOT NULL`).
				Scan(&result.ExamAttempts, &result.ExamsPassed)
		})
		g.Go(func() error {
			return s.pool.QueryRow(gctx,
				`SELECT COUNT(*) FROM certificates WHERE revoked = FALSE`).Scan(&result.CertificatesTotal)
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Activity is one entry of the recent activity feed, sourced from the
// audit trail.
type Activity struct {
	ActorID   int64           `json:"actorId"`
	ActorName string          `json:"actorName"`
	Action    string          `json:"action"`
	Entity    string          `json:"entity"`
	EntityID  string          `json:"entityId"`
	Meta      json.RawMessage `json:"meta,omitempty"`
	At        time.Time       `json:"at"`
}

// RecentActivity returns the newest audit entries with actor names joined.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	key, err := s.cache.BuildKey(ctx, keyActivity(limit))
	if err != nil {
		return nil, err
	}
	var out []Activity
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		rows, err := s.pool.Query(ctx,
			`SELECT a.actor_id, COALESCE(u.display_name, ''), a.action, a.entity, a.entity_id, a.meta, a.occurred_at
			 FROM audit_logs a
			 LEFT JOIN users u ON u.id = a.actor_id
			 ORDER BY a.occurred_at DESC
			 LIMIT $1`, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		items := make([]Activity, 0, limit)
		for rows.Next() {
			var (
				a    Activity
				meta []byte
			)
			if err := rows.Scan(&a.ActorID, &a.ActorName, &a.Action, &a.Entity, &a.EntityID, &meta, &a.At); err != nil {
				return nil, err
			}
			a.Meta = json.RawMessage(meta)
			items = append(items, a)
		}
		return items, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Invalidate bumps the cache version so the next read recomputes.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump analytics cache", slog.Any("error", err))
	}
}
