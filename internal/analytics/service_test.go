package analytics

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pride-academy/academy/internal/onboarding"
	"github.com/pride-academy/academy/internal/tasks"
)

type stubTaskCounter struct {
	counts map[tasks.Status]int
	calls  int
}

func (s *stubTaskCounter) CountByStatus(ctx context.Context, assigneeID int64) (map[tasks.Status]int, error) {
	s.calls++
	return s.counts, nil
}

type stubCertCounter struct {
	count int
	calls int
}

func (s *stubCertCounter) CountForUser(ctx context.Context, userID int64) (int, error) {
	s.calls++
	return s.count, nil
}

type stubProgressLoader struct {
	progress *onboarding.Progress
	calls    int
}

func (s *stubProgressLoader) ProgressFor(ctx context.Context, userID int64) (*onboarding.Progress, error) {
	s.calls++
	return s.progress, nil
}

func newAnalyticsService(t *testing.T) (*Service, *stubTaskCounter, *stubCertCounter, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	taskCounter := &stubTaskCounter{counts: map[tasks.Status]int{tasks.StatusTodo: 2, tasks.StatusCompleted: 5}}
	certCounter := &stubCertCounter{count: 3}
	loader := &stubProgressLoader{progress: &onboarding.Progress{
		UserID:    7,
		Days:      map[int]*onboarding.DayProgress{},
		StartedAt: time.Now().Add(-24 * time.Hour),
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(nil, cache, taskCounter, certCounter, loader, logger)
	return svc, taskCounter, certCounter, func() { _ = client.Close() }
}

func TestUserProgressForAggregates(t *testing.T) {
	svc, _, _, cleanup := newAnalyticsService(t)
	defer cleanup()

	out, err := svc.UserProgressFor(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Certificates != 3 {
		t.Fatalf("expected 3 certificates, got %d", out.Certificates)
	}
	if out.TaskCounts[tasks.StatusTodo] != 2 {
		t.Fatalf("expected 2 open tasks, got %d", out.TaskCounts[tasks.StatusTodo])
	}
	if out.OnboardingCompletion != 0 {
		t.Fatalf("empty progress must yield zero completion, got %f", out.OnboardingCompletion)
	}
	if out.GeneratedAt.IsZero() {
		t.Fatalf("expected generation timestamp")
	}
}

func TestUserProgressForCaches(t *testing.T) {
	svc, taskCounter, certCounter, cleanup := newAnalyticsService(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := svc.UserProgressFor(ctx, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.UserProgressFor(ctx, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if taskCounter.calls != 1 || certCounter.calls != 1 {
		t.Fatalf("expected cached second read, got %d/%d calls", taskCounter.calls, certCounter.calls)
	}

	// Another user gets their own cache entry.
	if _, err := svc.UserProgressFor(ctx, 8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if taskCounter.calls != 2 {
		t.Fatalf("expected fresh load for another user, got %d calls", taskCounter.calls)
	}
}

func TestInvalidateBumpsVersion(t *testing.T) {
	svc, taskCounter, _, cleanup := newAnalyticsService(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := svc.UserProgressFor(ctx, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc.Invalidate(ctx)
	if _, err := svc.UserProgressFor(ctx, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if taskCounter.calls != 2 {
		t.Fatalf("expected recompute after invalidation, got %d calls", taskCounter.calls)
	}
}
