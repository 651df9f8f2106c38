package notifications

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pride-academy/academy/internal/access"
	"github.com/pride-academy/academy/internal/shared"
)

type memoryNotificationStore struct {
	entries map[int64]Notification
	nextID  int64
}

func newMemoryNotificationStore() *memoryNotificationStore {
	return &memoryNotificationStore{entries: make(map[int64]Notification)}
}

func (s *memoryNotificationStore) Insert(ctx context.Context, n Notification) (int64, error) {
	s.nextID++
	n.ID = s.nextID
	n.CreatedAt = time.Now()
	s.entries[n.ID] = n
	return n.ID, nil
}

func (s *memoryNotificationStore) visible(n Notification, userID int64, role access.Role) bool {
	if !n.Broadcast {
		return n.UserID == userID
	}
	if len(n.TargetRoles) == 0 {
		return true
	}
	for _, r := range n.TargetRoles {
		if r == role {
			return true
		}
	}
	return false
}

func (s *memoryNotificationStore) ListForUser(ctx context.Context, userID int64, role access.Role, limit int) ([]Notification, error) {
	var out []Notification
	for _, n := range s.entries {
		if s.visible(n, userID, role) {
			out = append(out, n)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memoryNotificationStore) UnreadCount(ctx context.Context, userID int64, role access.Role) (int, error) {
	count := 0
	for _, n := range s.entries {
		if !n.Read && s.visible(n, userID, role) {
			count++
		}
	}
	return count, nil
}

func (s *memoryNotificationStore) MarkRead(ctx context.Context, id, userID int64) error {
	n, ok := s.entries[id]
	if !ok || (!n.Broadcast && n.UserID != userID) {
		return shared.ErrNotFound
	}
	n.Read = true
	s.entries[id] = n
	return nil
}

func (s *memoryNotificationStore) MarkAllRead(ctx context.Context, userID int64, role access.Role) error {
	for id, n := range s.entries {
		if s.visible(n, userID, role) {
			n.Read = true
			s.entries[id] = n
		}
	}
	return nil
}

func (s *memoryNotificationStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	for id, n := range s.entries {
		if n.Read && n.CreatedAt.Before(cutoff) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

func newNotificationService() (*Service, *memoryNotificationStore) {
	store := newMemoryNotificationStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, logger), store
}

func TestRenderKnownEvents(t *testing.T) {
	title, message, typ, err := Render(EventTaskAssigned, "Подготовить отчет")
	require.NoError(t, err)
	require.Equal(t, "Новая задача", title)
	require.Contains(t, message, "Подготовить отчет")
	require.Equal(t, TypeInfo, typ)

	_, message, typ, err = Render(EventExamPassed, "Вводный экзамен", 85)
	require.NoError(t, err)
	require.Contains(t, message, "85%")
	require.Equal(t, TypeSuccess, typ)
}

func TestRenderUnknownEvent(t *testing.T) {
	_, _, _, err := Render(Event("SOMETHING_ELSE"))
	require.Error(t, err)
}

func TestRenderCoversAllTemplates(t *testing.T) {
	args := map[Event][]any{
		EventUserRegistered:     {"Екатерина"},
		EventUserApproved:       {"Сотрудник"},
		EventUserRejected:       {},
		EventTaskAssigned:       {"Задача"},
		EventTaskStatusChanged:  {"Задача", "REVIEW"},
		EventTaskOverdue:        {"Задача"},
		EventTaskEscalated:      {"Задача"},
		EventExamPassed:         {"Экзамен", 90},
		EventExamFailed:         {"Экзамен", 40},
		EventCertificateIssued:  {"Экзамен"},
		EventOnboardingDayDone:  {3},
		EventOnboardingComplete: {},
	}
	require.Len(t, args, len(templates), "every template needs a case here")
	for event, a := range args {
		_, message, _, err := Render(event, a...)
		require.NoError(t, err)
		require.NotContains(t, message, "%!", "event %s rendered badly: %s", event, message)
	}
}

func TestNotifyStoresPersonalEntry(t *testing.T) {
	svc, store := newNotificationService()

	require.NoError(t, svc.TaskAssigned(context.Background(), 7, "Подготовить отчет"))
	require.Len(t, store.entries, 1)
	n := store.entries[1]
	require.Equal(t, int64(7), n.UserID)
	require.False(t, n.Broadcast)
	require.Equal(t, TypeInfo, n.Type)
}

func TestBroadcastTargetsRoles(t *testing.T) {
	svc, store := newNotificationService()

	require.NoError(t, svc.TaskEscalated(context.Background(), "Критичная"))
	require.Len(t, store.entries, 1)
	n := store.entries[1]
	require.True(t, n.Broadcast)
	require.ElementsMatch(t, []access.Role{access.RoleAdmin, access.RoleManager}, n.TargetRoles)

	// Visible to managers, invisible to trainees.
	count, err := svc.UnreadCount(context.Background(), 2, access.RoleManager)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	count, err = svc.UnreadCount(context.Background(), 3, access.RoleTrainee)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestUserRegisteredReachesAdminsOnly(t *testing.T) {
	svc, _ := newNotificationService()

	require.NoError(t, svc.UserRegistered(context.Background(), 9, "Екатерина"))

	count, err := svc.UnreadCount(context.Background(), 1, access.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	count, err = svc.UnreadCount(context.Background(), 2, access.RoleMentor)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestExamFinishedPicksTemplateByOutcome(t *testing.T) {
	svc, store := newNotificationService()

	require.NoError(t, svc.ExamFinished(context.Background(), 7, "Вводный экзамен", 85, true))
	require.NoError(t, svc.ExamFinished(context.Background(), 7, "Вводный экзамен", 40, false))

	require.Equal(t, TypeSuccess, store.entries[1].Type)
	require.Equal(t, TypeWarning, store.entries[2].Type)
	require.Contains(t, store.entries[2].Message, "не сдан")
}

func TestMarkReadOwnership(t *testing.T) {
	svc, store := newNotificationService()

	require.NoError(t, svc.TaskAssigned(context.Background(), 7, "Задача"))
	require.ErrorIs(t, svc.MarkRead(context.Background(), 1, 8), shared.ErrNotFound)
	require.NoError(t, svc.MarkRead(context.Background(), 1, 7))
	require.True(t, store.entries[1].Read)
}

func TestMarkAllRead(t *testing.T) {
	svc, _ := newNotificationService()

	require.NoError(t, svc.TaskAssigned(context.Background(), 7, "Первая"))
	require.NoError(t, svc.TaskAssigned(context.Background(), 7, "Вторая"))
	require.NoError(t, svc.TaskAssigned(context.Background(), 8, "Чужая"))

	require.NoError(t, svc.MarkAllRead(context.Background(), 7, access.RoleTrainee))

	count, err := svc.UnreadCount(context.Background(), 7, access.RoleTrainee)
	require.NoError(t, err)
	require.Equal(t, 0, count)
	count, err = svc.UnreadCount(context.Background(), 8, access.RoleTrainee)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestPurgeOldRemovesReadEntries(t *testing.T) {
	svc, store := newNotificationService()

	require.NoError(t, svc.TaskAssigned(context.Background(), 7, "Старая"))
	require.NoError(t, svc.TaskAssigned(context.Background(), 7, "Свежая"))
	require.NoError(t, svc.MarkAllRead(context.Background(), 7, access.RoleTrainee))

	old := store.entries[1]
	old.CreatedAt = time.Now().Add(-60 * 24 * time.Hour)
	store.entries[1] = old

	removed, err := svc.PurgeOld(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
	require.NotContains(t, store.entries, int64(1))
	require.Contains(t, store.entries, int64(2))
}
