package tasks

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pride-academy/academy/internal/shared"
)

type memoryTaskStore struct {
	tasks    map[int64]Task
	comments map[int64][]Comment
	nextID   int64
}

func newMemoryTaskStore() *memoryTaskStore {
	return &memoryTaskStore{
		tasks:    make(map[int64]Task),
		comments: make(map[int64][]Comment),
	}
}

func (s *memoryTaskStore) Create(ctx context.Context, t Task) (*Task, error) {
	s.nextID++
	t.ID = s.nextID
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	s.tasks[t.ID] = t
	return &t, nil
}

func (s *memoryTaskStore) GetByID(ctx context.Context, id int64) (*Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &t, nil
}

func (s *memoryTaskStore) List(ctx context.Context, f Filter) ([]Task, error) {
	var out []Task
	for _, t := range s.tasks {
		if f.AssigneeID != 0 && t.AssigneeID != f.AssigneeID {
			continue
		}
		if f.CreatorID != 0 && t.CreatorID != f.CreatorID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *memoryTaskStore) Update(ctx context.Context, t Task) error {
	if _, ok := s.tasks[t.ID]; !ok {
		return shared.ErrNotFound
	}
	t.UpdatedAt = time.Now()
	s.tasks[t.ID] = t
	return nil
}

func (s *memoryTaskStore) UpdateStatus(ctx context.Context, id int64, status Status, completedAt *time.Time) error {
	t, ok := s.tasks[id]
	if !ok {
		return shared.ErrNotFound
	}
	t.Status = status
	t.CompletedAt = completedAt
	s.tasks[id] = t
	return nil
}

func (s *memoryTaskStore) Delete(ctx context.Context, id int64) error {
	if _, ok := s.tasks[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *memoryTaskStore) ListOverdue(ctx context.Context, now time.Time) ([]Task, error) {
	var out []Task
	for _, t := range s.tasks {
		if !t.Escalated && t.IsOverdue(now) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memoryTaskStore) MarkEscalated(ctx context.Context, id int64) error {
	t, ok := s.tasks[id]
	if !ok {
		return shared.ErrNotFound
	}
	t.Escalated = true
	s.tasks[id] = t
	return nil
}

func (s *memoryTaskStore) AddComment(ctx context.Context, c Comment) (*Comment, error) {
	s.nextID++
	c.ID = s.nextID
	c.CreatedAt = time.Now()
	s.comments[c.TaskID] = append(s.comments[c.TaskID], c)
	return &c, nil
}

func (s *memoryTaskStore) ListComments(ctx context.Context, taskID int64) ([]Comment, error) {
	return append([]Comment(nil), s.comments[taskID]...), nil
}

func (s *memoryTaskStore) CountByStatus(ctx context.Context, assigneeID int64) (map[Status]int, error) {
	counts := make(map[Status]int)
	for _, t := range s.tasks {
		if t.AssigneeID == assigneeID {
			counts[t.Status]++
		}
	}
	return counts, nil
}

type taskEventLog struct {
	assigned  []int64
	statuses  []string
	overdue   []int64
	escalated []string
}

func (l *taskEventLog) TaskAssigned(ctx context.Context, assigneeID int64, title string) error {
	l.assigned = append(l.assigned, assigneeID)
	return nil
}

func (l *taskEventLog) TaskStatusChanged(ctx context.Context, creatorID int64, title, status string) error {
	l.statuses = append(l.statuses, status)
	return nil
}

func (l *taskEventLog) TaskOverdue(ctx context.Context, assigneeID int64, title string) error {
	l.overdue = append(l.overdue, assigneeID)
	return nil
}

func (l *taskEventLog) TaskEscalated(ctx context.Context, title string) error {
	l.escalated = append(l.escalated, title)
	return nil
}

type taskAuditLog struct {
	logs []shared.AuditLog
}

func (a *taskAuditLog) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newTaskService(store Store, notifier Notifier, audit AuditRecorder) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, notifier, audit, logger)
}

func TestCanTransitionTable(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusTodo, StatusInProgress, true},
		{StatusTodo, StatusBlocked, true},
		{StatusTodo, StatusCompleted, false},
		{StatusInProgress, StatusReview, true},
		{StatusInProgress, StatusTodo, true},
		{StatusInProgress, StatusCompleted, false},
		{StatusReview, StatusCompleted, true},
		{StatusReview, StatusInProgress, true},
		{StatusReview, StatusBlocked, false},
		{StatusBlocked, StatusTodo, true},
		{StatusBlocked, StatusReview, false},
		{StatusCompleted, StatusTodo, false},
		{StatusCompleted, StatusInProgress, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCreateDefaultsAndNotifies(t *testing.T) {
	store := newMemoryTaskStore()
	events := &taskEventLog{}
	audit := &taskAuditLog{}
	svc := newTaskService(store, events, audit)

	created, err := svc.Create(context.Background(), CreateInput{
		Title:      "  Подготовить отчет  ",
		CreatorID:  1,
		AssigneeID: 2,
	})
	require.NoError(t, err)
	require.Equal(t, "Подготовить отчет", created.Title)
	require.Equal(t, StatusTodo, created.Status)
	require.Equal(t, PriorityMedium, created.Priority)
	require.Equal(t, []int64{2}, events.assigned)
	require.Len(t, audit.logs, 1)
	require.Equal(t, "task.create", audit.logs[0].Action)
}

func TestCreateSelfAssignedSkipsNotification(t *testing.T) {
	events := &taskEventLog{}
	svc := newTaskService(newMemoryTaskStore(), events, nil)

	_, err := svc.Create(context.Background(), CreateInput{Title: "Личная задача", CreatorID: 1, AssigneeID: 1})
	require.NoError(t, err)
	require.Empty(t, events.assigned)
}

func TestCreateRequiresTitle(t *testing.T) {
	svc := newTaskService(newMemoryTaskStore(), nil, nil)
	_, err := svc.Create(context.Background(), CreateInput{Title: "   ", CreatorID: 1, AssigneeID: 2})
	require.Error(t, err)
}

func TestChangeStatusByAssignee(t *testing.T) {
	store := newMemoryTaskStore()
	events := &taskEventLog{}
	svc := newTaskService(store, events, nil)

	created, err := svc.Create(context.Background(), CreateInput{Title: "Задача", CreatorID: 1, AssigneeID: 2})
	require.NoError(t, err)

	updated, err := svc.ChangeStatus(context.Background(), 2, created.ID, StatusInProgress, false)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, updated.Status)
	require.Equal(t, []string{"IN_PROGRESS"}, events.statuses)
}

func TestChangeStatusForbiddenForStranger(t *testing.T) {
	store := newMemoryTaskStore()
	svc := newTaskService(store, nil, nil)

	created, err := svc.Create(context.Background(), CreateInput{Title: "Задача", CreatorID: 1, AssigneeID: 2})
	require.NoError(t, err)

	_, err = svc.ChangeStatus(context.Background(), 3, created.ID, StatusInProgress, false)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestChangeStatusCompletionNeedsReviewer(t *testing.T) {
	store := newMemoryTaskStore()
	svc := newTaskService(store, nil, nil)

	created, err := svc.Create(context.Background(), CreateInput{Title: "Задача", CreatorID: 1, AssigneeID: 2})
	require.NoError(t, err)

	_, err = svc.ChangeStatus(context.Background(), 2, created.ID, StatusInProgress, false)
	require.NoError(t, err)
	_, err = svc.ChangeStatus(context.Background(), 2, created.ID, StatusReview, false)
	require.NoError(t, err)

	// The assignee cannot close out their own work.
	_, err = svc.ChangeStatus(context.Background(), 2, created.ID, StatusCompleted, false)
	require.ErrorIs(t, err, shared.ErrForbidden)

	updated, err := svc.ChangeStatus(context.Background(), 5, created.ID, StatusCompleted, true)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, updated.Status)
	require.NotNil(t, updated.CompletedAt)
}

func TestChangeStatusRejectsIllegalMove(t *testing.T) {
	store := newMemoryTaskStore()
	svc := newTaskService(store, nil, nil)

	created, err := svc.Create(context.Background(), CreateInput{Title: "Задача", CreatorID: 1, AssigneeID: 2})
	require.NoError(t, err)

	_, err = svc.ChangeStatus(context.Background(), 2, created.ID, StatusCompleted, true)
	require.ErrorIs(t, err, ErrTransition)
}

func TestUpdateReassignmentNotifies(t *testing.T) {
	store := newMemoryTaskStore()
	events := &taskEventLog{}
	svc := newTaskService(store, events, nil)

	created, err := svc.Create(context.Background(), CreateInput{Title: "Задача", CreatorID: 1, AssigneeID: 2})
	require.NoError(t, err)
	require.Equal(t, []int64{2}, events.assigned)

	_, err = svc.Update(context.Background(), 1, created.ID, UpdateInput{AssigneeID: 3})
	require.NoError(t, err)
	require.Equal(t, []int64{2, 3}, events.assigned)

	// An update without reassignment stays quiet.
	_, err = svc.Update(context.Background(), 1, created.ID, UpdateInput{Title: "Новое название"})
	require.NoError(t, err)
	require.Equal(t, []int64{2, 3}, events.assigned)
}

func TestCommentValidation(t *testing.T) {
	store := newMemoryTaskStore()
	svc := newTaskService(store, nil, nil)

	created, err := svc.Create(context.Background(), CreateInput{Title: "Задача", CreatorID: 1, AssigneeID: 2})
	require.NoError(t, err)

	_, err = svc.Comment(context.Background(), 2, created.ID, "   ")
	require.Error(t, err)

	_, err = svc.Comment(context.Background(), 2, 999, "Текст")
	require.ErrorIs(t, err, shared.ErrNotFound)

	comment, err := svc.Comment(context.Background(), 2, created.ID, " Вопрос по срокам ")
	require.NoError(t, err)
	require.Equal(t, "Вопрос по срокам", comment.Body)

	comments, err := svc.Comments(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
}

func TestScanOverdueFlagsOnceAndEscalatesByPriority(t *testing.T) {
	store := newMemoryTaskStore()
	events := &taskEventLog{}
	svc := newTaskService(store, events, nil)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	_, err := svc.Create(context.Background(), CreateInput{Title: "Просрочена", CreatorID: 1, AssigneeID: 2, DueAt: &past})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{Title: "Критичная", CreatorID: 1, AssigneeID: 3, Priority: PriorityCritical, DueAt: &past})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{Title: "В срок", CreatorID: 1, AssigneeID: 2, DueAt: &future})
	require.NoError(t, err)

	flagged, err := svc.ScanOverdue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, flagged)
	require.ElementsMatch(t, []int64{2, 3}, events.overdue)
	require.Equal(t, []string{"Критичная"}, events.escalated)

	// A second scan finds nothing new.
	flagged, err = svc.ScanOverdue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, flagged)
}

func TestCountByStatus(t *testing.T) {
	store := newMemoryTaskStore()
	svc := newTaskService(store, nil, nil)

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), CreateInput{Title: "Задача", CreatorID: 1, AssigneeID: 2})
		require.NoError(t, err)
	}
	counts, err := svc.CountByStatus(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 3, counts[StatusTodo])
}
