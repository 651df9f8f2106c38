package tasks

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/pride-academy/academy/internal/shared"
)

// ErrTransition is returned for a workflow move the state machine forbids.
var ErrTransition = errors.New("tasks: transition not allowed")

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, t Task) (*Task, error)
	GetByID(ctx context.Context, id int64) (*Task, error)
	List(ctx context.Context, f Filter) ([]Task, error)
	Update(ctx context.Context, t Task) error
	UpdateStatus(ctx context.Context, id int64, status Status, completedAt *time.Time) error
	Delete(ctx context.Context, id int64) error
	ListOverdue(ctx context.Context, now time.Time) ([]Task, error)
	MarkEscalated(ctx context.Context, id int64) error
	AddComment(ctx context.Context, c Comment) (*Comment, error)
	ListComments(ctx context.Context, taskID int64) ([]Comment, error)
	CountByStatus(ctx context.Context, assigneeID int64) (map[Status]int, error)
}

// Notifier announces task lifecycle events.
type Notifier interface {
	TaskAssigned(ctx context.Context, assigneeID int64, title string) error
	TaskStatusChanged(ctx context.Context, creatorID int64, title, status string) error
	TaskOverdue(ctx context.Context, assigneeID int64, title string) error
	TaskEscalated(ctx context.Context, title string) error
}

// AuditRecorder persists the administrative audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements task workflow rules on top of the store.
type Service struct {
	store    Store
	notifier Notifier
	audit    AuditRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, notifier Notifier, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{store: store, notifier: notifier, audit: audit, logger: logger, now: time.Now}
}

// CreateInput carries the fields a new task needs.
type CreateInput struct {
	Title       string
	Description string
	Priority    Priority
	CreatorID   int64
	AssigneeID  int64
	DueAt       *time.Time
}

// Create stores a new task and notifies the assignee.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, errors.New("tasks: title required")
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	created, err := s.store.Create(ctx, Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      StatusTodo,
		Priority:    in.Priority,
		CreatorID:   in.CreatorID,
		AssigneeID:  in.AssigneeID,
		DueAt:       in.DueAt,
	})
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  in.CreatorID,
			Action:   "task.create",
			Entity:   "task",
			EntityID: strconv.FormatInt(created.ID, 10),
			Meta:     map[string]any{"title": created.Title},
		})
	}
	if s.notifier != nil && created.AssigneeID != created.CreatorID {
		if err := s.notifier.TaskAssigned(ctx, created.AssigneeID, created.Title); err != nil {
			s.logger.Warn("notify task assigned", slog.Any("error", err))
		}
	}
	return created, nil
}

// Get returns one task.
func (s *Service) Get(ctx context.Context, id int64) (*Task, error) {
	return s.store.GetByID(ctx, id)
}

// List returns tasks matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]Task, error) {
	return s.store.List(ctx, f)
}

// ChangeStatus moves the task through the workflow. The assignee may move
// their own task, users holding the review permission may move any.
func (s *Service) ChangeStatus(ctx context.Context, actorID, taskID int64, to Status, canReview bool) (*Task, error) {
	task, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.AssigneeID != actorID && !canReview {
		return nil, shared.ErrForbidden
	}
	// Only reviewers close out work.
	if to == StatusCompleted && !canReview {
		return nil, shared.ErrForbidden
	}
	if !CanTransition(task.Status, to) {
		return nil, ErrTransition
	}
	var completedAt *time.Time
	if to == StatusCompleted {
		now := s.now().UTC()
		completedAt = &now
	}
	if err := s.store.UpdateStatus(ctx, taskID, to, completedAt); err != nil {
		return nil, err
	}
	task.Status = to
	task.CompletedAt = completedAt
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "task.status",
			Entity:   "task",
			EntityID: strconv.FormatInt(taskID, 10),
			Meta:     map[string]any{"status": string(to)},
		})
	}
	if s.notifier != nil && task.CreatorID != actorID {
		if err := s.notifier.TaskStatusChanged(ctx, task.CreatorID, task.Title, string(to)); err != nil {
			s.logger.Warn("notify status change", slog.Any("error", err))
		}
	}
	return task, nil
}

// UpdateInput carries the editable fields.
type UpdateInput struct {
	Title       string
	Description string
	Priority    Priority
	AssigneeID  int64
	DueAt       *time.Time
}

// Update rewrites task fields and re-notifies on reassignment.
func (s *Service) Update(ctx context.Context, actorID, taskID int64, in UpdateInput) (*Task, error) {
	task, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	reassigned := in.AssigneeID != 0 && in.AssigneeID != task.AssigneeID
	if in.Title != "" {
		task.Title = strings.TrimSpace(in.Title)
	}
	task.Description = in.Description
	if in.Priority != "" {
		task.Priority = in.Priority
	}
	if in.AssigneeID != 0 {
		task.AssigneeID = in.AssigneeID
	}
	task.DueAt = in.DueAt
	if err := s.store.Update(ctx, *task); err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "task.update",
			Entity:   "task",
			EntityID: strconv.FormatInt(taskID, 10),
			Meta:     map[string]any{"title": task.Title},
		})
	}
	if reassigned && s.notifier != nil {
		if err := s.notifier.TaskAssigned(ctx, task.AssigneeID, task.Title); err != nil {
			s.logger.Warn("notify reassignment", slog.Any("error", err))
		}
	}
	return task, nil
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, actorID, taskID int64) error {
	if err := s.store.Delete(ctx, taskID); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "task.delete",
			Entity:   "task",
			EntityID: strconv.FormatInt(taskID, 10),
		})
	}
	return nil
}

// Comment appends a discussion entry.
func (s *Service) Comment(ctx context.Context, authorID, taskID int64, body string) (*Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errors.New("tasks: empty comment")
	}
	if _, err := s.store.GetByID(ctx, taskID); err != nil {
		return nil, err
	}
	return s.store.AddComment(ctx, Comment{TaskID: taskID, AuthorID: authorID, Body: body})
}

// Comments returns a task's discussion.
func (s *Service) Comments(ctx context.Context, taskID int64) ([]Comment, error) {
	return s.store.ListComments(ctx, taskID)
}

// CountByStatus aggregates a user's tasks for the dashboard.
func (s *Service) CountByStatus(ctx context.Context, assigneeID int64) (map[Status]int, error) {
	return s.store.CountByStatus(ctx, assigneeID)
}

// ScanOverdue flags overdue tasks once: the assignee is warned for every
// overdue task, managers get an escalation for high and critical ones.
// Invoked by the periodic job, returns the number of tasks flagged.
func (s *Service) ScanOverdue(ctx context.Context) (int, error) {
	overdue, err := s.store.ListOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	flagged := 0
	for _, task := range overdue {
		if err := s.store.MarkEscalated(ctx, task.ID); err != nil {
			s.logger.Error("mark escalated", slog.Int64("task", task.ID), slog.Any("error", err))
			continue
		}
		flagged++
		if s.notifier == nil {
			continue
		}
		if err := s.notifier.TaskOverdue(ctx, task.AssigneeID, task.Title); err != nil {
			s.logger.Warn("notify overdue", slog.Any("error", err))
		}
		if task.Priority == PriorityHigh || task.Priority == PriorityCritical {
			if err := s.notifier.TaskEscalated(ctx, task.Title); err != nil {
				s.logger.Warn("notify escalation", slog.Any("error", err))
			}
		}
	}
	return flagged, nil
}
