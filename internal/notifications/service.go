package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/pride-academy/academy/internal/access"
)

const defaultListLimit = 50

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, n Notification) (int64, error)
	ListForUser(ctx context.Context, userID int64, role access.Role, limit int) ([]Notification, error)
	UnreadCount(ctx context.Context, userID int64, role access.Role) (int, error)
	MarkRead(ctx context.Context, id, userID int64) error
	MarkAllRead(ctx context.Context, userID int64, role access.Role) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service creates, fans out and serves notifications. It is the single
// implementation behind the notifier ports of the other modules.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// Notify creates a personal notification from an event template.
func (s *Service) Notify(ctx context.Context, userID int64, event Event, args ...any) error {
	title, message, typ, err := Render(event, args...)
	if err != nil {
		return err
	}
	_, err = s.store.Insert(ctx, Notification{UserID: userID, Title: title, Message: message, Type: typ})
	return err
}

// Broadcast creates a single role-targeted entry visible to every matching
// user. An empty role list reaches everyone.
func (s *Service) Broadcast(ctx context.Context, roles []access.Role, event Event, args ...any) error {
	title, message, typ, err := Render(event, args...)
	if err != nil {
		return err
	}
	_, err = s.store.Insert(ctx, Notification{Broadcast: true, TargetRoles: roles, Title: title, Message: message, Type: typ})
	return err
}

// Announce creates a free-form broadcast, used by administrators.
func (s *Service) Announce(ctx context.Context, roles []access.Role, title, message string, typ Type) (int64, error) {
	return s.store.Insert(ctx, Notification{Broadcast: true, TargetRoles: roles, Title: title, Message: message, Type: typ})
}

// ListForUser returns the visible inbox, newest first.
func (s *Service) ListForUser(ctx context.Context, userID int64, role access.Role, limit int) ([]Notification, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	return s.store.ListForUser(ctx, userID, role, limit)
}

// UnreadCount powers the bell badge.
func (s *Service) UnreadCount(ctx context.Context, userID int64, role access.Role) (int, error) {
	return s.store.UnreadCount(ctx, userID, role)
}

// MarkRead marks one entry read.
func (s *Service) MarkRead(ctx context.Context, id, userID int64) error {
	return s.store.MarkRead(ctx, id, userID)
}

// MarkAllRead clears the badge in one call.
func (s *Service) MarkAllRead(ctx context.Context, userID int64, role access.Role) error {
	return s.store.MarkAllRead(ctx, userID, role)
}

// PurgeOld removes read entries older than the retention window. Invoked by
// the nightly cleanup job.
func (s *Service) PurgeOld(ctx context.Context, retention time.Duration) (int64, error) {
	removed, err := s.store.DeleteOlderThan(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("purged notifications", slog.Int64("removed", removed))
	}
	return removed, nil
}

// UserRegistered alerts administrators about a pending account.
func (s *Service) UserRegistered(ctx context.Context, userID int64, displayName string) error {
	return s.Broadcast(ctx, []access.Role{access.RoleAdmin}, EventUserRegistered, displayName)
}

// UserApproved tells the user their account is live.
func (s *Service) UserApproved(ctx context.Context, userID int64, role access.Role) error {
	return s.Notify(ctx, userID, EventUserApproved, role.LocalizedName())
}

// UserRejected tells the user their application was declined.
func (s *Service) UserRejected(ctx context.Context, userID int64) error {
	return s.Notify(ctx, userID, EventUserRejected)
}

// TaskAssigned tells the assignee about new work.
func (s *Service) TaskAssigned(ctx context.Context, assigneeID int64, title string) error {
	return s.Notify(ctx, assigneeID, EventTaskAssigned, title)
}

// TaskStatusChanged keeps the task creator in the loop.
func (s *Service) TaskStatusChanged(ctx context.Context, creatorID int64, title, status string) error {
	return s.Notify(ctx, creatorID, EventTaskStatusChanged, title, status)
}

// TaskOverdue warns the assignee, TaskEscalated warns managers.
func (s *Service) TaskOverdue(ctx context.Context, assigneeID int64, title string) error {
	return s.Notify(ctx, assigneeID, EventTaskOverdue, title)
}

// TaskEscalated raises an overdue task to managers and administrators.
func (s *Service) TaskEscalated(ctx context.Context, title string) error {
	return s.Broadcast(ctx, []access.Role{access.RoleAdmin, access.RoleManager}, EventTaskEscalated, title)
}

// ExamFinished reports an attempt result to the examinee.
func (s *Service) ExamFinished(ctx context.Context, userID int64, examTitle string, score int, passed bool) error {
	if passed {
		return s.Notify(ctx, userID, EventExamPassed, examTitle, score)
	}
	return s.Notify(ctx, userID, EventExamFailed, examTitle, score)
}

// CertificateIssued congratulates the holder.
func (s *Service) CertificateIssued(ctx context.Context, userID int64, title string) error {
	return s.Notify(ctx, userID, EventCertificateIssued, title)
}

// OnboardingDayDone celebrates a finished program day.
func (s *Service) OnboardingDayDone(ctx context.Context, userID int64, day int) error {
	return s.Notify(ctx, userID, EventOnboardingDayDone, day)
}

// OnboardingComplete celebrates finishing the whole program.
func (s *Service) OnboardingComplete(ctx context.Context, userID int64) error {
	return s.Notify(ctx, userID, EventOnboardingComplete)
}
