package users

import (
	"context"
	"sort"
	"strconv"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/pride-academy/academy/internal/access"
	"github.com/pride-academy/academy/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	ListByStatus(ctx context.Context, status access.ProfileStatus) ([]User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) error
	Approve(ctx context.Context, id int64, role access.Role) error
	Reject(ctx context.Context, id int64) error
	BulkUpdateRole(ctx context.Context, ids []int64, role access.Role) error
	IDsByRole(ctx context.Context, role access.Role) ([]int64, error)
	Delete(ctx context.Context, id int64) error
}

// Invalidator drops cached permission resolutions after role changes.
type Invalidator interface {
	Invalidate(userID int64)
	InvalidateAll()
}

// Notifier fans out registration decisions to the affected user.
type Notifier interface {
	UserApproved(ctx context.Context, userID int64, role access.Role) error
	UserRejected(ctx context.Context, userID int64) error
}

// AuditRecorder persists the administrative audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles user management business logic.
type Service struct {
	repo     RepositoryPort
	audit    AuditRecorder
	notifier Notifier
	resolver Invalidator
	collator *collate.Collator
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditRecorder, notifier Notifier, resolver Invalidator) *Service {
	return &Service{
		repo:     repo,
		audit:    audit,
		notifier: notifier,
		resolver: resolver,
		collator: collate.New(language.Russian),
	}
}

// ListUsers returns all profiles ordered by Cyrillic last name.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		if c := s.collator.CompareString(users[i].LastName, users[j].LastName); c != 0 {
			return c < 0
		}
		return s.collator.CompareString(users[i].DisplayName, users[j].DisplayName) < 0
	})
	return users, nil
}

// PendingUsers returns registrations awaiting an administrator decision.
func (s *Service) PendingUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListByStatus(ctx, access.StatusPending)
}

// GetUser returns one profile.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile applies self-service profile edits.
func (s *Service) UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) error {
	return s.repo.UpdateProfile(ctx, id, upd)
}

// ApproveUser approves a pending registration and assigns the role. The
// cached resolution is dropped so the new role takes effect immediately.
func (s *Service) ApproveUser(ctx context.Context, actorID, userID int64, role access.Role) error {
	if err := s.repo.Approve(ctx, userID, role); err != nil {
		return err
	}
	s.resolver.Invalidate(userID)
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "user.approve",
			Entity:   "user",
			EntityID: strconv.FormatInt(userID, 10),
			Meta:     map[string]any{"role": role},
		})
	}
	if s.notifier != nil {
		return s.notifier.UserApproved(ctx, userID, role)
	}
	return nil
}

// RejectUser rejects a pending registration.
func (s *Service) RejectUser(ctx context.Context, actorID, userID int64) error {
	if err := s.repo.Reject(ctx, userID); err != nil {
		return err
	}
	s.resolver.Invalidate(userID)
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "user.reject",
			Entity:   "user",
			EntityID: strconv.FormatInt(userID, 10),
		})
	}
	if s.notifier != nil {
		return s.notifier.UserRejected(ctx, userID)
	}
	return nil
}

// BulkUpdateRoles reassigns the role of several users. The full resolver
// cache is dropped: cheaper than per-user invalidation at admin batch sizes.
func (s *Service) BulkUpdateRoles(ctx context.Context, actorID int64, ids []int64, role access.Role) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.repo.BulkUpdateRole(ctx, ids, role); err != nil {
		return err
	}
	s.resolver.InvalidateAll()
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "user.bulk_role_update",
			Entity:   "user",
			EntityID: "batch",
			Meta:     map[string]any{"role": role, "count": len(ids)},
		})
	}
	return nil
}

// IDsByRole exposes role membership for notification fan-out.
func (s *Service) IDsByRole(ctx context.Context, role access.Role) ([]int64, error) {
	return s.repo.IDsByRole(ctx, role)
}

// DeleteUser removes a profile entirely.
func (s *Service) DeleteUser(ctx context.Context, actorID, userID int64) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	s.resolver.Invalidate(userID)
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "user.delete",
			Entity:   "user",
			EntityID: strconv.FormatInt(userID, 10),
		})
	}
	return nil
}
