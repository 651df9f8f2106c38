package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pride-academy/academy/internal/access"
	"github.com/pride-academy/academy/internal/shared"
)

type memoryUserRepo struct {
	users map[int64]User
}

func newMemoryUserRepo(seed ...User) *memoryUserRepo {
	r := &memoryUserRepo{users: make(map[int64]User)}
	for _, u := range seed {
		r.users[u.ID] = u
	}
	return r
}

func (r *memoryUserRepo) ListUsers(ctx context.Context) ([]User, error) {
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *memoryUserRepo) ListByStatus(ctx context.Context, status access.ProfileStatus) ([]User, error) {
	var out []User
	for _, u := range r.users {
		if u.Status == status {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memoryUserRepo) GetByID(ctx context.Context, id int64) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (r *memoryUserRepo) UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.DisplayName = upd.DisplayName
	u.LastName = upd.LastName
	u.Position = upd.Position
	u.Department = upd.Department
	u.AvatarURL = upd.AvatarURL
	u.UpdatedAt = time.Now()
	r.users[id] = u
	return nil
}

func (r *memoryUserRepo) Approve(ctx context.Context, id int64, role access.Role) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Status = access.StatusApproved
	u.Role = role
	r.users[id] = u
	return nil
}

func (r *memoryUserRepo) Reject(ctx context.Context, id int64) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Status = access.StatusRejected
	r.users[id] = u
	return nil
}

func (r *memoryUserRepo) BulkUpdateRole(ctx context.Context, ids []int64, role access.Role) error {
	for _, id := range ids {
		u, ok := r.users[id]
		if !ok {
			return shared.ErrNotFound
		}
		u.Role = role
		r.users[id] = u
	}
	return nil
}

func (r *memoryUserRepo) IDsByRole(ctx context.Context, role access.Role) ([]int64, error) {
	var ids []int64
	for id, u := range r.users {
		if u.Role == role {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *memoryUserRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

type recordingInvalidator struct {
	invalidated []int64
	flushed     bool
}

func (i *recordingInvalidator) Invalidate(userID int64) {
	i.invalidated = append(i.invalidated, userID)
}

func (i *recordingInvalidator) InvalidateAll() {
	i.flushed = true
}

type recordingUserNotifier struct {
	approved map[int64]access.Role
	rejected []int64
}

func newRecordingUserNotifier() *recordingUserNotifier {
	return &recordingUserNotifier{approved: make(map[int64]access.Role)}
}

func (n *recordingUserNotifier) UserApproved(ctx context.Context, userID int64, role access.Role) error {
	n.approved[userID] = role
	return nil
}

func (n *recordingUserNotifier) UserRejected(ctx context.Context, userID int64) error {
	n.rejected = append(n.rejected, userID)
	return nil
}

type memoryAudit struct {
	logs []shared.AuditLog
}

func (a *memoryAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func TestListUsersSortsByRussianCollation(t *testing.T) {
	repo := newMemoryUserRepo(
		User{ID: 1, DisplayName: "Борис", LastName: "Яковлев"},
		User{ID: 2, DisplayName: "Анна", LastName: "Ежова"},
		User{ID: 3, DisplayName: "Виктор", LastName: "Абрамов"},
		User{ID: 4, DisplayName: "Анна", LastName: "Ежова"},
	)
	svc := NewService(repo, nil, nil, &recordingInvalidator{})

	users, err := svc.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 4)
	require.Equal(t, "Абрамов", users[0].LastName)
	require.Equal(t, "Ежова", users[1].LastName)
	require.Equal(t, "Ежова", users[2].LastName)
	require.Equal(t, "Яковлев", users[3].LastName)
	// Ties on last name fall back to the first name.
	require.Equal(t, users[1].DisplayName, users[2].DisplayName)
}

func TestApproveUser(t *testing.T) {
	repo := newMemoryUserRepo(User{ID: 5, Status: access.StatusPending, Role: access.RoleTrainee})
	invalidator := &recordingInvalidator{}
	notifier := newRecordingUserNotifier()
	audit := &memoryAudit{}
	svc := NewService(repo, audit, notifier, invalidator)

	require.NoError(t, svc.ApproveUser(context.Background(), 1, 5, access.RoleEmployee))

	u, err := repo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, access.StatusApproved, u.Status)
	require.Equal(t, access.RoleEmployee, u.Role)
	require.Equal(t, []int64{5}, invalidator.invalidated)
	require.Equal(t, access.RoleEmployee, notifier.approved[5])

	require.Len(t, audit.logs, 1)
	require.Equal(t, "user.approve", audit.logs[0].Action)
	require.Equal(t, int64(1), audit.logs[0].ActorID)
	require.Equal(t, "5", audit.logs[0].EntityID)
}

func TestApproveUserMissing(t *testing.T) {
	invalidator := &recordingInvalidator{}
	svc := NewService(newMemoryUserRepo(), nil, nil, invalidator)

	err := svc.ApproveUser(context.Background(), 1, 99, access.RoleEmployee)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, invalidator.invalidated)
}

func TestRejectUser(t *testing.T) {
	repo := newMemoryUserRepo(User{ID: 5, Status: access.StatusPending})
	invalidator := &recordingInvalidator{}
	notifier := newRecordingUserNotifier()
	svc := NewService(repo, nil, notifier, invalidator)

	require.NoError(t, svc.RejectUser(context.Background(), 1, 5))

	u, err := repo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, access.StatusRejected, u.Status)
	require.Equal(t, []int64{5}, notifier.rejected)
}

func TestBulkUpdateRoles(t *testing.T) {
	repo := newMemoryUserRepo(
		User{ID: 1, Role: access.RoleTrainee},
		User{ID: 2, Role: access.RoleTrainee},
	)
	invalidator := &recordingInvalidator{}
	audit := &memoryAudit{}
	svc := NewService(repo, audit, nil, invalidator)

	require.NoError(t, svc.BulkUpdateRoles(context.Background(), 9, []int64{1, 2}, access.RoleEmployee))
	require.True(t, invalidator.flushed)
	require.Len(t, audit.logs, 1)
	require.Equal(t, "user.bulk_role_update", audit.logs[0].Action)

	for _, id := range []int64{1, 2} {
		u, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, access.RoleEmployee, u.Role)
	}
}

func TestBulkUpdateRolesEmptyIsNoop(t *testing.T) {
	invalidator := &recordingInvalidator{}
	audit := &memoryAudit{}
	svc := NewService(newMemoryUserRepo(), audit, nil, invalidator)

	require.NoError(t, svc.BulkUpdateRoles(context.Background(), 9, nil, access.RoleEmployee))
	require.False(t, invalidator.flushed)
	require.Empty(t, audit.logs)
}

func TestDeleteUser(t *testing.T) {
	repo := newMemoryUserRepo(User{ID: 3})
	invalidator := &recordingInvalidator{}
	svc := NewService(repo, nil, nil, invalidator)

	require.NoError(t, svc.DeleteUser(context.Background(), 1, 3))
	_, err := repo.GetByID(context.Background(), 3)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Equal(t, []int64{3}, invalidator.invalidated)
}
