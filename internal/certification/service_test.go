package certification

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pride-academy/academy/internal/shared"
)

type memoryCertStore struct {
	certs  map[string]Certificate
	nextID int64
}

func newMemoryCertStore() *memoryCertStore {
	return &memoryCertStore{certs: make(map[string]Certificate)}
}

func (s *memoryCertStore) Insert(ctx context.Context, c Certificate) (int64, error) {
	s.nextID++
	c.ID = s.nextID
	s.certs[c.Number] = c
	return c.ID, nil
}

func (s *memoryCertStore) FindByNumber(ctx context.Context, number string) (*Certificate, error) {
	c, ok := s.certs[number]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &c, nil
}

func (s *memoryCertStore) ListForUser(ctx context.Context, userID int64) ([]Certificate, error) {
	var out []Certificate
	for _, c := range s.certs {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memoryCertStore) List(ctx context.Context, limit, offset int) ([]Certificate, error) {
	var out []Certificate
	for _, c := range s.certs {
		out = append(out, c)
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryCertStore) Count(ctx context.Context) (int, error) {
	return len(s.certs), nil
}

func (s *memoryCertStore) Revoke(ctx context.Context, number string) error {
	c, ok := s.certs[number]
	if !ok {
		return shared.ErrNotFound
	}
	c.Revoked = true
	s.certs[number] = c
	return nil
}

func (s *memoryCertStore) CountForUser(ctx context.Context, userID int64) (int, error) {
	count := 0
	for _, c := range s.certs {
		if c.UserID == userID && !c.Revoked {
			count++
		}
	}
	return count, nil
}

type congratsLog struct {
	users []int64
}

func (l *congratsLog) CertificateIssued(ctx context.Context, userID int64, title string) error {
	l.users = append(l.users, userID)
	return nil
}

type certAuditLog struct {
	logs []shared.AuditLog
}

func (a *certAuditLog) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newCertService(store Store, notifier Notifier, audit AuditRecorder) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, notifier, audit, logger)
}

func TestIssueForExam(t *testing.T) {
	store := newMemoryCertStore()
	congrats := &congratsLog{}
	audit := &certAuditLog{}
	svc := newCertService(store, congrats, audit)

	require.NoError(t, svc.IssueForExam(context.Background(), 7, 3, "Вводный экзамен", 85))
	require.Len(t, store.certs, 1)

	var issued Certificate
	for _, c := range store.certs {
		issued = c
	}
	require.Len(t, issued.Number, 26, "certificate numbers are ULIDs")
	require.Equal(t, int64(7), issued.UserID)
	require.Equal(t, int64(3), issued.ExamID)
	require.Equal(t, 85, issued.Score)
	require.False(t, issued.Revoked)
	require.False(t, issued.IssuedAt.IsZero())

	require.Equal(t, []int64{7}, congrats.users)
	require.Len(t, audit.logs, 1)
	require.Equal(t, "certificate.issue", audit.logs[0].Action)
}

func TestIssueGeneratesUniqueNumbers(t *testing.T) {
	store := newMemoryCertStore()
	svc := newCertService(store, nil, nil)

	for i := 0; i < 10; i++ {
		require.NoError(t, svc.IssueForExam(context.Background(), 7, 3, "Экзамен", 80))
	}
	require.Len(t, store.certs, 10)
}

func TestValidate(t *testing.T) {
	store := newMemoryCertStore()
	svc := newCertService(store, nil, nil)

	require.NoError(t, svc.IssueForExam(context.Background(), 7, 3, "Экзамен", 80))
	var number string
	for n := range store.certs {
		number = n
	}

	cert, err := svc.Validate(context.Background(), number)
	require.NoError(t, err)
	require.Equal(t, number, cert.Number)

	_, err = svc.Validate(context.Background(), "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRevoke(t *testing.T) {
	store := newMemoryCertStore()
	audit := &certAuditLog{}
	svc := newCertService(store, nil, audit)

	require.NoError(t, svc.IssueForExam(context.Background(), 7, 3, "Экзамен", 80))
	var number string
	for n := range store.certs {
		number = n
	}

	require.NoError(t, svc.Revoke(context.Background(), 1, number))

	cert, err := svc.Validate(context.Background(), number)
	require.NoError(t, err)
	require.True(t, cert.Revoked, "a revoked certificate still resolves but reports invalid")

	count, err := svc.CountForUser(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 0, count)

	require.Len(t, audit.logs, 2)
	require.Equal(t, "certificate.revoke", audit.logs[1].Action)
	require.Equal(t, number, audit.logs[1].EntityID)

	require.ErrorIs(t, svc.Revoke(context.Background(), 1, "missing"), shared.ErrNotFound)
}

func TestRegistryBoundsPagination(t *testing.T) {
	store := newMemoryCertStore()
	svc := newCertService(store, nil, nil)

	for i := 0; i < 60; i++ {
		require.NoError(t, svc.IssueForExam(context.Background(), int64(i), 3, "Экзамен", 80))
	}

	items, pagination, err := svc.Registry(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 50, "zero perPage falls back to the default page size")
	require.Equal(t, 60, pagination.Total)
	require.Equal(t, 2, pagination.TotalPages)

	items, pagination, err = svc.Registry(context.Background(), 1, 1000)
	require.NoError(t, err)
	require.Len(t, items, 50, "oversized perPage is clamped")
	require.Equal(t, 1, pagination.Page)

	items, _, err = svc.Registry(context.Background(), 7, 10)
	require.NoError(t, err)
	require.Len(t, items, 0, "pages past the end are empty")
}

func TestForUser(t *testing.T) {
	store := newMemoryCertStore()
	svc := newCertService(store, nil, nil)

	require.NoError(t, svc.IssueForExam(context.Background(), 7, 3, "Первый", 80))
	require.NoError(t, svc.IssueForExam(context.Background(), 7, 4, "Второй", 90))
	require.NoError(t, svc.IssueForExam(context.Background(), 8, 3, "Чужой", 70))

	mine, err := svc.ForUser(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, mine, 2)
}

func TestIssuedAtIsUTC(t *testing.T) {
	store := newMemoryCertStore()
	svc := newCertService(store, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 1, 15, 10, 0, 0, 0, time.FixedZone("MSK", 3*3600)) }

	require.NoError(t, svc.IssueForExam(context.Background(), 7, 3, "Экзамен", 80))
	for _, c := range store.certs {
		require.Equal(t, time.UTC, c.IssuedAt.Location())
	}
}
