package certification

import (
	"context"
	"crypto/rand"
	"log/slog"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/pride-academy/academy/internal/shared"
)

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, c Certificate) (int64, error)
	FindByNumber(ctx context.Context, number string) (*Certificate, error)
	ListForUser(ctx context.Context, userID int64) ([]Certificate, error)
	List(ctx context.Context, limit, offset int) ([]Certificate, error)
	Count(ctx context.Context) (int, error)
	Revoke(ctx context.Context, number string) error
	CountForUser(ctx context.Context, userID int64) (int, error)
}

// Notifier congratulates the certificate holder.
type Notifier interface {
	CertificateIssued(ctx context.Context, userID int64, title string) error
}

// AuditRecorder persists the administrative audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service issues and validates certificates.
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

// IssueForExam awards a certificate for a passed exam. Implements the exam
// module's issuer port.
func (s *Service) IssueForExam(ctx context.Context, userID, examID int64, examTitle string, score int) error {
	issuedAt := s.now().UTC()
	number := ulid.MustNew(ulid.Timestamp(issuedAt), rand.Reader).String()
	cert := Certificate{
		Number:   number,
		UserID:   userID,
		ExamID:   examID,
		Title:    examTitle,
		Score:    score,
		IssuedAt: issuedAt,
	}
	id, err := s.store.Insert(ctx, cert)
	if err != nil {
		return err
	}
	s.logger.Info("certificate issued",
		slog.String("number", number),
		slog.Int64("user", userID),
		slog.Int64("exam", examID))
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  userID,
			Action:   "certificate.issue",
			Entity:   "certificate",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"number": number},
		})
	}
	if s.notifier != nil {
		if err := s.notifier.CertificateIssued(ctx, userID, examTitle); err != nil {
			s.logger.Warn("notify certificate", slog.Any("error", err))
		}
	}
	return nil
}

// Validate looks a certificate up by number. Revoked certificates resolve
// but report invalid.
func (s *Service) Validate(ctx context.Context, number string) (*Certificate, error) {
	return s.store.FindByNumber(ctx, number)
}

// ForUser returns a user's certificates.
func (s *Service) ForUser(ctx context.Context, userID int64) ([]Certificate, error) {
	return s.store.ListForUser(ctx, userID)
}

// Registry returns one page of the administrative list.
func (s *Service) Registry(ctx context.Context, page, perPage int) ([]Certificate, shared.Pagination, error) {
	if perPage <= 0 || perPage > 100 {
		perPage = 50
	}
	if page <= 0 {
		page = 1
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	items, err := s.store.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, perPage, total), nil
}

// Revoke invalidates a certificate.
func (s *Service) Revoke(ctx context.Context, actorID int64, number string) error {
	if err := s.store.Revoke(ctx, number); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "certificate.revoke",
			Entity:   "certificate",
			EntityID: number,
		})
	}
	return nil
}

// CountForUser counts valid certificates, used by the analytics module.
func (s *Service) CountForUser(ctx context.Context, userID int64) (int, error) {
	return s.store.CountForUser(ctx, userID)
}
