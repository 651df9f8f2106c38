package exams

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/pride-academy/academy/internal/shared"
)

var (
	// ErrAttemptsExhausted means the user hit the exam's attempt cap.
	ErrAttemptsExhausted = errors.New("exams: attempts exhausted")
	// ErrTimeExpired means the submission came in past the time limit.
	ErrTimeExpired = errors.New("exams: time limit expired")
	// ErrAlreadySubmitted means the attempt was already graded.
	ErrAlreadySubmitted = errors.New("exams: attempt already submitted")
)

// timeLimitGrace absorbs network latency on the final submit.
const timeLimitGrace = 30 * time.Second

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, e Exam) (int64, error)
	Update(ctx context.Context, e Exam) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Exam, error)
	List(ctx context.Context, publishedOnly bool) ([]Exam, error)
	CreateAttempt(ctx context.Context, examID, userID int64, startedAt time.Time) (int64, error)
	FinishAttempt(ctx context.Context, attemptID int64, answers map[string]int, score int, passed bool, submittedAt time.Time) error
	GetAttempt(ctx context.Context, id int64) (*Attempt, error)
	AttemptsForUser(ctx context.Context, examID, userID int64) ([]Attempt, error)
	AttemptsForExam(ctx context.Context, examID int64) ([]Attempt, error)
	StatsForExam(ctx context.Context, examID int64) (*ExamStats, error)
}

// Notifier reports attempt results to the examinee.
type Notifier interface {
	ExamFinished(ctx context.Context, userID int64, examTitle string, score int, passed bool) error
}

// CertificateIssuer awards a certificate on a first pass. Implemented by the
// certification module.
type CertificateIssuer interface {
	IssueForExam(ctx context.Context, userID, examID int64, examTitle string, score int) error
}

// AuditRecorder persists the administrative audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements exam authoring and attempt grading.
type Service struct {
	store    Store
	notifier Notifier
	issuer   CertificateIssuer
	audit    AuditRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, notifier Notifier, issuer CertificateIssuer, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{store: store, notifier: notifier, issuer: issuer, audit: audit, logger: logger, now: time.Now}
}

// CreateInput carries a new exam definition.
type CreateInput struct {
	Title        string
	Description  string
	Questions    []Question
	PassingScore int
	TimeLimit    time.Duration
	MaxAttempts  int
	Published    bool
	CreatorID    int64
}

// Create validates and stores a new exam.
func (s *Service) Create(ctx context.Context, in CreateInput) (int64, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return 0, errors.New("exams: title required")
	}
	if len(in.Questions) == 0 {
		return 0, errors.New("exams: at least one question required")
	}
	if in.PassingScore <= 0 || in.PassingScore > 100 {
		return 0, errors.New("exams: passing score must be within 1..100")
	}
	id, err := s.store.Create(ctx, Exam{
		Title:        in.Title,
		Description:  in.Description,
		Questions:    in.Questions,
		PassingScore: in.PassingScore,
		TimeLimit:    in.TimeLimit,
		MaxAttempts:  in.MaxAttempts,
		Published:    in.Published,
		CreatorID:    in.CreatorID,
	})
	if err != nil {
		return 0, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  in.CreatorID,
			Action:   "exam.create",
			Entity:   "exam",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"title": in.Title},
		})
	}
	return id, nil
}

// Update rewrites an exam definition.
func (s *Service) Update(ctx context.Context, actorID int64, e Exam) error {
	if err := s.store.Update(ctx, e); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "exam.update",
			Entity:   "exam",
			EntityID: strconv.FormatInt(e.ID, 10),
			Meta:     map[string]any{"title": e.Title},
		})
	}
	return nil
}

// Delete removes an exam.
func (s *Service) Delete(ctx context.Context, actorID, examID int64) error {
	if err := s.store.Delete(ctx, examID); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "exam.delete",
			Entity:   "exam",
			EntityID: strconv.FormatInt(examID, 10),
		})
	}
	return nil
}

// Get returns one exam.
func (s *Service) Get(ctx context.Context, id int64) (*Exam, error) {
	return s.store.GetByID(ctx, id)
}

// List returns exams. Non-authors only see published ones.
func (s *Service) List(ctx context.Context, includeUnpublished bool) ([]Exam, error) {
	return s.store.List(ctx, !includeUnpublished)
}

// Start opens a new attempt, enforcing the attempt cap.
func (s *Service) Start(ctx context.Context, examID, userID int64) (*Attempt, *Exam, error) {
	exam, err := s.store.GetByID(ctx, examID)
	if err != nil {
		return nil, nil, err
	}
	if !exam.Published {
		return nil, nil, shared.ErrNotFound
	}
	previous, err := s.store.AttemptsForUser(ctx, examID, userID)
	if err != nil {
		return nil, nil, err
	}
	// An open attempt is resumed, not duplicated.
	for i := range previous {
		if previous[i].SubmittedAt == nil {
			return &previous[i], exam, nil
		}
	}
	if exam.MaxAttempts > 0 && len(previous) >= exam.MaxAttempts {
		return nil, nil, ErrAttemptsExhausted
	}
	startedAt := s.now().UTC()
	id, err := s.store.CreateAttempt(ctx, examID, userID, startedAt)
	if err != nil {
		return nil, nil, err
	}
	return &Attempt{ID: id, ExamID: examID, UserID: userID, StartedAt: startedAt}, exam, nil
}

// Submit grades an attempt. The time limit is checked server-side against
// the attempt's start.
func (s *Service) Submit(ctx context.Context, attemptID, userID int64, answers map[string]int) (*Attempt, error) {
	attempt, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, shared.ErrForbidden
	}
	if attempt.SubmittedAt != nil {
		return nil, ErrAlreadySubmitted
	}
	exam, err := s.store.GetByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if exam.TimeLimit > 0 && now.Sub(attempt.StartedAt) > exam.TimeLimit+timeLimitGrace {
		return nil, ErrTimeExpired
	}
	score := exam.Grade(answers)
	passed := score >= exam.PassingScore
	if err := s.store.FinishAttempt(ctx, attemptID, answers, score, passed, now); err != nil {
		return nil, err
	}
	attempt.Answers = answers
	attempt.Score = score
	attempt.Passed = passed
	attempt.SubmittedAt = &now

	if s.notifier != nil {
		if err := s.notifier.ExamFinished(ctx, userID, exam.Title, score, passed); err != nil {
			s.logger.Warn("notify exam result", slog.Any("error", err))
		}
	}
	if passed && s.issuer != nil && s.firstPass(ctx, exam.ID, userID, attemptID) {
		if err := s.issuer.IssueForExam(ctx, userID, exam.ID, exam.Title, score); err != nil {
			s.logger.Error("issue certificate", slog.Any("error", err))
		}
	}
	return attempt, nil
}

// Attempts returns a user's history for one exam.
func (s *Service) Attempts(ctx context.Context, examID, userID int64) ([]Attempt, error) {
	return s.store.AttemptsForUser(ctx, examID, userID)
}

// AllAttempts returns every attempt at one exam.
func (s *Service) AllAttempts(ctx context.Context, examID int64) ([]Attempt, error) {
	return s.store.AttemptsForExam(ctx, examID)
}

// Stats returns aggregate results for one exam.
func (s *Service) Stats(ctx context.Context, examID int64) (*ExamStats, error) {
	return s.store.StatsForExam(ctx, examID)
}

// firstPass reports whether no earlier attempt already passed, so a
// certificate is issued exactly once per exam and user.
func (s *Service) firstPass(ctx context.Context, examID, userID, currentAttemptID int64) bool {
	previous, err := s.store.AttemptsForUser(ctx, examID, userID)
	if err != nil {
		s.logger.Warn("check prior passes", slog.Any("error", err))
		return false
	}
	for _, a := range previous {
		if a.ID != currentAttemptID && a.Passed {
			return false
		}
	}
	return true
}
