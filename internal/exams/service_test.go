package exams

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pride-academy/academy/internal/shared"
)

type memoryExamStore struct {
	exams    map[int64]Exam
	attempts map[int64]Attempt
	nextID   int64
}

func newMemoryExamStore() *memoryExamStore {
	return &memoryExamStore{
		exams:    make(map[int64]Exam),
		attempts: make(map[int64]Attempt),
	}
}

func (s *memoryExamStore) Create(ctx context.Context, e Exam) (int64, error) {
	s.nextID++
	e.ID = s.nextID
	s.exams[e.ID] = e
	return e.ID, nil
}

func (s *memoryExamStore) Update(ctx context.Context, e Exam) error {
	if _, ok := s.exams[e.ID]; !ok {
		return shared.ErrNotFound
	}
	s.exams[e.ID] = e
	return nil
}

func (s *memoryExamStore) Delete(ctx context.Context, id int64) error {
	if _, ok := s.exams[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.exams, id)
	return nil
}

func (s *memoryExamStore) GetByID(ctx context.Context, id int64) (*Exam, error) {
	e, ok := s.exams[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &e, nil
}

func (s *memoryExamStore) List(ctx context.Context, publishedOnly bool) ([]Exam, error) {
	var out []Exam
	for _, e := range s.exams {
		if publishedOnly && !e.Published {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *memoryExamStore) CreateAttempt(ctx context.Context, examID, userID int64, startedAt time.Time) (int64, error) {
	s.nextID++
	s.attempts[s.nextID] = Attempt{ID: s.nextID, ExamID: examID, UserID: userID, StartedAt: startedAt}
	return s.nextID, nil
}

func (s *memoryExamStore) FinishAttempt(ctx context.Context, attemptID int64, answers map[string]int, score int, passed bool, submittedAt time.Time) error {
	a, ok := s.attempts[attemptID]
	if !ok {
		return shared.ErrNotFound
	}
	if a.SubmittedAt != nil {
		return ErrAlreadySubmitted
	}
	a.Answers = answers
	a.Score = score
	a.Passed = passed
	a.SubmittedAt = &submittedAt
	s.attempts[attemptID] = a
	return nil
}

func (s *memoryExamStore) GetAttempt(ctx context.Context, id int64) (*Attempt, error) {
	a, ok := s.attempts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &a, nil
}

func (s *memoryExamStore) AttemptsForUser(ctx context.Context, examID, userID int64) ([]Attempt, error) {
	var out []Attempt
	for _, a := range s.attempts {
		if a.ExamID == examID && a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memoryExamStore) AttemptsForExam(ctx context.Context, examID int64) ([]Attempt, error) {
	var out []Attempt
	for _, a := range s.attempts {
		if a.ExamID == examID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memoryExamStore) StatsForExam(ctx context.Context, examID int64) (*ExamStats, error) {
	stats := &ExamStats{ExamID: examID}
	for _, a := range s.attempts {
		if a.ExamID != examID || a.SubmittedAt == nil {
			continue
		}
		stats.Attempts++
		if a.Passed {
			stats.Passed++
		}
	}
	return stats, nil
}

type resultLog struct {
	results []bool
}

func (l *resultLog) ExamFinished(ctx context.Context, userID int64, examTitle string, score int, passed bool) error {
	l.results = append(l.results, passed)
	return nil
}

type issuerLog struct {
	issued []int64
}

func (l *issuerLog) IssueForExam(ctx context.Context, userID, examID int64, examTitle string, score int) error {
	l.issued = append(l.issued, userID)
	return nil
}

func newExamService(store Store, notifier Notifier, issuer CertificateIssuer) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, notifier, issuer, nil, logger)
}

func sampleExam(published bool, maxAttempts int, timeLimit time.Duration) Exam {
	return Exam{
		Title: "Вводный экзамен",
		Questions: []Question{
			{ID: "q1", Options: []string{"а", "б"}, Correct: 0, Points: 1},
			{ID: "q2", Options: []string{"а", "б"}, Correct: 1, Points: 1},
			{ID: "q3", Options: []string{"а", "б"}, Correct: 1, Points: 2},
		},
		PassingScore: 70,
		TimeLimit:    timeLimit,
		MaxAttempts:  maxAttempts,
		Published:    published,
		CreatorID:    1,
	}
}

func TestGradeWeightsPoints(t *testing.T) {
	exam := sampleExam(true, 0, 0)

	require.Equal(t, 4, exam.TotalPoints())
	require.Equal(t, 100, exam.Grade(map[string]int{"q1": 0, "q2": 1, "q3": 1}))
	// The two-point question alone earns half the total.
	require.Equal(t, 50, exam.Grade(map[string]int{"q3": 1}))
	require.Equal(t, 25, exam.Grade(map[string]int{"q1": 0}))
	require.Equal(t, 0, exam.Grade(nil))
}

func TestGradeZeroPointsCountAsOne(t *testing.T) {
	exam := Exam{Questions: []Question{
		{ID: "q1", Correct: 0},
		{ID: "q2", Correct: 0},
	}}
	require.Equal(t, 2, exam.TotalPoints())
	require.Equal(t, 50, exam.Grade(map[string]int{"q1": 0}))
}

func TestCreateValidation(t *testing.T) {
	svc := newExamService(newMemoryExamStore(), nil, nil)

	_, err := svc.Create(context.Background(), CreateInput{Title: " ", Questions: sampleExam(true, 0, 0).Questions, PassingScore: 70})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Title: "Экзамен", PassingScore: 70})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Title: "Экзамен", Questions: sampleExam(true, 0, 0).Questions, PassingScore: 120})
	require.Error(t, err)

	id, err := svc.Create(context.Background(), CreateInput{Title: "Экзамен", Questions: sampleExam(true, 0, 0).Questions, PassingScore: 70})
	require.NoError(t, err)
	require.NotZero(t, id)
}

func TestStartUnpublishedLooksMissing(t *testing.T) {
	store := newMemoryExamStore()
	id, err := store.Create(context.Background(), sampleExam(false, 0, 0))
	require.NoError(t, err)
	svc := newExamService(store, nil, nil)

	_, _, err = svc.Start(context.Background(), id, 7)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestStartResumesOpenAttempt(t *testing.T) {
	store := newMemoryExamStore()
	id, err := store.Create(context.Background(), sampleExam(true, 3, 0))
	require.NoError(t, err)
	svc := newExamService(store, nil, nil)

	first, _, err := svc.Start(context.Background(), id, 7)
	require.NoError(t, err)

	second, _, err := svc.Start(context.Background(), id, 7)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, store.attempts, 1)
}

func TestStartEnforcesAttemptCap(t *testing.T) {
	store := newMemoryExamStore()
	id, err := store.Create(context.Background(), sampleExam(true, 2, 0))
	require.NoError(t, err)
	svc := newExamService(store, nil, nil)

	for i := 0; i < 2; i++ {
		attempt, _, err := svc.Start(context.Background(), id, 7)
		require.NoError(t, err)
		_, err = svc.Submit(context.Background(), attempt.ID, 7, nil)
		require.NoError(t, err)
	}

	_, _, err = svc.Start(context.Background(), id, 7)
	require.ErrorIs(t, err, ErrAttemptsExhausted)

	// Another user is unaffected by the cap.
	_, _, err = svc.Start(context.Background(), id, 8)
	require.NoError(t, err)
}

func TestSubmitGradesAndNotifies(t *testing.T) {
	store := newMemoryExamStore()
	id, err := store.Create(context.Background(), sampleExam(true, 0, 0))
	require.NoError(t, err)
	results := &resultLog{}
	svc := newExamService(store, results, nil)

	attempt, _, err := svc.Start(context.Background(), id, 7)
	require.NoError(t, err)

	graded, err := svc.Submit(context.Background(), attempt.ID, 7, map[string]int{"q1": 0, "q2": 1, "q3": 1})
	require.NoError(t, err)
	require.Equal(t, 100, graded.Score)
	require.True(t, graded.Passed)
	require.NotNil(t, graded.SubmittedAt)
	require.Equal(t, []bool{true}, results.results)
}

func TestSubmitOwnershipAndDoubleSubmit(t *testing.T) {
	store := newMemoryExamStore()
	id, err := store.Create(context.Background(), sampleExam(true, 0, 0))
	require.NoError(t, err)
	svc := newExamService(store, nil, nil)

	attempt, _, err := svc.Start(context.Background(), id, 7)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), attempt.ID, 8, nil)
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Submit(context.Background(), attempt.ID, 7, nil)
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), attempt.ID, 7, nil)
	require.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestSubmitEnforcesTimeLimit(t *testing.T) {
	store := newMemoryExamStore()
	id, err := store.Create(context.Background(), sampleExam(true, 0, 10*time.Minute))
	require.NoError(t, err)
	svc := newExamService(store, nil, nil)

	attempt, _, err := svc.Start(context.Background(), id, 7)
	require.NoError(t, err)

	// Pretend the submission arrives long after the deadline plus grace.
	svc.now = func() time.Time { return attempt.StartedAt.Add(11 * time.Minute) }
	_, err = svc.Submit(context.Background(), attempt.ID, 7, map[string]int{"q1": 0})
	require.ErrorIs(t, err, ErrTimeExpired)

	// Within the grace window it still grades.
	svc.now = func() time.Time { return attempt.StartedAt.Add(10*time.Minute + 20*time.Second) }
	graded, err := svc.Submit(context.Background(), attempt.ID, 7, map[string]int{"q1": 0})
	require.NoError(t, err)
	require.Equal(t, 25, graded.Score)
}

func TestCertificateIssuedOnFirstPassOnly(t *testing.T) {
	store := newMemoryExamStore()
	id, err := store.Create(context.Background(), sampleExam(true, 0, 0))
	require.NoError(t, err)
	issuer := &issuerLog{}
	svc := newExamService(store, nil, issuer)

	allCorrect := map[string]int{"q1": 0, "q2": 1, "q3": 1}

	attempt, _, err := svc.Start(context.Background(), id, 7)
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), attempt.ID, 7, allCorrect)
	require.NoError(t, err)
	require.Equal(t, []int64{7}, issuer.issued)

	// A second pass by the same user issues nothing new.
	attempt, _, err = svc.Start(context.Background(), id, 7)
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), attempt.ID, 7, allCorrect)
	require.NoError(t, err)
	require.Equal(t, []int64{7}, issuer.issued)
}

func TestCertificateNotIssuedOnFail(t *testing.T) {
	store := newMemoryExamStore()
	id, err := store.Create(context.Background(), sampleExam(true, 0, 0))
	require.NoError(t, err)
	issuer := &issuerLog{}
	svc := newExamService(store, nil, issuer)

	attempt, _, err := svc.Start(context.Background(), id, 7)
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), attempt.ID, 7, map[string]int{"q1": 0})
	require.NoError(t, err)
	require.Empty(t, issuer.issued)
}

func TestListHidesUnpublished(t *testing.T) {
	store := newMemoryExamStore()
	_, err := store.Create(context.Background(), sampleExam(true, 0, 0))
	require.NoError(t, err)
	_, err = store.Create(context.Background(), sampleExam(false, 0, 0))
	require.NoError(t, err)
	svc := newExamService(store, nil, nil)

	visible, err := svc.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, visible, 1)

	all, err := svc.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, all, 2)
}
