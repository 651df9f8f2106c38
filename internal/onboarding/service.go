package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pride-academy/academy/internal/shared"
)

// Store is the persistence surface the service needs.
type Store interface {
	Get(ctx context.Context, userID int64) (*Progress, error)
	Save(ctx context.Context, p *Progress) error
}

// Notifier announces onboarding milestones.
type Notifier interface {
	OnboardingDayDone(ctx context.Context, userID int64, day int) error
	OnboardingComplete(ctx context.Context, userID int64) error
}

// Service implements the onboarding progression rules: a day completes when
// every task is checked and the knowledge check is passed, the program
// completes when every day is done.
type Service struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{store: store, notifier: notifier, logger: logger, now: time.Now}
}

// ProgressFor loads (or initializes) the caller's progress document.
func (s *Service) ProgressFor(ctx context.Context, userID int64) (*Progress, error) {
	p, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			p = newProgress(userID, s.now().UTC())
			if err := s.store.Save(ctx, p); err != nil {
				return nil, err
			}
			return p, nil
		}
		return nil, err
	}
	return p, nil
}

// ToggleTask flips one checklist item and re-evaluates day completion.
func (s *Service) ToggleTask(ctx context.Context, userID int64, dayNumber int, taskID string) (*Progress, error) {
	day, ok := DayByNumber(dayNumber)
	if !ok {
		return nil, shared.ErrNotFound
	}
	if !dayHasTask(day, taskID) {
		return nil, shared.ErrNotFound
	}
	p, err := s.ProgressFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	dp := p.day(dayNumber)
	dp.CompletedTasks[taskID] = !dp.CompletedTasks[taskID]
	s.evaluateDay(ctx, p, day, dp)
	p.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// TestResult is the outcome of a submitted knowledge check.
type TestResult struct {
	Score   int  `json:"score"`
	Passed  bool `json:"passed"`
	Correct int  `json:"correct"`
	Total   int  `json:"total"`
}

// SubmitTest grades the day's knowledge check. Answers map question id to
// the chosen option index. A missing answer counts as wrong.
func (s *Service) SubmitTest(ctx context.Context, userID int64, dayNumber int, answers map[string]int) (*TestResult, error) {
	day, ok := DayByNumber(dayNumber)
	if !ok {
		return nil, shared.ErrNotFound
	}
	if len(day.Questions) == 0 {
		return nil, fmt.Errorf("onboarding: day %d has no test", dayNumber)
	}
	correct := 0
	for _, q := range day.Questions {
		if answer, ok := answers[q.ID]; ok && answer == q.Correct {
			correct++
		}
	}
	score := correct * 100 / len(day.Questions)
	result := &TestResult{
		Score:   score,
		Passed:  score >= PassThreshold,
		Correct: correct,
		Total:   len(day.Questions),
	}

	p, err := s.ProgressFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	dp := p.day(dayNumber)
	// Keep the best score so a failed retake never downgrades the day.
	if dp.TestScore == nil || score > *dp.TestScore {
		dp.TestScore = &score
	}
	if result.Passed {
		dp.TestPassed = true
	}
	s.evaluateDay(ctx, p, day, dp)
	p.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, p); err != nil {
		return nil, err
	}
	return result, nil
}

// DayCompletion reports the fraction of a day that is done: tasks count
// toward it one by one, the passed test counts as one more item.
func DayCompletion(day Day, dp *DayProgress) float64 {
	total := len(day.Tasks)
	if len(day.Questions) > 0 {
		total++
	}
	if total == 0 {
		return 0
	}
	done := 0
	if dp != nil {
		for _, task := range day.Tasks {
			if dp.CompletedTasks[task.ID] {
				done++
			}
		}
		if len(day.Questions) > 0 && dp.TestPassed {
			done++
		}
	}
	return float64(done) / float64(total)
}

// OverallCompletion averages day completion across the whole program.
func OverallCompletion(p *Progress) float64 {
	if len(Program) == 0 {
		return 0
	}
	var sum float64
	for _, day := range Program {
		sum += DayCompletion(day, p.Days[day.Number])
	}
	return sum / float64(len(Program))
}

// ComputeAchievements derives milestone flags from a progress document.
func ComputeAchievements(p *Progress) Achievements {
	var a Achievements
	allTasks := true
	perfect := true
	var lastCompleted time.Time
	for _, day := range Program {
		dp := p.Days[day.Number]
		if dp == nil {
			allTasks = false
			perfect = false
			continue
		}
		if dayComplete(day, dp) {
			a.CompletedDays++
			if dp.CompletedAt != nil && dp.CompletedAt.After(lastCompleted) {
				lastCompleted = *dp.CompletedAt
			}
		}
		for _, task := range day.Tasks {
			if !dp.CompletedTasks[task.ID] {
				allTasks = false
			}
		}
		if dp.TestScore == nil || *dp.TestScore < 100 {
			perfect = false
		}
	}
	a.AllTasksCompleted = allTasks && a.CompletedDays == len(Program)
	a.PerfectTests = perfect && a.CompletedDays == len(Program)
	if a.CompletedDays == len(Program) && !lastCompleted.IsZero() {
		a.FastLearner = lastCompleted.Sub(p.StartedAt) <= fastLearnerDays*24*time.Hour
	}
	return a
}

// evaluateDay stamps completion and fires milestone notifications. A day
// already marked complete stays complete.
func (s *Service) evaluateDay(ctx context.Context, p *Progress, day Day, dp *DayProgress) {
	if dp.CompletedAt != nil || !dayComplete(day, dp) {
		return
	}
	now := s.now().UTC()
	dp.CompletedAt = &now
	if s.notifier == nil {
		return
	}
	if err := s.notifier.OnboardingDayDone(ctx, p.UserID, day.Number); err != nil {
		s.logger.Warn("notify day done", slog.Any("error", err))
	}
	if programComplete(p) {
		if err := s.notifier.OnboardingComplete(ctx, p.UserID); err != nil {
			s.logger.Warn("notify onboarding complete", slog.Any("error", err))
		}
	}
}

func dayComplete(day Day, dp *DayProgress) bool {
	if dp == nil {
		return false
	}
	for _, task := range day.Tasks {
		if !dp.CompletedTasks[task.ID] {
			return false
		}
	}
	if len(day.Questions) > 0 && !dp.TestPassed {
		return false
	}
	return true
}

func programComplete(p *Progress) bool {
	for _, day := range Program {
		if !dayComplete(day, p.Days[day.Number]) {
			return false
		}
	}
	return true
}

func dayHasTask(day Day, taskID string) bool {
	for _, task := range day.Tasks {
		if task.ID == taskID {
			return true
		}
	}
	return false
}
