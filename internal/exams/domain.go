package exams

import "time"

// Question is one multiple-choice exam item. Correct is the option index
// and never leaves the server.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Correct int      `json:"correct"`
	Points  int      `json:"points"`
}

// Exam is a graded assessment attached to the learning track.
type Exam struct {
	ID           int64
	Title        string
	Description  string
	Questions    []Question
	PassingScore int // percent
	TimeLimit    time.Duration
	MaxAttempts  int // 0 means unlimited
	Published    bool
	CreatorID    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Attempt is one user's run at an exam.
type Attempt struct {
	ID          int64
	ExamID      int64
	UserID      int64
	Answers     map[string]int
	Score       int // percent
	Passed      bool
	StartedAt   time.Time
	SubmittedAt *time.Time
}

// TotalPoints sums question weights, treating zero as one point.
func (e Exam) TotalPoints() int {
	total := 0
	for _, q := range e.Questions {
		total += q.weight()
	}
	return total
}

// Grade scores an answer set against the exam, in percent.
func (e Exam) Grade(answers map[string]int) int {
	total := e.TotalPoints()
	if total == 0 {
		return 0
	}
	earned := 0
	for _, q := range e.Questions {
		if answer, ok := answers[q.ID]; ok && answer == q.Correct {
			earned += q.weight()
		}
	}
	return earned * 100 / total
}

func (q Question) weight() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}
