package onboarding

import "time"

// Material links supporting reading for a program day.
type Material struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// DayTask is a checklist item inside a program day.
type DayTask struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Question is one multiple-choice item of a day's knowledge check. Correct
// is the option index and is stripped before the question reaches a client.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Correct int      `json:"-"`
}

// Day is a single unit of the onboarding program.
type Day struct {
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tasks       []DayTask  `json:"tasks"`
	Questions   []Question `json:"questions"`
	Materials   []Material `json:"materials"`
}

// DayProgress tracks one user's state within a day. It is stored as part of
// the jsonb progress document.
type DayProgress struct {
	CompletedTasks map[string]bool `json:"completedTasks"`
	TestScore      *int            `json:"testScore,omitempty"`
	TestPassed     bool            `json:"testPassed"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
}

// Progress is the full per-user onboarding document.
type Progress struct {
	UserID    int64                `json:"-"`
	Days      map[int]*DayProgress `json:"days"`
	StartedAt time.Time            `json:"startedAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// Achievements summarizes milestones derived from progress. They are
// computed on read, never stored.
type Achievements struct {
	CompletedDays     int  `json:"completedDays"`
	AllTasksCompleted bool `json:"allTasksCompleted"`
	PerfectTests      bool `json:"perfectTests"`
	FastLearner       bool `json:"fastLearner"`
}

func newProgress(userID int64, now time.Time) *Progress {
	return &Progress{
		UserID:    userID,
		Days:      make(map[int]*DayProgress),
		StartedAt: now,
		UpdatedAt: now,
	}
}

func (p *Progress) day(number int) *DayProgress {
	dp, ok := p.Days[number]
	if !ok {
		dp = &DayProgress{CompletedTasks: make(map[string]bool)}
		p.Days[number] = dp
	}
	if dp.CompletedTasks == nil {
		dp.CompletedTasks = make(map[string]bool)
	}
	return dp
}
