package tasks

import (
	"fmt"
	"time"
)

// Status is the task workflow state.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusReview     Status = "REVIEW"
	StatusCompleted  Status = "COMPLETED"
	StatusBlocked    Status = "BLOCKED"
)

// Priority orders tasks in listings and drives escalation.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Task is one unit of assigned work.
type Task struct {
	ID          int64
	Title       string
	Description string
	Status      Status
	Priority    Priority
	CreatorID   int64
	AssigneeID  int64
	DueAt       *time.Time
	Escalated   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Comment is a discussion entry under a task.
type Comment struct {
	ID        int64
	TaskID    int64
	AuthorID  int64
	Body      string
	CreatedAt time.Time
}

// Filter narrows task listings.
type Filter struct {
	AssigneeID int64
	CreatorID  int64
	Status     Status
}

// ParseStatus validates a raw workflow state.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusTodo, StatusInProgress, StatusReview, StatusCompleted, StatusBlocked:
		return Status(raw), nil
	}
	return "", fmt.Errorf("tasks: unknown status %q", raw)
}

// ParsePriority validates a raw priority.
func ParsePriority(raw string) (Priority, error) {
	switch Priority(raw) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return Priority(raw), nil
	}
	return "", fmt.Errorf("tasks: unknown priority %q", raw)
}

// transitions lists the allowed workflow moves. Completed is terminal,
// blocked can resume anywhere before review.
var transitions = map[Status][]Status{
	StatusTodo:       {StatusInProgress, StatusBlocked},
	StatusInProgress: {StatusReview, StatusBlocked, StatusTodo},
	StatusReview:     {StatusCompleted, StatusInProgress},
	StatusBlocked:    {StatusTodo, StatusInProgress},
	StatusCompleted:  {},
}

// CanTransition reports whether the workflow allows from -> to.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsOverdue reports whether an open task is past its due date.
func (t Task) IsOverdue(now time.Time) bool {
	return t.DueAt != nil && t.Status != StatusCompleted && now.After(*t.DueAt)
}
