package notifications

import (
	"time"

	"github.com/pride-academy/academy/internal/access"
)

// Type classifies a notification for UI styling.
type Type string

const (
	TypeInfo    Type = "INFO"
	TypeSuccess Type = "SUCCESS"
	TypeWarning Type = "WARNING"
	TypeError   Type = "ERROR"
)

// Notification is one inbox entry. Broadcast entries have no UserID and are
// visible to every user, optionally narrowed to TargetRoles.
type Notification struct {
	ID          int64
	UserID      int64 // 0 for broadcast
	Broadcast   bool
	TargetRoles []access.Role
	Title       string
	Message     string
	Type        Type
	Read        bool
	CreatedAt   time.Time
}

// Event enumerates the platform moments that produce notifications.
type Event string

const (
	EventUserRegistered     Event = "USER_REGISTERED"
	EventUserApproved       Event = "USER_APPROVED"
	EventUserRejected       Event = "USER_REJECTED"
	EventTaskAssigned       Event = "TASK_ASSIGNED"
	EventTaskStatusChanged  Event = "TASK_STATUS_CHANGED"
	EventTaskOverdue        Event = "TASK_OVERDUE"
	EventTaskEscalated      Event = "TASK_ESCALATED"
	EventExamPassed         Event = "EXAM_PASSED"
	EventExamFailed         Event = "EXAM_FAILED"
	EventCertificateIssued  Event = "CERTIFICATE_ISSUED"
	EventOnboardingDayDone  Event = "ONBOARDING_DAY_DONE"
	EventOnboardingComplete Event = "ONBOARDING_COMPLETE"
)
