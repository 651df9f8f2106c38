package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TaskTypeNotificationsCleanup purges old read notifications.
	TaskTypeNotificationsCleanup = "notifications:cleanup"

	// defaultRetentionDays keeps read notifications for a month.
	defaultRetentionDays = 30
)

// NotificationsCleanupPayload carries the retention window in days.
type NotificationsCleanupPayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewNotificationsCleanupTask constructs the nightly cleanup task.
func NewNotificationsCleanupTask(retentionDays int) (*asynq.Task, error) {
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}
	body, err := json.Marshal(NotificationsCleanupPayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotificationsCleanup, body, asynq.Queue(QueueDefault)), nil
}

// NotificationPurger removes read notifications past a retention window.
type NotificationPurger interface {
	PurgeOld(ctx context.Context, retention time.Duration) (int64, error)
}

// NewNotificationsCleanupHandler builds the handler around the
// notification service.
func NewNotificationsCleanupHandler(purger NotificationPurger, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload NotificationsCleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		days := payload.RetentionDays
		if days <= 0 {
			days = defaultRetentionDays
		}
		removed, err := purger.PurgeOld(ctx, time.Duration(days)*24*time.Hour)
		if err != nil {
			logger.Error("notifications cleanup", slog.Any("error", err))
			return err
		}
		logger.Info("notifications cleanup complete", slog.Int64("removed", removed))
		return nil
	}
}
