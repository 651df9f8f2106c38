package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TaskTypeOverdueScan triggers the periodic overdue task sweep.
	TaskTypeOverdueScan = "tasks:overdue_scan"
)

// OverdueScanPayload carries scheduling metadata.
type OverdueScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewOverdueScanTask constructs the periodic scan task.
func NewOverdueScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(OverdueScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeOverdueScan, body, asynq.Queue(QueueDefault)), nil
}

// OverdueScanner sweeps open tasks past their due date.
type OverdueScanner interface {
	ScanOverdue(ctx context.Context) (int, error)
}

// NewOverdueScanHandler builds the handler around the task service.
func NewOverdueScanHandler(scanner OverdueScanner, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload OverdueScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		flagged, err := scanner.ScanOverdue(ctx)
		if err != nil {
			logger.Error("overdue scan", slog.Any("error", err))
			return err
		}
		if flagged > 0 {
			logger.Info("overdue scan complete", slog.Int("flagged", flagged))
		}
		return nil
	}
}
