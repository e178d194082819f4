package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInvoiceDueRefresh rolls invoice due statuses forward.
	TaskInvoiceDueRefresh = "invoices:refresh-due"
	// TaskWeekSubmittedNotify tells reviewers a week awaits them.
	TaskWeekSubmittedNotify = "closings:notify-submitted"
)

// DueRefresher advances invoice payment states based on the clock.
type DueRefresher interface {
	RefreshDueStatuses(ctx context.Context) (int64, error)
}

// NewInvoiceDueRefreshTask constructs the nightly refresh task. It
// carries no payload.
func NewInvoiceDueRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskInvoiceDueRefresh, nil)
}

// HandleInvoiceDueRefresh returns the handler for TaskInvoiceDueRefresh.
func HandleInvoiceDueRefresh(refresher DueRefresher, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		changed, err := refresher.RefreshDueStatuses(ctx)
		if err != nil {
			return err
		}
		logger.Info("invoice due refresh", slog.Int64("changed", changed))
		return nil
	}
}

// WeekSubmittedPayload identifies the submitted worker-week.
type WeekSubmittedPayload struct {
	ClosingID  string `json:"closing_id"`
	WorkerName string `json:"worker_name"`
	Week       string `json:"week"`
}

// NewWeekSubmittedTask constructs a reviewer notification task.
func NewWeekSubmittedTask(payload WeekSubmittedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWeekSubmittedNotify, data), nil
}

// HandleWeekSubmitted returns the handler for TaskWeekSubmittedNotify.
// Delivery is a log line until a mail transport lands.
func HandleWeekSubmitted(logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload WeekSubmittedPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		logger.Info("week submitted",
			slog.String("closing_id", payload.ClosingID),
			slog.String("worker", payload.WorkerName),
			slog.String("week", payload.Week))
		return nil
	}
}
