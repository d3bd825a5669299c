package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTransactionsOverdueScan counts pending transactions past their due date.
	TaskTransactionsOverdueScan = "transactions:overdue_scan"
	// TaskTransactionsSeriesScan checks recurring series for structural drift.
	TaskTransactionsSeriesScan = "transactions:series_scan"
)

// OverdueScanPayload configures a single overdue scan run.
type OverdueScanPayload struct {
	// GraceDays widens the cutoff so transactions due within the grace
	// window are not reported yet.
	GraceDays int `json:"grace_days"`
}

// NewOverdueScanTask constructs an Asynq task for the overdue scan.
func NewOverdueScanTask(payload OverdueScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTransactionsOverdueScan, data), nil
}

// SeriesScanPayload configures a single series scan run.
type SeriesScanPayload struct {
	// MaxParents bounds how many series parents a run inspects.
	MaxParents int `json:"max_parents"`
}

// NewSeriesScanTask constructs an Asynq task for the series scan.
func NewSeriesScanTask(payload SeriesScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTransactionsSeriesScan, data), nil
}
