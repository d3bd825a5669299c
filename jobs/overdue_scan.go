package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/carteira-app/carteira/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// OverdueScanJob counts pending transactions past their due date. It only
// observes and reports; overdue is a derived view, so rows are never mutated.
type OverdueScanJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewOverdueScanJob initialises the overdue scan handler.
func NewOverdueScanJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueScanJob {
	return &OverdueScanJob{
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the overdue scan.
func (j *OverdueScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("overdue scan: handler not configured")
	}
	var payload OverdueScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.GraceDays < 0 {
		payload.GraceDays = 0
	}

	start := j.now()
	tracker := j.metrics().Track(TaskTransactionsOverdueScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("grace_days", payload.GraceDays))
	logger.Info("starting overdue scan")

	cutoff := start.AddDate(0, 0, -payload.GraceDays)
	count, oldest, err := j.scan(ctx, cutoff)
	if err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}

	j.metrics().SetOverdue(count)
	if count > 0 {
		logger.Warn("overdue transactions found",
			slog.Int("count", count),
			slog.Time("oldest_due", oldest),
		)
	}
	logger.Info("completed overdue scan",
		slog.Int("count", count),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *OverdueScanJob) scan(ctx context.Context, cutoff time.Time) (int, time.Time, error) {
	if j.Pool == nil {
		return 0, time.Time{}, errors.New("overdue scan: pool not configured")
	}
	var count int
	var oldest *time.Time
	err := j.Pool.QueryRow(ctx, `
		SELECT COUNT(*), MIN(due_date)
		FROM transactions
		WHERE status = 'PENDING' AND due_date < $1 AND deleted_at IS NULL`, cutoff).
		Scan(&count, &oldest)
	if err != nil {
		return 0, time.Time{}, err
	}
	if oldest == nil {
		return count, time.Time{}, nil
	}
	return count, *oldest, nil
}

func (j *OverdueScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTransactionsOverdueScan))
	}
	return slog.Default().With(slog.String("job", TaskTransactionsOverdueScan))
}

func (j *OverdueScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *OverdueScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
