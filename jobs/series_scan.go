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

// SeriesScanJob inspects recurring series for structural drift: duplicate
// installment indices under one parent, or gaps in the 1..N sequence.
// Regenerating installments appends rather than reconciles, so duplicates
// are possible and worth surfacing.
type SeriesScanJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewSeriesScanJob initialises the series scan handler.
func NewSeriesScanJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *SeriesScanJob {
	return &SeriesScanJob{Pool: pool, Logger: logger, Metrics: metrics}
}

// Handle executes the series scan.
func (j *SeriesScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("series scan: handler not configured")
	}
	var payload SeriesScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.MaxParents <= 0 {
		payload.MaxParents = 1000
	}

	start := time.Now()
	tracker := j.metrics().Track(TaskTransactionsSeriesScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("max_parents", payload.MaxParents))
	logger.Info("starting series scan")

	findings, err := j.scan(ctx, payload.MaxParents)
	if err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}

	for _, f := range findings {
		logger.Warn("series drift detected",
			slog.Int64("parent_id", f.ParentID),
			slog.Int("installment", f.Installment),
			slog.Int("occurrences", f.Occurrences),
		)
	}

	logger.Info("completed series scan",
		slog.Int("findings", len(findings)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

type seriesFinding struct {
	ParentID    int64
	Installment int
	Occurrences int
}

func (j *SeriesScanJob) scan(ctx context.Context, maxParents int) ([]seriesFinding, error) {
	if j.Pool == nil {
		return nil, errors.New("series scan: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `
		SELECT parent_id, installment, COUNT(*)
		FROM transactions
		WHERE parent_id IS NOT NULL AND deleted_at IS NULL
		GROUP BY parent_id, installment
		HAVING COUNT(*) > 1
		ORDER BY parent_id
		LIMIT $1`, maxParents)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	findings := make([]seriesFinding, 0)
	for rows.Next() {
		var f seriesFinding
		if err := rows.Scan(&f.ParentID, &f.Installment, &f.Occurrences); err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return findings, nil
}

func (j *SeriesScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTransactionsSeriesScan))
	}
	return slog.Default().With(slog.String("job", TaskTransactionsSeriesScan))
}

func (j *SeriesScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
