package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentsDueScanJob reports supplier payments that have sat in DUE longer
// than the configured window.
type PaymentsDueScanJob struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPaymentsDueScanJob constructs the job.
func NewPaymentsDueScanJob(pool *pgxpool.Pool, logger *slog.Logger) *PaymentsDueScanJob {
	return &PaymentsDueScanJob{pool: pool, logger: logger}
}

// Handle processes TaskPaymentsDueScan tasks.
func (j *PaymentsDueScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload PaymentsDuePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	days := payload.OlderThanDays
	if days <= 0 {
		days = 7
	}
	var (
		count int64
		total float64
	)
	err := j.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(amount),0) FROM supplier_payments
WHERE status = 'DUE' AND created_at < NOW() - make_interval(days => $1)`, days).Scan(&count, &total)
	if err != nil {
		return err
	}
	if count > 0 {
		j.logger.Warn("supplier payments overdue",
			slog.Int64("count", count),
			slog.Float64("total_amount", total),
			slog.Int("older_than_days", days))
	} else {
		j.logger.Info("no overdue supplier payments", slog.Int("older_than_days", days))
	}
	return nil
}
