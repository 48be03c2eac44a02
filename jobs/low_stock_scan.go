package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LowStockScanJob lists LIVE products whose stock is at or under the
// threshold so the back office can reorder before checkouts start failing.
type LowStockScanJob struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewLowStockScanJob constructs the job.
func NewLowStockScanJob(pool *pgxpool.Pool, logger *slog.Logger) *LowStockScanJob {
	return &LowStockScanJob{pool: pool, logger: logger}
}

// Handle processes TaskLowStockScan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LowStockPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	threshold := payload.Threshold
	if threshold <= 0 {
		threshold = 5
	}
	rows, err := j.pool.Query(ctx, `SELECT id, name, stock FROM products WHERE status = 'LIVE' AND stock <= $1 ORDER BY stock ASC`, threshold)
	if err != nil {
		return err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var (
			id    int64
			name  string
			stock int64
		)
		if err := rows.Scan(&id, &name, &stock); err != nil {
			return err
		}
		count++
		j.logger.Warn("low stock",
			slog.Int64("product_id", id),
			slog.String("name", name),
			slog.Int64("stock", stock),
			slog.Int64("threshold", threshold))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	j.logger.Info("low stock scan done", slog.Int("flagged", count))
	return nil
}
