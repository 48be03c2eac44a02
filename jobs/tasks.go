package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockScan flags products whose stock fell under the threshold.
	TaskLowStockScan = "ledger:low_stock_scan"
	// TaskPaymentsDueScan reports supplier payments left unsettled too long.
	TaskPaymentsDueScan = "ledger:payments_due_scan"
)

// LowStockPayload parametrises a low stock scan.
type LowStockPayload struct {
	Threshold int64 `json:"threshold"`
}

// NewLowStockScanTask constructs an Asynq task.
func NewLowStockScanTask(threshold int64) (*asynq.Task, error) {
	data, err := json.Marshal(LowStockPayload{Threshold: threshold})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}

// PaymentsDuePayload parametrises a payments due scan.
type PaymentsDuePayload struct {
	OlderThanDays int `json:"older_than_days"`
}

// NewPaymentsDueScanTask constructs an Asynq task.
func NewPaymentsDueScanTask(olderThanDays int) (*asynq.Task, error) {
	data, err := json.Marshal(PaymentsDuePayload{OlderThanDays: olderThanDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentsDueScan, data), nil
}
