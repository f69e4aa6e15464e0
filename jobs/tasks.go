package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tailorflow/tailorflow/internal/dyeing"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDyeingRework delivers a dyeing rejection to the fabrication inbox.
	TaskDyeingRework = "dyeing:rework"
	// TaskLowStockScan checks inventory against reorder levels.
	TaskLowStockScan = "inventory:low_stock_scan"
)

// NewReworkTask constructs the rework notification task.
func NewReworkTask(notice dyeing.ReworkNotice) (*asynq.Task, error) {
	data, err := json.Marshal(notice)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDyeingRework, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// LowStockScanPayload carries scheduling metadata.
type LowStockScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs an Asynq task for the low stock scan.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}
