package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/tailorflow/tailorflow/internal/jobs"
	"github.com/tailorflow/tailorflow/jobs"
)

// WorkerDeps are the services background jobs act on.
type WorkerDeps struct {
	Config    *Config
	Logger    *slog.Logger
	Inventory jobs.LowStockLister
	Inbox     jobs.Inbox
	Metrics   *jobmetrics.Metrics
}

// NewWorker registers the rework and low stock handlers plus the low stock cron.
func NewWorker(deps WorkerDeps) (*jobs.Worker, error) {
	cfg := deps.Config
	scanTask, err := jobs.NewLowStockScanTask(time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("app: build low stock task: %w", err)
	}
	rework := &jobs.ReworkJob{Inbox: deps.Inbox, Logger: deps.Logger, Metrics: deps.Metrics}
	lowStock := &jobs.LowStockJob{Inventory: deps.Inventory, Inbox: deps.Inbox, Logger: deps.Logger, Metrics: deps.Metrics}

	var cron []jobs.CronRegistration
	if cfg.LowStockCron != "" {
		cron = append(cron, jobs.CronRegistration{Spec: cfg.LowStockCron, Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}})
	}
	return jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      deps.Logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDyeingRework, Handler: rework.Handle},
			{Type: jobs.TaskLowStockScan, Handler: lowStock.Handle},
		},
		Cron: cron,
	})
}
