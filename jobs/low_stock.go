package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tailorflow/tailorflow/internal/inventory"
	jobmetrics "github.com/tailorflow/tailorflow/internal/jobs"
	"github.com/tailorflow/tailorflow/internal/notify"
)

// LowStockLister reports items at or below their reorder level.
type LowStockLister interface {
	LowStock(ctx context.Context) ([]inventory.Item, error)
}

// LowStockJob publishes the low stock gauge and posts a summary to the
// inventory inbox whenever anything needs reordering.
type LowStockJob struct {
	Inventory LowStockLister
	Inbox     Inbox
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// Handle executes the scan.
func (j *LowStockJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Inventory == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := j.Metrics.Track(TaskLowStockScan)
	items, err := j.Inventory.LowStock(ctx)
	if err != nil {
		j.logger().Error("low stock scan failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.Metrics.SetLowStock(len(items))
	for _, it := range items {
		j.logger().Warn("inventory below reorder level",
			slog.String("sku", it.SKU),
			slog.Float64("remaining", it.RemainingStock),
			slog.Float64("reorder_level", it.ReorderLevel),
		)
	}
	if len(items) == 0 || j.Inbox == nil {
		return tracker.End(nil)
	}
	if _, err := j.Inbox.Add(ctx, LowStockNotification(items, j.now())); err != nil {
		return tracker.End(fmt.Errorf("low stock scan: notify: %w", err))
	}
	return tracker.End(nil)
}

// LowStockNotification summarises the scan for the inventory inbox.
func LowStockNotification(items []inventory.Item, at time.Time) notify.Notification {
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, fmt.Sprintf("%s (%g %s)", it.Name, it.RemainingStock, it.Unit))
	}
	return notify.Notification{
		Recipient: notify.BroadcastInventory,
		Kind:      notify.KindLowStock,
		Title:     fmt.Sprintf("%d items need reordering", len(items)),
		Body:      strings.Join(names, ", "),
		CreatedAt: at,
	}
}

func (j *LowStockJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *LowStockJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
