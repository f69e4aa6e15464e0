package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/tailorflow/tailorflow/internal/dyeing"
	jobmetrics "github.com/tailorflow/tailorflow/internal/jobs"
	"github.com/tailorflow/tailorflow/internal/notify"
)

// Inbox stores notifications for later display.
type Inbox interface {
	Add(ctx context.Context, n notify.Notification) (notify.Notification, error)
}

// ReworkJob turns a dyeing rejection into an inbox entry for the fabricator
// who has to redo the inventory check.
type ReworkJob struct {
	Inbox   Inbox
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskDyeingRework tasks.
func (j *ReworkJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Inbox == nil {
		return errors.New("rework: handler not configured")
	}
	var notice dyeing.ReworkNotice
	if err := json.Unmarshal(t.Payload(), &notice); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskDyeingRework)
	_, err := j.Inbox.Add(ctx, ReworkNotification(notice))
	if err != nil {
		j.logger().Error("store rework notice", slog.String("order_item_id", notice.OrderItemID), slog.Any("error", err))
		return tracker.End(err)
	}
	j.Metrics.AddRework(notice.ReasonCode)
	j.logger().Info("rework notice delivered",
		slog.String("order_item_id", notice.OrderItemID),
		slog.String("recipient", notice.Recipient),
		slog.Int("round", notice.Round),
	)
	return tracker.End(nil)
}

// ReworkNotification renders the inbox entry for a notice. Notices without a
// known fabricator go to the shared inventory inbox.
func ReworkNotification(notice dyeing.ReworkNotice) notify.Notification {
	recipient := notice.Recipient
	if recipient == "" {
		recipient = notify.BroadcastInventory
	}
	body := fmt.Sprintf("%s rejected %s of %s (round %d)",
		notice.RejectedBy, strings.Join(notice.Sections, ", "), notice.OrderNumber, notice.Round)
	if notice.Notes != "" {
		body += ": " + notice.Notes
	}
	return notify.Notification{
		Recipient: recipient,
		Kind:      notify.KindDyeingRework,
		Title:     "Dyeing rework: " + notice.ProductName,
		Body:      body,
		RefID:     notice.OrderItemID,
		CreatedAt: notice.RejectedAt,
	}
}

func (j *ReworkJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
