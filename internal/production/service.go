package production

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tailorflow/tailorflow/internal/orders"
	"github.com/tailorflow/tailorflow/internal/packets"
	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/shared"
)

const module = "production"

// QueueStatuses are the item statuses shown on the stitching floor.
var QueueStatuses = []orders.ItemStatus{
	orders.ItemReceived,
	orders.ItemDyeingCompleted,
	orders.ItemReadyForProduction,
	orders.ItemInProduction,
	orders.ItemQARejected,
}

// Service runs stitching transitions and order cancellation.
type Service struct {
	flow  *Workflow
	items ItemReader
}

// NewService builds Service.
func NewService(flow *Workflow, items ItemReader) *Service {
	return &Service{flow: flow, items: items}
}

// Queue lists items waiting for or in stitching.
func (s *Service) Queue(ctx context.Context) ([]orders.Item, error) {
	return s.items.ListItems(ctx, orders.ItemFilter{Statuses: QueueStatuses})
}

// Start moves an item into stitching.
func (s *Service) Start(ctx context.Context, itemID string, actor *shared.Principal) (orders.Item, error) {
	if actor == nil {
		return orders.Item{}, httpx.ErrUnauthorized
	}
	return s.flow.Item(ctx, module, "start", itemID, func(ctx context.Context, tx Tx, item *orders.Item, now time.Time) error {
		if !item.Status.CanStartProduction() {
			return fmt.Errorf("%w: item is %s", ErrItemStatus, item.Status)
		}
		rework := item.Status == orders.ItemQARejected
		item.Status = orders.ItemInProduction
		item.ProductionStartedAt = &now
		item.ProductionCompletedAt = nil
		if rework {
			item.AddTimeline("Production rework started", actor.DisplayName(), now)
		} else {
			item.AddTimeline("Production started", actor.DisplayName(), now)
		}
		return nil
	})
}

// Complete finishes stitching and hands the item to QA.
func (s *Service) Complete(ctx context.Context, itemID string, actor *shared.Principal) (orders.Item, error) {
	if actor == nil {
		return orders.Item{}, httpx.ErrUnauthorized
	}
	return s.flow.Item(ctx, module, "complete", itemID, func(ctx context.Context, tx Tx, item *orders.Item, now time.Time) error {
		if item.Status != orders.ItemInProduction {
			return fmt.Errorf("%w: item is %s", ErrItemStatus, item.Status)
		}
		item.Status = orders.ItemProductionCompleted
		item.ProductionCompletedAt = &now
		item.AddTimeline("Production completed", actor.DisplayName(), now)
		return nil
	})
}

// CancelOrder cancels an order, releasing every reservation of its items and
// invalidating their packets in the same transaction.
func (s *Service) CancelOrder(ctx context.Context, orderID, reason string, actor *shared.Principal) (orders.Order, error) {
	if actor == nil {
		return orders.Order{}, httpx.ErrUnauthorized
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return orders.Order{}, fmt.Errorf("%w: cancellation reason required", httpx.ErrValidation)
	}
	var out orders.Order
	err := s.flow.Repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanCancel() {
			return orders.ErrCannotCancel
		}
		items, err := tx.ListOrderItems(ctx, orderID)
		if err != nil {
			return err
		}
		now := s.flow.Now()
		for i := range items {
			if err := cancelItem(ctx, tx, &items[i], reason, actor, now); err != nil {
				return err
			}
		}
		order.Status = orders.OrderCancelled
		order.CancelReason = reason
		order.UpdatedAt = now
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return err
		}
		order.Items = items
		out = order
		return nil
	})
	s.flow.Done(ctx, module, "cancel_order", err)
	if err != nil {
		return orders.Order{}, err
	}
	return out, nil
}

func cancelItem(ctx context.Context, tx Tx, item *orders.Item, reason string, actor *shared.Principal, now time.Time) error {
	if item.Status.IsClosed() {
		return nil
	}
	released := 0
	for _, name := range item.Sections() {
		moves, err := ReleaseSection(ctx, tx, item, name, "Order "+item.OrderNumber+" cancelled", now)
		if err != nil {
			return err
		}
		released += len(moves)
	}
	if _, err := packets.InvalidateAll(ctx, tx, item.ID, now); err != nil {
		return err
	}
	item.Status = orders.ItemCancelled
	item.AddTimeline("Order cancelled: "+reason, actor.DisplayName(), now)
	if released > 0 {
		item.AddTimeline("Reserved materials released to inventory", shared.SystemActor, now)
	}
	item.UpdatedAt = now
	return tx.UpdateItem(ctx, *item)
}
