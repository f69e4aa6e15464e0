// Package dispatch ships finished items and closes orders.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tailorflow/tailorflow/internal/orders"
	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/production"
	"github.com/tailorflow/tailorflow/internal/shared"
)

const module = "dispatch"

// ErrNothingToDispatch is returned when an order has no item ready to ship.
var ErrNothingToDispatch = fmt.Errorf("%w: order has no item ready for dispatch", httpx.ErrValidation)

// QueueStatuses are the item statuses shown to dispatch.
var QueueStatuses = []orders.ItemStatus{
	orders.ItemReadyForDispatch,
	orders.ItemDispatched,
}

// DispatchRequest is the body of a dispatch.
type DispatchRequest struct {
	TrackingNumber string `json:"trackingNumber" validate:"required,max=100"`
}

// Service runs dispatch transitions.
type Service struct {
	flow  *production.Workflow
	items production.ItemReader
}

// NewService builds Service.
func NewService(flow *production.Workflow, items production.ItemReader) *Service {
	return &Service{flow: flow, items: items}
}

// Queue lists items ready to ship or awaiting delivery confirmation.
func (s *Service) Queue(ctx context.Context) ([]orders.Item, error) {
	return s.items.ListItems(ctx, orders.ItemFilter{Statuses: QueueStatuses})
}

// Dispatch ships one item.
func (s *Service) Dispatch(ctx context.Context, itemID string, req DispatchRequest, p *shared.Principal) (orders.Item, error) {
	if p == nil {
		return orders.Item{}, httpx.ErrUnauthorized
	}
	tracking := strings.TrimSpace(req.TrackingNumber)
	return s.flow.Item(ctx, module, "dispatch", itemID, func(ctx context.Context, tx production.Tx, item *orders.Item, now time.Time) error {
		return ship(item, tracking, p, now)
	})
}

// DispatchOrder ships every ready item of an order under one tracking number.
func (s *Service) DispatchOrder(ctx context.Context, orderID string, req DispatchRequest, p *shared.Principal) (orders.Order, error) {
	if p == nil {
		return orders.Order{}, httpx.ErrUnauthorized
	}
	tracking := strings.TrimSpace(req.TrackingNumber)
	var out orders.Order
	err := s.flow.Repo.WithTx(ctx, func(ctx context.Context, tx production.Tx) error {
		items, err := tx.ListOrderItems(ctx, orderID)
		if err != nil {
			return err
		}
		now := s.flow.Now()
		shipped := 0
		for i := range items {
			if !items[i].Status.CanDispatch() {
				continue
			}
			if err := ship(&items[i], tracking, p, now); err != nil {
				return err
			}
			items[i].UpdatedAt = now
			if err := tx.UpdateItem(ctx, items[i]); err != nil {
				return err
			}
			shipped++
		}
		if shipped == 0 {
			return ErrNothingToDispatch
		}
		out, err = orders.SyncOrderStatus(ctx, tx, orderID, now)
		return err
	})
	s.flow.Done(ctx, module, "dispatch_order", err)
	if err != nil {
		return orders.Order{}, err
	}
	return out, nil
}

// Complete confirms delivery of a dispatched item.
func (s *Service) Complete(ctx context.Context, itemID string, p *shared.Principal) (orders.Item, error) {
	if p == nil {
		return orders.Item{}, httpx.ErrUnauthorized
	}
	return s.flow.Item(ctx, module, "complete", itemID, func(ctx context.Context, tx production.Tx, item *orders.Item, now time.Time) error {
		if item.Status != orders.ItemDispatched {
			return fmt.Errorf("%w: item is %s", production.ErrItemStatus, item.Status)
		}
		item.Status = orders.ItemCompleted
		item.CompletedAt = &now
		item.AddTimeline("Delivered to customer", p.DisplayName(), now)
		return nil
	})
}

func ship(item *orders.Item, tracking string, p *shared.Principal, now time.Time) error {
	if !item.Status.CanDispatch() {
		return fmt.Errorf("%w: item is %s", production.ErrItemStatus, item.Status)
	}
	if tracking == "" {
		return httpx.FieldErrors{"trackingNumber": "is required"}
	}
	item.Status = orders.ItemDispatched
	item.TrackingNumber = tracking
	at := now
	item.DispatchedAt = &at
	item.AddTimeline("Dispatched with tracking "+tracking, p.DisplayName(), now)
	return nil
}
