package orders

import (
	"context"
	"time"
)

// SyncOrderStatus re-rolls the order status from its items inside the
// caller's transaction and persists it when it changed.
func SyncOrderStatus(ctx context.Context, tx TxRepository, orderID string, now time.Time) (Order, error) {
	order, err := tx.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	items, err := tx.ListOrderItems(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	next := RollupOrderStatus(items, order.Status)
	order.Items = items
	if next == order.Status {
		return order, nil
	}
	order.Status = next
	order.UpdatedAt = now
	if err := tx.UpdateOrder(ctx, order); err != nil {
		return Order{}, err
	}
	return order, nil
}
