package inventory

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Epsilon is the smallest quantity a movement can carry. Smaller amounts are
// rounding noise.
const Epsilon = 1e-9

// Post applies a movement inside an open transaction: it locks the item,
// updates the moving-average cost on inbound stock, guards against negative
// balances and writes the movement record. Callers from other workflows use
// it so that stock changes commit atomically with their own state.
func Post(ctx context.Context, tx TxRepository, in MovementInput, now time.Time) (Item, Movement, error) {
	if math.IsNaN(in.Delta) || math.IsInf(in.Delta, 0) || math.Abs(in.Delta) < Epsilon {
		return Item{}, Movement{}, ErrInvalidQuantity
	}
	switch in.Type {
	case MovementReserve:
		if in.Delta > 0 {
			return Item{}, Movement{}, errInvalidType
		}
	case MovementRelease, MovementIn:
		if in.Delta < 0 {
			return Item{}, Movement{}, errInvalidType
		}
	case MovementAdjust:
	default:
		return Item{}, Movement{}, fmt.Errorf("inventory: unknown movement type %q", in.Type)
	}

	item, err := tx.GetInventoryForUpdate(ctx, in.InventoryItemID)
	if err != nil {
		return Item{}, Movement{}, err
	}
	newQty := item.RemainingStock + in.Delta
	if newQty < -Epsilon {
		return Item{}, Movement{}, fmt.Errorf("%w: %s has %.2f %s, needs %.2f", ErrNegativeStock, item.Name, item.RemainingStock, item.Unit, -in.Delta)
	}
	if math.Abs(newQty) < Epsilon {
		newQty = 0
	}
	// Receipts move the average cost; reservations and releases keep it.
	if (in.Type == MovementIn || in.Type == MovementAdjust) && in.Delta > 0 && in.UnitCost > 0 && newQty > 0 {
		item.UnitCost = (item.RemainingStock*item.UnitCost + in.Delta*in.UnitCost) / newQty
	}
	item.RemainingStock = newQty
	item.UpdatedAt = now

	mv := Movement{
		ID:              uuid.NewString(),
		InventoryItemID: item.ID,
		Type:            in.Type,
		Delta:           in.Delta,
		BalanceAfter:    newQty,
		Reason:          in.Reason,
		RefModule:       in.RefModule,
		RefID:           in.RefID,
		Actor:           in.Actor,
		At:              now,
	}
	if err := tx.UpdateInventory(ctx, item); err != nil {
		return Item{}, Movement{}, err
	}
	if err := tx.InsertMovement(ctx, mv); err != nil {
		return Item{}, Movement{}, err
	}
	return item, mv, nil
}
