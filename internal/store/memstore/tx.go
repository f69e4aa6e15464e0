package memstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/tailorflow/tailorflow/internal/inventory"
	"github.com/tailorflow/tailorflow/internal/orders"
	"github.com/tailorflow/tailorflow/internal/packets"
	"github.com/tailorflow/tailorflow/internal/platform/httpx"
)

// txView exposes the working copy of a transaction to every module port.
type txView struct {
	st *state
}

func (t *txView) GetOrderForUpdate(ctx context.Context, id string) (orders.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return t.st.orderWithItems(o), nil
}

func (t *txView) GetItemForUpdate(ctx context.Context, id string) (orders.Item, error) {
	it, ok := t.st.items[id]
	if !ok {
		return orders.Item{}, orders.ErrItemNotFound
	}
	return it.Clone(), nil
}

func (t *txView) ListOrderItems(ctx context.Context, orderID string) ([]orders.Item, error) {
	if _, ok := t.st.orders[orderID]; !ok {
		return nil, orders.ErrOrderNotFound
	}
	ids := t.st.orderItems[orderID]
	out := make([]orders.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.st.items[id].Clone())
	}
	return out, nil
}

func (t *txView) CreateOrder(ctx context.Context, order orders.Order) error {
	if _, ok := t.st.orders[order.ID]; ok {
		return fmt.Errorf("order %s: %w", order.ID, httpx.ErrDuplicate)
	}
	head := order.Clone()
	head.Items = nil
	t.st.orders[order.ID] = head
	ids := make([]string, 0, len(order.Items))
	for _, it := range order.Items {
		t.st.items[it.ID] = it.Clone()
		ids = append(ids, it.ID)
	}
	t.st.orderItems[order.ID] = ids
	return nil
}

func (t *txView) UpdateOrder(ctx context.Context, order orders.Order) error {
	if _, ok := t.st.orders[order.ID]; !ok {
		return orders.ErrOrderNotFound
	}
	head := order.Clone()
	head.Items = nil
	t.st.orders[order.ID] = head
	return nil
}

func (t *txView) UpdateItem(ctx context.Context, item orders.Item) error {
	if _, ok := t.st.items[item.ID]; !ok {
		return orders.ErrItemNotFound
	}
	t.st.items[item.ID] = item.Clone()
	return nil
}

func (t *txView) NextOrderNumber(ctx context.Context) (string, error) {
	t.st.orderSeq++
	return fmt.Sprintf("ORD-%05d", t.st.orderSeq), nil
}

func (t *txView) GetInventoryForUpdate(ctx context.Context, id string) (inventory.Item, error) {
	it, ok := t.st.inventory[id]
	if !ok {
		return inventory.Item{}, inventory.ErrItemNotFound
	}
	return it, nil
}

func (t *txView) CreateInventory(ctx context.Context, item inventory.Item) error {
	for _, existing := range t.st.inventory {
		if strings.EqualFold(existing.SKU, item.SKU) {
			return fmt.Errorf("inventory sku %s: %w", item.SKU, httpx.ErrDuplicate)
		}
	}
	t.st.inventory[item.ID] = item
	return nil
}

func (t *txView) UpdateInventory(ctx context.Context, item inventory.Item) error {
	if _, ok := t.st.inventory[item.ID]; !ok {
		return inventory.ErrItemNotFound
	}
	t.st.inventory[item.ID] = item
	return nil
}

func (t *txView) InsertMovement(ctx context.Context, m inventory.Movement) error {
	t.st.movements = append(t.st.movements, m)
	return nil
}

func (t *txView) GetPacketForUpdate(ctx context.Context, id string) (packets.Packet, error) {
	p, ok := t.st.packets[id]
	if !ok {
		return packets.Packet{}, packets.ErrPacketNotFound
	}
	return p.Clone(), nil
}

func (t *txView) ListItemPacketsForUpdate(ctx context.Context, orderItemID string) ([]packets.Packet, error) {
	return t.st.itemPackets(orderItemID), nil
}

func (t *txView) CreatePacket(ctx context.Context, p packets.Packet) error {
	if _, ok := t.st.packets[p.ID]; ok {
		return fmt.Errorf("packet %s: %w", p.ID, httpx.ErrDuplicate)
	}
	t.st.packets[p.ID] = p.Clone()
	return nil
}

func (t *txView) UpdatePacket(ctx context.Context, p packets.Packet) error {
	if _, ok := t.st.packets[p.ID]; !ok {
		return packets.ErrPacketNotFound
	}
	t.st.packets[p.ID] = p.Clone()
	return nil
}
