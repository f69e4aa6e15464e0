package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/tailorflow/tailorflow/internal/inventory"
)

const selectInventory = `SELECT id, sku, name, category, unit, remaining_stock, reorder_level, unit_cost, created_at, updated_at FROM inventory_items`

// InventoryRepo implements inventory.RepositoryPort.
type InventoryRepo struct{ store *Store }

// WithTx runs fn in a transaction.
func (r *InventoryRepo) WithTx(ctx context.Context, fn func(context.Context, inventory.TxRepository) error) error {
	return r.store.withTx(ctx, func(tx *txView) error { return fn(ctx, tx) })
}

// ListItems returns all stock items.
func (r *InventoryRepo) ListItems(ctx context.Context) ([]inventory.Item, error) {
	rows, err := r.store.pool.Query(ctx, selectInventory+` ORDER BY name`)
	if err != nil {
		return nil, mapErr(err, nil, "list inventory")
	}
	defer rows.Close()
	var out []inventory.Item
	for rows.Next() {
		it, err := scanInventory(rows)
		if err != nil {
			return nil, mapErr(err, nil, "inventory item")
		}
		out = append(out, it)
	}
	return out, mapErr(rows.Err(), nil, "list inventory")
}

// GetItem fetches one stock item.
func (r *InventoryRepo) GetItem(ctx context.Context, id string) (inventory.Item, error) {
	it, err := scanInventory(r.store.pool.QueryRow(ctx, selectInventory+` WHERE id = $1`, id))
	return it, mapErr(err, inventory.ErrItemNotFound, "inventory item")
}

// ListMovements returns the latest movements of an item, newest first.
func (r *InventoryRepo) ListMovements(ctx context.Context, itemID string, limit int) ([]inventory.Movement, error) {
	rows, err := r.store.pool.Query(ctx,
		`SELECT id, inventory_item_id, type, delta, balance_after, reason, ref_module, ref_id, actor, at
FROM inventory_movements WHERE inventory_item_id = $1 ORDER BY seq DESC LIMIT $2`, itemID, limit)
	if err != nil {
		return nil, mapErr(err, nil, "list movements")
	}
	defer rows.Close()
	var out []inventory.Movement
	for rows.Next() {
		var (
			m   inventory.Movement
			typ string
		)
		if err := rows.Scan(&m.ID, &m.InventoryItemID, &typ, &m.Delta, &m.BalanceAfter, &m.Reason, &m.RefModule, &m.RefID, &m.Actor, &m.At); err != nil {
			return nil, mapErr(err, nil, "movement")
		}
		m.Type = inventory.MovementType(typ)
		out = append(out, m)
	}
	return out, mapErr(rows.Err(), nil, "list movements")
}

func scanInventory(row pgx.Row) (inventory.Item, error) {
	var (
		it       inventory.Item
		category string
	)
	err := row.Scan(&it.ID, &it.SKU, &it.Name, &category, &it.Unit, &it.RemainingStock, &it.ReorderLevel, &it.UnitCost, &it.CreatedAt, &it.UpdatedAt)
	it.Category = inventory.Category(category)
	return it, err
}

func (t *txView) GetInventoryForUpdate(ctx context.Context, id string) (inventory.Item, error) {
	it, err := scanInventory(t.q.QueryRow(ctx, selectInventory+` WHERE id = $1 FOR UPDATE`, id))
	return it, mapErr(err, inventory.ErrItemNotFound, "inventory item")
}

func (t *txView) CreateInventory(ctx context.Context, item inventory.Item) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO inventory_items (id, sku, name, category, unit, remaining_stock, reorder_level, unit_cost, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		item.ID, item.SKU, item.Name, string(item.Category), item.Unit, item.RemainingStock, item.ReorderLevel, item.UnitCost, item.CreatedAt, item.UpdatedAt)
	return mapErr(err, nil, "inventory sku "+item.SKU)
}

func (t *txView) UpdateInventory(ctx context.Context, item inventory.Item) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE inventory_items SET sku = $2, name = $3, category = $4, unit = $5, remaining_stock = $6,
reorder_level = $7, unit_cost = $8, updated_at = $9 WHERE id = $1`,
		item.ID, item.SKU, item.Name, string(item.Category), item.Unit, item.RemainingStock, item.ReorderLevel, item.UnitCost, item.UpdatedAt)
	if err != nil {
		return mapErr(err, nil, "inventory item "+item.ID)
	}
	return expectRow(tag, inventory.ErrItemNotFound)
}

func (t *txView) InsertMovement(ctx context.Context, m inventory.Movement) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO inventory_movements (id, inventory_item_id, type, delta, balance_after, reason, ref_module, ref_id, actor, at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.InventoryItemID, string(m.Type), m.Delta, m.BalanceAfter, m.Reason, m.RefModule, m.RefID, m.Actor, m.At)
	return mapErr(err, nil, "movement "+m.ID)
}
