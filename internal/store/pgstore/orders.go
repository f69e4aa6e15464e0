package pgstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tailorflow/tailorflow/internal/orders"
)

const (
	selectItems = `SELECT data FROM order_items`
	itemFilter  = ` WHERE (cardinality($1::text[]) = 0 OR status = ANY($1))
  AND (cardinality($2::text[]) = 0 OR EXISTS (
        SELECT 1 FROM jsonb_each(COALESCE(data->'sectionStatuses', '{}'::jsonb)) s
        WHERE s.value->>'status' = ANY($2)))
ORDER BY created_at, id`
)

// OrdersRepo implements orders.RepositoryPort.
type OrdersRepo struct{ store *Store }

// WithTx runs fn in a transaction.
func (r *OrdersRepo) WithTx(ctx context.Context, fn func(context.Context, orders.TxRepository) error) error {
	return r.store.withTx(ctx, func(tx *txView) error { return fn(ctx, tx) })
}

// ListOrders returns orders newest first.
func (r *OrdersRepo) ListOrders(ctx context.Context, status orders.OrderStatus) ([]orders.Order, error) {
	rows, err := r.store.pool.Query(ctx,
		`SELECT data FROM orders WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC, id`, string(status))
	if err != nil {
		return nil, mapErr(err, nil, "list orders")
	}
	list, err := scanDocs[orders.Order](rows, "order")
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Items, err = listOrderItems(ctx, r.store.pool, list[i].ID, false); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// GetOrder fetches one order with its items.
func (r *OrdersRepo) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	return getOrder(ctx, r.store.pool, id, false)
}

// GetItem fetches one item.
func (r *OrdersRepo) GetItem(ctx context.Context, id string) (orders.Item, error) {
	return getDoc[orders.Item](r.store.pool.QueryRow(ctx, selectItems+` WHERE id = $1`, id), orders.ErrItemNotFound, "order item")
}

// ListItems lists items matching the filter, oldest first.
func (r *OrdersRepo) ListItems(ctx context.Context, filter orders.ItemFilter) ([]orders.Item, error) {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}
	states := make([]string, 0, len(filter.SectionStates))
	for _, s := range filter.SectionStates {
		states = append(states, string(s))
	}
	rows, err := r.store.pool.Query(ctx, selectItems+itemFilter, statuses, states)
	if err != nil {
		return nil, mapErr(err, nil, "list order items")
	}
	return scanDocs[orders.Item](rows, "order item")
}

func getOrder(ctx context.Context, q querier, id string, lock bool) (orders.Order, error) {
	sql := `SELECT data FROM orders WHERE id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	o, err := getDoc[orders.Order](q.QueryRow(ctx, sql, id), orders.ErrOrderNotFound, "order")
	if err != nil {
		return orders.Order{}, err
	}
	if o.Items, err = listOrderItems(ctx, q, id, lock); err != nil {
		return orders.Order{}, err
	}
	return o, nil
}

func listOrderItems(ctx context.Context, q querier, orderID string, lock bool) ([]orders.Item, error) {
	sql := selectItems + ` WHERE order_id = $1 ORDER BY position`
	if lock {
		sql += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, sql, orderID)
	if err != nil {
		return nil, mapErr(err, nil, "list order items")
	}
	items, err := scanDocs[orders.Item](rows, "order item")
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []orders.Item{}
	}
	return items, nil
}

func (t *txView) GetOrderForUpdate(ctx context.Context, id string) (orders.Order, error) {
	return getOrder(ctx, t.q, id, true)
}

func (t *txView) GetItemForUpdate(ctx context.Context, id string) (orders.Item, error) {
	return getDoc[orders.Item](t.q.QueryRow(ctx, selectItems+` WHERE id = $1 FOR UPDATE`, id), orders.ErrItemNotFound, "order item")
}

func (t *txView) ListOrderItems(ctx context.Context, orderID string) ([]orders.Item, error) {
	var exists bool
	if err := t.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
		return nil, mapErr(err, nil, "order")
	}
	if !exists {
		return nil, orders.ErrOrderNotFound
	}
	return listOrderItems(ctx, t.q, orderID, true)
}

func (t *txView) CreateOrder(ctx context.Context, order orders.Order) error {
	head := order.Clone()
	head.Items = nil
	data, err := json.Marshal(head)
	if err != nil {
		return fmt.Errorf("pgstore: encode order: %w", err)
	}
	_, err = t.q.Exec(ctx,
		`INSERT INTO orders (id, order_number, status, created_at, data) VALUES ($1, $2, $3, $4, $5)`,
		order.ID, order.OrderNumber, string(order.Status), order.CreatedAt, data)
	if err != nil {
		return mapErr(err, nil, "order "+order.ID)
	}
	for i, it := range order.Items {
		data, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("pgstore: encode order item: %w", err)
		}
		_, err = t.q.Exec(ctx,
			`INSERT INTO order_items (id, order_id, position, status, created_at, data) VALUES ($1, $2, $3, $4, $5, $6)`,
			it.ID, order.ID, i, string(it.Status), it.CreatedAt, data)
		if err != nil {
			return mapErr(err, nil, "order item "+it.ID)
		}
	}
	return nil
}

func (t *txView) UpdateOrder(ctx context.Context, order orders.Order) error {
	head := order.Clone()
	head.Items = nil
	data, err := json.Marshal(head)
	if err != nil {
		return fmt.Errorf("pgstore: encode order: %w", err)
	}
	tag, err := t.q.Exec(ctx, `UPDATE orders SET status = $2, data = $3 WHERE id = $1`, order.ID, string(order.Status), data)
	if err != nil {
		return mapErr(err, nil, "order "+order.ID)
	}
	return expectRow(tag, orders.ErrOrderNotFound)
}

func (t *txView) UpdateItem(ctx context.Context, item orders.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("pgstore: encode order item: %w", err)
	}
	tag, err := t.q.Exec(ctx, `UPDATE order_items SET status = $2, data = $3 WHERE id = $1`, item.ID, string(item.Status), data)
	if err != nil {
		return mapErr(err, nil, "order item "+item.ID)
	}
	return expectRow(tag, orders.ErrItemNotFound)
}

func (t *txView) NextOrderNumber(ctx context.Context) (string, error) {
	var n int64
	if err := t.q.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&n); err != nil {
		return "", mapErr(err, nil, "order number")
	}
	return fmt.Sprintf("ORD-%05d", n), nil
}
