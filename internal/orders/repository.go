package orders

import "context"

// RepositoryPort abstracts order persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	// ListOrders returns orders with their items, optionally restricted to one status.
	ListOrders(ctx context.Context, status OrderStatus) ([]Order, error)
	GetOrder(ctx context.Context, id string) (Order, error)
	GetItem(ctx context.Context, id string) (Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]Item, error)
}

// TxRepository is the transactional view of the order store. Reads inside a
// transaction lock the returned rows until commit.
type TxRepository interface {
	GetOrderForUpdate(ctx context.Context, id string) (Order, error)
	GetItemForUpdate(ctx context.Context, id string) (Item, error)
	ListOrderItems(ctx context.Context, orderID string) ([]Item, error)
	CreateOrder(ctx context.Context, order Order) error
	UpdateOrder(ctx context.Context, order Order) error
	UpdateItem(ctx context.Context, item Item) error
	NextOrderNumber(ctx context.Context) (string, error)
}

// Matches reports whether the item satisfies the filter.
func (f ItemFilter) Matches(it Item) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if it.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.SectionStates) > 0 {
		for _, sec := range it.SectionStatuses {
			if sec == nil {
				continue
			}
			for _, st := range f.SectionStates {
				if sec.Status == st {
					return true
				}
			}
		}
		return false
	}
	return true
}
