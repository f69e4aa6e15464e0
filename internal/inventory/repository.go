package inventory

import "context"

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListItems(ctx context.Context) ([]Item, error)
	GetItem(ctx context.Context, id string) (Item, error)
	ListMovements(ctx context.Context, itemID string, limit int) ([]Movement, error)
}

// TxRepository is the transactional view of the stock store.
type TxRepository interface {
	GetInventoryForUpdate(ctx context.Context, id string) (Item, error)
	CreateInventory(ctx context.Context, item Item) error
	UpdateInventory(ctx context.Context, item Item) error
	InsertMovement(ctx context.Context, m Movement) error
}
