package production

import (
	"context"

	"github.com/tailorflow/tailorflow/internal/inventory"
	"github.com/tailorflow/tailorflow/internal/orders"
	"github.com/tailorflow/tailorflow/internal/packets"
)

// Tx spans orders, stock and packets so that a workflow transition commits
// its item, inventory and packet effects together.
type Tx interface {
	orders.TxRepository
	inventory.TxRepository
	packets.TxRepository
}

// Repository opens cross-module transactions.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
}

// ItemReader lists items for work queues.
type ItemReader interface {
	ListItems(ctx context.Context, filter orders.ItemFilter) ([]orders.Item, error)
	GetItem(ctx context.Context, id string) (orders.Item, error)
}

// Invalidator drops cached read models after a write.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Recorder counts workflow transitions.
type Recorder interface {
	RecordTransition(module, action string, err error)
}
