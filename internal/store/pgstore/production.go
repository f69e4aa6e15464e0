package pgstore

import (
	"context"

	"github.com/tailorflow/tailorflow/internal/auth"
	"github.com/tailorflow/tailorflow/internal/inventory"
	"github.com/tailorflow/tailorflow/internal/orders"
	"github.com/tailorflow/tailorflow/internal/packets"
	"github.com/tailorflow/tailorflow/internal/production"
	"github.com/tailorflow/tailorflow/internal/products"
	"github.com/tailorflow/tailorflow/internal/users"
)

// txView exposes one database transaction to every module port.
type txView struct {
	q querier
}

// ProductionRepo implements production.Repository.
type ProductionRepo struct{ store *Store }

// WithTx runs fn in a transaction spanning orders, stock and packets.
func (r *ProductionRepo) WithTx(ctx context.Context, fn func(context.Context, production.Tx) error) error {
	return r.store.withTx(ctx, func(tx *txView) error { return fn(ctx, tx) })
}

var (
	_ orders.RepositoryPort    = (*OrdersRepo)(nil)
	_ inventory.RepositoryPort = (*InventoryRepo)(nil)
	_ packets.RepositoryPort   = (*PacketsRepo)(nil)
	_ products.RepositoryPort  = (*ProductsRepo)(nil)
	_ production.Repository    = (*ProductionRepo)(nil)
	_ auth.Repository          = (*UsersRepo)(nil)
	_ users.RepositoryPort     = (*UsersRepo)(nil)
	_ production.Tx            = (*txView)(nil)
)
