package pgstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailorflow/tailorflow/internal/inventory"
	"github.com/tailorflow/tailorflow/internal/orders"
	"github.com/tailorflow/tailorflow/internal/platform/db"
	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/production"
)

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil, orders.ErrItemNotFound, "item"))
	assert.ErrorIs(t, mapErr(pgx.ErrNoRows, orders.ErrItemNotFound, "item"), httpx.ErrNotFound)
	assert.ErrorIs(t, mapErr(&pgconn.PgError{Code: "23505"}, nil, "sku X"), httpx.ErrDuplicate)
	assert.ErrorIs(t, mapErr(&pgconn.PgError{Code: "40001"}, nil, "item"), httpx.ErrConflict)

	other := errors.New("connection reset")
	err := mapErr(other, nil, "item")
	assert.ErrorIs(t, err, other)
	assert.Contains(t, err.Error(), "pgstore: item")
}

func TestExpectRow(t *testing.T) {
	assert.ErrorIs(t, expectRow(pgconn.NewCommandTag("UPDATE 0"), orders.ErrItemNotFound), httpx.ErrNotFound)
	assert.NoError(t, expectRow(pgconn.NewCommandTag("UPDATE 1"), orders.ErrItemNotFound))
}

// newIntegrationStore connects to TAILORFLOW_TEST_DATABASE_URL.
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TAILORFLOW_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TAILORFLOW_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	store := New(pool)
	require.NoError(t, store.Migrate(ctx))
	return store
}

func TestIntegrationItemRoundTripAndRollback(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	stockID := uuid.NewString()
	orderID := uuid.NewString()
	itemID := uuid.NewString()
	require.NoError(t, store.Inventory().WithTx(ctx, func(ctx context.Context, tx inventory.TxRepository) error {
		return tx.CreateInventory(ctx, inventory.Item{
			ID: stockID, SKU: "IT-" + stockID[:8], Name: "Lawn", Category: inventory.CategoryFabric,
			Unit: "m", RemainingStock: 10, CreatedAt: now, UpdatedAt: now,
		})
	}))

	require.NoError(t, store.Orders().WithTx(ctx, func(ctx context.Context, tx orders.TxRepository) error {
		number, err := tx.NextOrderNumber(ctx)
		if err != nil {
			return err
		}
		return tx.CreateOrder(ctx, orders.Order{
			ID: orderID, OrderNumber: number + "-" + orderID[:4], Status: orders.OrderInProgress, CreatedAt: now,
			Items: []orders.Item{{
				ID: itemID, OrderID: orderID, Status: orders.ItemReadyForDyeing, CreatedAt: now,
				SectionStatuses: map[string]*orders.SectionStatus{
					"shirt": {Status: orders.SectionReadyForDyeing},
				},
			}},
		})
	}))

	got, err := store.Orders().ListItems(ctx, orders.ItemFilter{SectionStates: []orders.SectionState{orders.SectionReadyForDyeing}})
	require.NoError(t, err)
	var found bool
	for _, it := range got {
		if it.ID == itemID {
			found = true
			assert.Equal(t, orders.SectionReadyForDyeing, it.Section("shirt").Status)
		}
	}
	assert.True(t, found)

	boom := errors.New("abort")
	err = store.Production().WithTx(ctx, func(ctx context.Context, tx production.Tx) error {
		if _, _, err := inventory.Post(ctx, tx, inventory.MovementInput{
			InventoryItemID: stockID, Type: inventory.MovementReserve, Delta: -2, Actor: "System",
		}, now); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	stock, err := store.Inventory().GetItem(ctx, stockID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, stock.RemainingStock)

	_, err = store.Orders().GetItem(ctx, uuid.NewString())
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}
