package fabrication_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailorflow/tailorflow/internal/fabrication"
	"github.com/tailorflow/tailorflow/internal/inventory"
	"github.com/tailorflow/tailorflow/internal/orders"
	"github.com/tailorflow/tailorflow/internal/packets"
	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/production"
	"github.com/tailorflow/tailorflow/internal/shared"
	"github.com/tailorflow/tailorflow/internal/store/memstore"
)

var cutter = &shared.Principal{UserID: "u-fab", Name: "Nadia", Permissions: shared.FabricationScopes()}

func setup(t *testing.T, item orders.Item, stock map[string]float64) (*memstore.Store, *fabrication.Service) {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	require.NoError(t, store.Inventory().WithTx(ctx, func(ctx context.Context, tx inventory.TxRepository) error {
		for id, qty := range stock {
			if err := tx.CreateInventory(ctx, inventory.Item{ID: id, SKU: "SKU-" + id, Name: id, Category: inventory.CategoryFabric, Unit: "m", RemainingStock: qty}); err != nil {
				return err
			}
		}
		return nil
	}))
	item.OrderID = "order-1"
	item.OrderNumber = "ORD-00001"
	require.NoError(t, store.Orders().WithTx(ctx, func(ctx context.Context, tx orders.TxRepository) error {
		return tx.CreateOrder(ctx, orders.Order{ID: "order-1", OrderNumber: "ORD-00001", Status: orders.OrderPending, Items: []orders.Item{item}})
	}))
	flow := production.NewWorkflow(store.Production(), nil, nil, nil)
	return store, fabrication.NewService(flow, store.Orders())
}

func bespoke() orders.Item {
	return orders.Item{ID: "item-1", ProductName: "Bridal lehenga", IsCustomSize: true, Quantity: 1, Status: orders.ItemFabricationBespoke}
}

func sectioned() orders.Item {
	it := orders.Item{
		ID:          "item-1",
		ProductName: "Lawn suit",
		Quantity:    1,
		SectionStatuses: map[string]*orders.SectionStatus{
			"shirt":   {Status: orders.SectionPendingInventoryCheck},
			"dupatta": {Status: orders.SectionPendingInventoryCheck},
		},
		MaterialRequirements: []orders.MaterialRequirement{
			{InventoryItemID: "lawn", Name: "Lawn", Section: "shirt", Quantity: 2, Unit: "m"},
			{InventoryItemID: "lawn", Name: "Lawn", Section: "shirt", Quantity: 0.5, Unit: "m"},
			{InventoryItemID: "chiffon", Name: "Chiffon", Section: "dupatta", Quantity: 2.5, Unit: "m"},
		},
	}
	it.Rederive()
	return it
}

func TestSubmitBOMOpensSections(t *testing.T) {
	_, svc := setup(t, bespoke(), map[string]float64{"silk": 20, "lining": 5})

	item, err := svc.SubmitBOM(context.Background(), "item-1", fabrication.BOMRequest{Items: []orders.MaterialRequirement{
		{InventoryItemID: "silk", Section: "Lehenga", Quantity: 6},
		{InventoryItemID: "lining", Section: "lehenga", Quantity: 3},
		{InventoryItemID: "silk", Section: "Choli", Quantity: 1.5},
	}}, cutter)
	require.NoError(t, err)

	assert.Equal(t, orders.ItemInventoryCheck, item.Status)
	assert.Equal(t, []string{"choli", "lehenga"}, item.Sections())
	require.NotNil(t, item.CustomBOM)
	assert.Equal(t, "Nadia", item.CustomBOM.SubmittedBy)
	assert.Equal(t, "silk", item.MaterialRequirements[0].Name)
	assert.Equal(t, "m", item.MaterialRequirements[0].Unit)
	assert.Equal(t, "u-fab", item.FabricationAssignee)
}

func TestSubmitBOMRequiresBespokeItem(t *testing.T) {
	_, svc := setup(t, sectioned(), map[string]float64{"lawn": 10})
	_, err := svc.SubmitBOM(context.Background(), "item-1", fabrication.BOMRequest{Items: []orders.MaterialRequirement{
		{InventoryItemID: "lawn", Section: "shirt", Quantity: 1},
	}}, cutter)
	assert.ErrorIs(t, err, production.ErrItemStatus)
}

func TestSubmitBOMUnknownMaterial(t *testing.T) {
	_, svc := setup(t, bespoke(), nil)
	_, err := svc.SubmitBOM(context.Background(), "item-1", fabrication.BOMRequest{Items: []orders.MaterialRequirement{
		{InventoryItemID: "ghost", Section: "shirt", Quantity: 1},
	}}, cutter)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestCheckInventoryReservesAndBuildsPacket(t *testing.T) {
	store, svc := setup(t, sectioned(), map[string]float64{"lawn": 10, "chiffon": 1})
	ctx := context.Background()

	res, err := svc.CheckInventory(ctx, "item-1", fabrication.CheckRequest{}, cutter)
	require.NoError(t, err)

	shirt := res.Item.Section("shirt")
	assert.Equal(t, orders.SectionReadyForDyeing, shirt.Status)
	assert.Equal(t, []orders.ReservedMaterial{{InventoryItemID: "lawn", Quantity: 2.5}}, shirt.ReservedMaterials)

	dupatta := res.Item.Section("dupatta")
	assert.Equal(t, orders.SectionAwaitingMaterial, dupatta.Status)
	require.NotNil(t, dupatta.InventoryCheckResult)
	require.Len(t, dupatta.InventoryCheckResult.Shortages, 1)
	assert.Equal(t, 1.0, dupatta.InventoryCheckResult.Shortages[0].Available)

	assert.Equal(t, orders.ItemPartiallyInDyeing, res.Item.Status)

	lawn, err := store.Inventory().GetItem(ctx, "lawn")
	require.NoError(t, err)
	assert.InDelta(t, 7.5, lawn.RemainingStock, 1e-9)
	moves, err := store.Inventory().ListMovements(ctx, "lawn", 10)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, inventory.MovementReserve, moves[0].Type)
	assert.Equal(t, "Nadia", moves[0].Actor)

	require.NotNil(t, res.Packet)
	assert.Equal(t, []string{"shirt"}, res.Packet.SectionsIncluded)
	assert.Equal(t, packets.StatusAssigned, res.Packet.Status)
	assert.Equal(t, "u-fab", res.Packet.AssignedTo)
}

func TestCheckInventoryRetryExtendsPacket(t *testing.T) {
	store, svc := setup(t, sectioned(), map[string]float64{"lawn": 10, "chiffon": 1})
	ctx := context.Background()

	_, err := svc.CheckInventory(ctx, "item-1", fabrication.CheckRequest{}, cutter)
	require.NoError(t, err)

	require.NoError(t, store.Inventory().WithTx(ctx, func(ctx context.Context, tx inventory.TxRepository) error {
		_, _, err := inventory.Post(ctx, tx, inventory.MovementInput{InventoryItemID: "chiffon", Type: inventory.MovementIn, Delta: 5, Actor: "Store"}, time.Now())
		return err
	}))

	res, err := svc.CheckInventory(ctx, "item-1", fabrication.CheckRequest{Sections: []string{"Dupatta"}}, cutter)
	require.NoError(t, err)
	assert.Equal(t, orders.ItemReadyForDyeing, res.Item.Status)
	require.NotNil(t, res.Packet)
	assert.ElementsMatch(t, []string{"shirt", "dupatta"}, res.Packet.SectionsIncluded)

	list, err := store.Packets().ListPackets(ctx, packets.ListFilter{OrderItemID: "item-1"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCheckInventoryRejectsSectionsPastTheCheck(t *testing.T) {
	_, svc := setup(t, sectioned(), map[string]float64{"lawn": 10, "chiffon": 10})
	ctx := context.Background()

	_, err := svc.CheckInventory(ctx, "item-1", fabrication.CheckRequest{Sections: []string{"shirt"}}, cutter)
	require.NoError(t, err)

	_, err = svc.CheckInventory(ctx, "item-1", fabrication.CheckRequest{Sections: []string{"shirt"}}, cutter)
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.CheckInventory(ctx, "item-1", fabrication.CheckRequest{Sections: []string{"sleeves"}}, cutter)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCheckInventoryRefusesCancelledItem(t *testing.T) {
	store, svc := setup(t, sectioned(), map[string]float64{"lawn": 10, "chiffon": 10})
	ctx := context.Background()
	flow := production.NewWorkflow(store.Production(), nil, nil, nil)
	_, err := production.NewService(flow, store.Orders()).CancelOrder(ctx, "order-1", "duplicate order", cutter)
	require.NoError(t, err)

	_, err = svc.CheckInventory(ctx, "item-1", fabrication.CheckRequest{}, cutter)
	assert.ErrorIs(t, err, production.ErrItemStatus)

	item, err := store.Orders().GetItem(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, orders.ItemCancelled, item.Status)
	lawn, err := store.Inventory().GetItem(ctx, "lawn")
	require.NoError(t, err)
	assert.InDelta(t, 10, lawn.RemainingStock, 1e-9)
	list, err := store.Packets().ListPackets(ctx, packets.ListFilter{OrderItemID: "item-1"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestQueueFiltersRework(t *testing.T) {
	it := sectioned()
	it.SectionStatuses["shirt"].DyeingRound = 1
	it.SectionStatuses["shirt"].PreviousFabricationAssignee = "u-fab"
	_, svc := setup(t, it, nil)
	ctx := context.Background()

	all, err := svc.Queue(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	mine, err := svc.Queue(ctx, "u-fab")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	other, err := svc.Queue(ctx, "u-other")
	require.NoError(t, err)
	assert.Empty(t, other)
}
