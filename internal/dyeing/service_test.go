package dyeing_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailorflow/tailorflow/internal/dyeing"
	"github.com/tailorflow/tailorflow/internal/inventory"
	"github.com/tailorflow/tailorflow/internal/orders"
	"github.com/tailorflow/tailorflow/internal/packets"
	"github.com/tailorflow/tailorflow/internal/platform/cache"
	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/production"
	"github.com/tailorflow/tailorflow/internal/rbac"
	"github.com/tailorflow/tailorflow/internal/shared"
	"github.com/tailorflow/tailorflow/internal/store/memstore"
)

type recordingNotifier struct {
	notices []dyeing.ReworkNotice
}

func (n *recordingNotifier) NotifyRework(ctx context.Context, notice dyeing.ReworkNotice) error {
	n.notices = append(n.notices, notice)
	return nil
}

type fixture struct {
	store    *memstore.Store
	service  *dyeing.Service
	notifier *recordingNotifier
}

var (
	dyer  = &shared.Principal{UserID: "u-dyer", Name: "Rashid", Permissions: shared.DyeingScopes()}
	rival = &shared.Principal{UserID: "u-rival", Name: "Kamran", Permissions: shared.DyeingScopes()}
)

func newFixture(t *testing.T, shirt, dupatta orders.SectionState, versioned *cache.Versioned) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()

	require.NoError(t, store.Inventory().WithTx(ctx, func(ctx context.Context, tx inventory.TxRepository) error {
		for _, it := range []inventory.Item{
			{ID: "lawn", SKU: "FAB-LAWN", Name: "Lawn", Category: inventory.CategoryFabric, Unit: "m", RemainingStock: 10},
			{ID: "chiffon", SKU: "FAB-CHF", Name: "Chiffon", Category: inventory.CategoryFabric, Unit: "m", RemainingStock: 4},
		} {
			if err := tx.CreateInventory(ctx, it); err != nil {
				return err
			}
		}
		return nil
	}))

	item := orders.Item{
		ID:                  "item-1",
		OrderID:             "order-1",
		OrderNumber:         "ORD-00001",
		ProductName:         "Lawn three piece",
		Quantity:            1,
		Status:              orders.ItemInventoryCheck,
		FabricationAssignee: "u-fab",
		SectionStatuses: map[string]*orders.SectionStatus{
			"shirt":   {Status: shirt, ReservedMaterials: []orders.ReservedMaterial{{InventoryItemID: "lawn", Quantity: 2.5}}},
			"dupatta": {Status: dupatta, ReservedMaterials: []orders.ReservedMaterial{{InventoryItemID: "chiffon", Quantity: 2}}},
		},
		MaterialRequirements: []orders.MaterialRequirement{
			{InventoryItemID: "lawn", Name: "Lawn", Section: "shirt", Quantity: 2.5, Unit: "m"},
			{InventoryItemID: "chiffon", Name: "Chiffon", Section: "dupatta", Quantity: 2, Unit: "m"},
		},
	}
	item.Rederive()
	order := orders.Order{ID: "order-1", OrderNumber: "ORD-00001", Status: orders.OrderInProgress, Items: []orders.Item{item}}
	require.NoError(t, store.Orders().WithTx(ctx, func(ctx context.Context, tx orders.TxRepository) error {
		return tx.CreateOrder(ctx, order)
	}))

	require.NoError(t, store.Packets().WithTx(ctx, func(ctx context.Context, tx packets.TxRepository) error {
		if err := tx.CreatePacket(ctx, packets.Packet{ID: "pk-shirt", OrderItemID: "item-1", Status: packets.StatusCompleted, SectionsIncluded: []string{"shirt"}}); err != nil {
			return err
		}
		return tx.CreatePacket(ctx, packets.Packet{ID: "pk-dupatta", OrderItemID: "item-1", Status: packets.StatusCompleted, SectionsIncluded: []string{"dupatta"}, CreatedAt: time.Unix(1, 0)})
	}))

	notifier := &recordingNotifier{}
	var invalidator production.Invalidator
	if versioned != nil {
		invalidator = versioned
	}
	flow := production.NewWorkflow(store.Production(), invalidator, nil, nil)
	svc := dyeing.NewService(flow, store.Orders(), versioned, notifier, nil)
	return &fixture{store: store, service: svc, notifier: notifier}
}

func (f *fixture) stock(t *testing.T, id string) float64 {
	t.Helper()
	it, err := f.store.Inventory().GetItem(context.Background(), id)
	require.NoError(t, err)
	return it.RemainingStock
}

func (f *fixture) item(t *testing.T) orders.Item {
	t.Helper()
	it, err := f.store.Orders().GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	return it
}

func req(sections ...string) dyeing.Request {
	return dyeing.Request{Sections: sections}
}

func TestAcceptThenRejectReturnsToInventoryCheck(t *testing.T) {
	f := newFixture(t, orders.SectionReadyForDyeing, orders.SectionReadyForDyeing, nil)
	ctx := context.Background()
	roundBefore := f.item(t).SectionStatuses["shirt"].DyeingRound

	_, err := f.service.Accept(ctx, "item-1", req("shirt"), dyer)
	require.NoError(t, err)

	res, err := f.service.Reject(ctx, "item-1", dyeing.Request{Sections: []string{"shirt"}, ReasonCode: dyeing.ReasonColorMismatch, Notes: "too dark"}, dyer)
	require.NoError(t, err)

	sec := f.item(t).SectionStatuses["shirt"]
	assert.Equal(t, orders.SectionPendingInventoryCheck, sec.Status)
	assert.Greater(t, sec.DyeingRound, roundBefore)
	assert.Equal(t, orders.ItemPartiallyInDyeing, res.Item.Status)
}

func TestRejectReleasesExactlyReservedStock(t *testing.T) {
	f := newFixture(t, orders.SectionDyeingInProgress, orders.SectionReadyForDyeing, nil)
	before := f.stock(t, "lawn")
	otherBefore := f.stock(t, "chiffon")

	_, err := f.service.Reject(context.Background(), "item-1", dyeing.Request{Sections: []string{"shirt"}, Notes: "stained"}, dyer)
	require.NoError(t, err)

	assert.InDelta(t, before+2.5, f.stock(t, "lawn"), 1e-9)
	assert.Equal(t, otherBefore, f.stock(t, "chiffon"))

	moves, err := f.store.Inventory().ListMovements(context.Background(), "lawn", 10)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, inventory.MovementRelease, moves[0].Type)
	assert.Equal(t, "System", moves[0].Actor)
}

func TestRejectInvalidatesPacketAndWritesTimeline(t *testing.T) {
	f := newFixture(t, orders.SectionReadyForDyeing, orders.SectionDyeingCompleted, nil)

	res, err := f.service.Reject(context.Background(), "item-1", dyeing.Request{Sections: []string{"Shirt"}, Notes: "wrong shade"}, dyer)
	require.NoError(t, err)

	pk, err := f.store.Packets().GetPacket(context.Background(), "pk-shirt")
	require.NoError(t, err)
	assert.Equal(t, packets.StatusInvalidated, pk.Status)
	assert.Empty(t, pk.SectionsIncluded)
	require.Len(t, res.Packets, 1)
	assert.Equal(t, "pk-shirt", res.Packets[0].ID)

	untouched, err := f.store.Packets().GetPacket(context.Background(), "pk-dupatta")
	require.NoError(t, err)
	assert.Equal(t, packets.StatusCompleted, untouched.Status)

	item := f.item(t)
	assert.Equal(t, orders.ItemPartiallyInDyeing, item.Status)
	n := len(item.Timeline)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, "Rashid", item.Timeline[n-2].User)
	assert.Equal(t, "System", item.Timeline[n-1].User)

	require.Len(t, f.notifier.notices, 1)
	assert.Equal(t, "u-fab", f.notifier.notices[0].Recipient)
	assert.Equal(t, []string{"shirt"}, f.notifier.notices[0].Sections)
	assert.Equal(t, 1, f.notifier.notices[0].Round)
}

func TestFailedValidationCommitsNothing(t *testing.T) {
	f := newFixture(t, orders.SectionReadyForDyeing, orders.SectionReadyForProduction, nil)
	before := f.item(t)
	stock := f.stock(t, "lawn")

	_, err := f.service.Reject(context.Background(), "item-1", dyeing.Request{Sections: []string{"shirt", "dupatta"}, Notes: "bad"}, dyer)
	require.Error(t, err)
	assert.Equal(t, 400, httpx.StatusFor(err))

	assert.Equal(t, before, f.item(t))
	assert.Equal(t, stock, f.stock(t, "lawn"))
	pk, err := f.store.Packets().GetPacket(context.Background(), "pk-shirt")
	require.NoError(t, err)
	assert.Equal(t, []string{"shirt"}, pk.SectionsIncluded)
	assert.Empty(t, f.notifier.notices)
}

func TestAcceptRejectsSecondDyer(t *testing.T) {
	f := newFixture(t, orders.SectionReadyForDyeing, orders.SectionReadyForDyeing, nil)
	ctx := context.Background()

	_, err := f.service.Accept(ctx, "item-1", req("shirt"), rival)
	require.NoError(t, err)
	_, err = f.service.Accept(ctx, "item-1", req("dupatta"), dyer)
	var te *dyeing.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, []string{"shirt"}, te.Sections)
}

func TestUserIDMustMatchCaller(t *testing.T) {
	f := newFixture(t, orders.SectionReadyForDyeing, orders.SectionReadyForDyeing, nil)
	_, err := f.service.Accept(context.Background(), "item-1", dyeing.Request{UserID: "u-rival", Sections: []string{"shirt"}}, dyer)
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestReleasesIgnoreRoundingRemnants(t *testing.T) {
	f := newFixture(t, orders.SectionReadyForDyeing, orders.SectionReadyForDyeing, nil)
	ctx := context.Background()
	require.NoError(t, f.store.Orders().WithTx(ctx, func(ctx context.Context, tx orders.TxRepository) error {
		it, err := tx.GetItemForUpdate(ctx, "item-1")
		if err != nil {
			return err
		}
		for _, name := range []string{"shirt", "dupatta"} {
			sec := it.SectionStatuses[name]
			sec.ReservedMaterials = append(sec.ReservedMaterials, orders.ReservedMaterial{InventoryItemID: "lawn", Quantity: 4e-10})
		}
		return tx.UpdateItem(ctx, it)
	}))

	res, err := f.service.Reject(ctx, "item-1", dyeing.Request{Sections: []string{"shirt"}, Notes: "shade off"}, dyer)
	require.NoError(t, err)
	require.Len(t, res.Rejection.Releases, 1)
	assert.InDelta(t, 12.5, f.stock(t, "lawn"), 1e-9)

	flow := production.NewWorkflow(f.store.Production(), nil, nil, nil)
	_, err = production.NewService(flow, f.store.Orders()).CancelOrder(ctx, "order-1", "customer called off", dyer)
	require.NoError(t, err)
	assert.InDelta(t, 6, f.stock(t, "chiffon"), 1e-9)
	assert.InDelta(t, 12.5, f.stock(t, "lawn"), 1e-9)
}

func TestCancelledItemRefusesEveryAction(t *testing.T) {
	f := newFixture(t, orders.SectionReadyForDyeing, orders.SectionDyeingInProgress, nil)
	ctx := context.Background()
	flow := production.NewWorkflow(f.store.Production(), nil, nil, nil)
	_, err := production.NewService(flow, f.store.Orders()).CancelOrder(ctx, "order-1", "customer called off", dyer)
	require.NoError(t, err)
	stock := f.stock(t, "lawn")

	_, err = f.service.Accept(ctx, "item-1", req("shirt"), dyer)
	assert.ErrorIs(t, err, production.ErrItemStatus)
	_, err = f.service.Start(ctx, "item-1", req("shirt"), dyer)
	assert.ErrorIs(t, err, production.ErrItemStatus)
	_, err = f.service.Complete(ctx, "item-1", req("dupatta"), dyer)
	assert.ErrorIs(t, err, production.ErrItemStatus)
	_, err = f.service.Reject(ctx, "item-1", dyeing.Request{Sections: []string{"dupatta"}, Notes: "late"}, dyer)
	assert.ErrorIs(t, err, production.ErrItemStatus)
	assert.Equal(t, 400, httpx.StatusFor(err))

	assert.Equal(t, orders.ItemCancelled, f.item(t).Status)
	assert.Equal(t, stock, f.stock(t, "lawn"))
	assert.Empty(t, f.notifier.notices)
}

func TestCompleteAllSectionsPromotesItem(t *testing.T) {
	f := newFixture(t, orders.SectionReadyForDyeing, orders.SectionReadyForDyeing, nil)
	ctx := context.Background()

	_, err := f.service.Accept(ctx, "item-1", req("shirt", "dupatta"), dyer)
	require.NoError(t, err)
	_, err = f.service.Start(ctx, "item-1", req("shirt", "dupatta"), dyer)
	require.NoError(t, err)
	item, err := f.service.Complete(ctx, "item-1", req("shirt", "dupatta"), dyer)
	require.NoError(t, err)
	assert.Equal(t, orders.ItemReadyForProduction, item.Status)
}

func TestUnknownItemIsNotFound(t *testing.T) {
	f := newFixture(t, orders.SectionReadyForDyeing, orders.SectionReadyForDyeing, nil)
	_, err := f.service.Accept(context.Background(), "missing", req("shirt"), dyer)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestStatsAreCachedUntilTransition(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	versioned := cache.NewVersioned(client, "dyeing", time.Minute)
	f := newFixture(t, orders.SectionReadyForDyeing, orders.SectionReadyForDyeing, versioned)
	ctx := context.Background()

	st, err := f.service.Stats(ctx, dyer.UserID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Available)

	_, err = f.service.Accept(ctx, "item-1", req("shirt"), dyer)
	require.NoError(t, err)

	st, err = f.service.Stats(ctx, dyer.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Available)
	assert.Equal(t, 1, st.Accepted)
	assert.Equal(t, 1, st.MyActive)
}

func TestHandlerEnvelopes(t *testing.T) {
	f := newFixture(t, orders.SectionReadyForDyeing, orders.SectionReadyForDyeing, nil)
	handler := dyeing.NewHandler(nil, f.service, rbac.Middleware{})
	router := chi.NewRouter()
	handler.MountRoutes(router)

	call := func(p *shared.Principal, path string, body any) (*httptest.ResponseRecorder, httpx.Envelope) {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
		r.Header.Set("Content-Type", "application/json")
		r = r.WithContext(shared.ContextWithAuth(r.Context(), shared.AuthAuthenticated, p))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, r)
		var env httpx.Envelope
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
		return rr, env
	}

	rr, env := call(dyer, "/task/item-1/accept", map[string]any{"userId": "u-dyer", "sections": []string{"shirt"}})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Sections accepted for dyeing", env.Message)

	rr, env = call(dyer, "/task/item-1/start", map[string]any{"userId": "u-dyer", "sections": []string{"dupatta"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "dupatta")

	rr, env = call(dyer, "/task/item-1/reject", map[string]any{"userId": "u-dyer", "sections": []string{"shirt"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, env.Error, "notes")

	limited := &shared.Principal{UserID: "u-view", Permissions: []string{shared.PermDyeingView}}
	rr, env = call(limited, "/task/item-1/complete", map[string]any{"sections": []string{"shirt"}})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.False(t, env.Success)
}
