package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
)

type memoryRepo struct {
	items     map[string]Item
	movements []Movement
}

func newMemoryRepo(items ...Item) *memoryRepo {
	repo := &memoryRepo{items: map[string]Item{}}
	for _, it := range items {
		repo.items[it.ID] = it
	}
	return repo
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := make(map[string]Item, len(m.items))
	for k, v := range m.items {
		snapshot[k] = v
	}
	movements := len(m.movements)
	if err := fn(ctx, &memoryTx{repo: m}); err != nil {
		m.items = snapshot
		m.movements = m.movements[:movements]
		return err
	}
	return nil
}

func (m *memoryRepo) ListItems(ctx context.Context) ([]Item, error) {
	out := make([]Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	return out, nil
}

func (m *memoryRepo) GetItem(ctx context.Context, id string) (Item, error) {
	it, ok := m.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return it, nil
}

func (m *memoryRepo) ListMovements(ctx context.Context, itemID string, limit int) ([]Movement, error) {
	var out []Movement
	for i := len(m.movements) - 1; i >= 0 && len(out) < limit; i-- {
		if m.movements[i].InventoryItemID == itemID {
			out = append(out, m.movements[i])
		}
	}
	return out, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) GetInventoryForUpdate(ctx context.Context, id string) (Item, error) {
	return t.repo.GetItem(ctx, id)
}

func (t *memoryTx) CreateInventory(ctx context.Context, item Item) error {
	t.repo.items[item.ID] = item
	return nil
}

func (t *memoryTx) UpdateInventory(ctx context.Context, item Item) error {
	t.repo.items[item.ID] = item
	return nil
}

func (t *memoryTx) InsertMovement(ctx context.Context, m Movement) error {
	t.repo.movements = append(t.repo.movements, m)
	return nil
}

func fabric(id string, stock float64) Item {
	return Item{ID: id, SKU: "FAB-" + id, Name: "Lawn " + id, Category: CategoryFabric, Unit: "m", RemainingStock: stock, ReorderLevel: 5, UnitCost: 100}
}

func TestPostReserveAndRelease(t *testing.T) {
	repo := newMemoryRepo(fabric("a", 10))
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	err := repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, mv, err := Post(ctx, tx, MovementInput{InventoryItemID: "a", Type: MovementReserve, Delta: -4, Reason: "shirt", Actor: "Ayesha"}, now)
		require.NoError(t, err)
		assert.InDelta(t, 6, item.RemainingStock, 1e-9)
		assert.InDelta(t, 6, mv.BalanceAfter, 1e-9)
		assert.Equal(t, 100.0, item.UnitCost)

		item, _, err = Post(ctx, tx, MovementInput{InventoryItemID: "a", Type: MovementRelease, Delta: 4, Reason: "rejected"}, now)
		require.NoError(t, err)
		assert.InDelta(t, 10, item.RemainingStock, 1e-9)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, repo.movements, 2)
}

func TestPostGuardsNegativeStock(t *testing.T) {
	repo := newMemoryRepo(fabric("a", 3))
	err := repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		_, _, err := Post(ctx, tx, MovementInput{InventoryItemID: "a", Type: MovementReserve, Delta: -3.5}, time.Now())
		return err
	})
	require.ErrorIs(t, err, ErrNegativeStock)
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Equal(t, 3.0, repo.items["a"].RemainingStock)
	assert.Empty(t, repo.movements)
}

func TestPostRejectsMismatchedSign(t *testing.T) {
	repo := newMemoryRepo(fabric("a", 3))
	err := repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		_, _, err := Post(ctx, tx, MovementInput{InventoryItemID: "a", Type: MovementRelease, Delta: -1}, time.Now())
		return err
	})
	assert.Error(t, err)

	err = repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		_, _, err := Post(ctx, tx, MovementInput{InventoryItemID: "a", Type: MovementAdjust, Delta: 0}, time.Now())
		return err
	})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestAdjustUpdatesAverageCost(t *testing.T) {
	repo := newMemoryRepo(fabric("a", 10))
	svc := NewService(repo, nil)

	item, mv, err := svc.Adjust(context.Background(), "a", AdjustRequest{Delta: 10, UnitCost: 200, Reason: "purchase"}, "Bilal")
	require.NoError(t, err)
	assert.InDelta(t, 20, item.RemainingStock, 1e-9)
	assert.InDelta(t, 150, item.UnitCost, 1e-9)
	assert.Equal(t, MovementAdjust, mv.Type)
	assert.Equal(t, "Bilal", mv.Actor)
}

func TestAdjustUnknownItem(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	_, _, err := svc.Adjust(context.Background(), "missing", AdjustRequest{Delta: 1, Reason: "count"}, "x")
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestCreatePostsOpeningBalance(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	item, err := svc.Create(context.Background(), CreateRequest{
		SKU: " thr-01 ", Name: "Thread", Category: CategoryRawMaterial, Unit: "spool", OpeningStock: 12, UnitCost: 40,
	}, "Admin")
	require.NoError(t, err)
	assert.Equal(t, "THR-01", item.SKU)
	assert.Equal(t, 12.0, repo.items[item.ID].RemainingStock)

	moves, err := svc.Movements(context.Background(), item.ID, 0)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, MovementIn, moves[0].Type)
}

func TestFilterItems(t *testing.T) {
	low := fabric("b", 2)
	low.Name = "Chiffon"
	items := []Item{fabric("a", 50), low, {ID: "c", SKU: "BTN", Name: "Buttons", Category: CategoryAddaMaterial, RemainingStock: 400, ReorderLevel: 100}}

	got := FilterItems(items, ListFilter{LowOnly: true})
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)

	got = FilterItems(items, ListFilter{Category: CategoryFabric, SortBy: "stock", SortDesc: true})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)

	got = FilterItems(items, ListFilter{Search: "btn"})
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].ID)
}
