package packets

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/shared"
)

type memoryRepo struct {
	packets map[string]Packet
}

func newMemoryRepo(list ...Packet) *memoryRepo {
	m := &memoryRepo{packets: map[string]Packet{}}
	for _, p := range list {
		m.packets[p.ID] = p
	}
	return m
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := make(map[string]Packet, len(m.packets))
	for k, v := range m.packets {
		snapshot[k] = v.Clone()
	}
	if err := fn(ctx, m); err != nil {
		m.packets = snapshot
		return err
	}
	return nil
}

func (m *memoryRepo) ListPackets(ctx context.Context, filter ListFilter) ([]Packet, error) {
	var out []Packet
	for _, p := range m.packets {
		if filter.Matches(p) {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (m *memoryRepo) GetPacket(ctx context.Context, id string) (Packet, error) {
	p, ok := m.packets[id]
	if !ok {
		return Packet{}, ErrPacketNotFound
	}
	return p.Clone(), nil
}

func (m *memoryRepo) GetPacketForUpdate(ctx context.Context, id string) (Packet, error) {
	return m.GetPacket(ctx, id)
}

func (m *memoryRepo) ListItemPacketsForUpdate(ctx context.Context, orderItemID string) ([]Packet, error) {
	return m.ListPackets(ctx, ListFilter{OrderItemID: orderItemID})
}

func (m *memoryRepo) CreatePacket(ctx context.Context, p Packet) error {
	m.packets[p.ID] = p.Clone()
	return nil
}

func (m *memoryRepo) UpdatePacket(ctx context.Context, p Packet) error {
	m.packets[p.ID] = p.Clone()
	return nil
}

var now = time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)

func TestRemoveSectionInvalidatesEmptyPacket(t *testing.T) {
	p := Packet{ID: "p1", Status: StatusAssigned}
	p.AddSection("shirt", []PickItem{{InventoryItemID: "fab", Section: "shirt", Quantity: 2}}, now)
	p.AddSection("dupatta", []PickItem{{InventoryItemID: "chf", Section: "dupatta", Quantity: 1}}, now)
	p.AddSection("shirt", nil, now)
	require.Equal(t, []string{"shirt", "dupatta"}, p.SectionsIncluded)

	assert.True(t, p.RemoveSection("shirt", now))
	assert.Equal(t, StatusAssigned, p.Status)
	assert.Equal(t, []string{"dupatta"}, p.SectionsIncluded)
	assert.Len(t, p.Items, 1)

	assert.False(t, p.RemoveSection("shirt", now))
	assert.True(t, p.RemoveSection("dupatta", now))
	assert.Equal(t, StatusInvalidated, p.Status)
	assert.Empty(t, p.SectionsIncluded)
	assert.Equal(t, []string{"shirt", "dupatta"}, p.SectionsInvalidated)
	require.NotNil(t, p.InvalidatedAt)
}

func TestIncludeExtendsOpenPacket(t *testing.T) {
	repo := newMemoryRepo()
	ctx := context.Background()
	a := Assignment{OrderItemID: "item-1", AssignedTo: "u-fab"}

	var first, second Packet
	err := repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		first, err = Include(ctx, tx, a, "shirt", nil, now)
		if err != nil {
			return err
		}
		second, err = Include(ctx, tx, a, "trouser", nil, now)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, []string{"shirt", "trouser"}, repo.packets[first.ID].SectionsIncluded)
}

func TestRemoveSectionAcrossPackets(t *testing.T) {
	a := Packet{ID: "a", OrderItemID: "item-1", Status: StatusCompleted, SectionsIncluded: []string{"shirt"}}
	b := Packet{ID: "b", OrderItemID: "item-1", Status: StatusAssigned, SectionsIncluded: []string{"shirt", "trouser"}}
	other := Packet{ID: "c", OrderItemID: "item-2", Status: StatusAssigned, SectionsIncluded: []string{"shirt"}}
	repo := newMemoryRepo(a, b, other)

	var changed []Packet
	err := repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		var err error
		changed, err = RemoveSection(ctx, tx, "item-1", "shirt", now)
		return err
	})
	require.NoError(t, err)
	assert.Len(t, changed, 2)
	assert.Equal(t, StatusInvalidated, repo.packets["a"].Status)
	assert.Equal(t, StatusAssigned, repo.packets["b"].Status)
	assert.Equal(t, []string{"shirt"}, repo.packets["c"].SectionsIncluded)
}

func TestServiceStartAndComplete(t *testing.T) {
	repo := newMemoryRepo(Packet{ID: "p1", Status: StatusAssigned, SectionsIncluded: []string{"shirt"}})
	svc := NewService(repo, nil)
	actor := &shared.Principal{UserID: "u1", Name: "Sana"}

	p, err := svc.Start(context.Background(), "p1", actor)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, p.Status)
	assert.Equal(t, "u1", p.AssignedTo)

	_, err = svc.Start(context.Background(), "p1", actor)
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Complete(context.Background(), "p1", &shared.Principal{UserID: "u2"})
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	p, err = svc.Complete(context.Background(), "p1", actor)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, p.Status)
	require.NotNil(t, p.CompletedAt)
}
