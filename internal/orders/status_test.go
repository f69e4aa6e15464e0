package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sections(states map[string]SectionState) map[string]*SectionStatus {
	out := make(map[string]*SectionStatus, len(states))
	for name, st := range states {
		out[name] = &SectionStatus{Status: st}
	}
	return out
}

func TestDeriveItemStatusRules(t *testing.T) {
	cases := []struct {
		name     string
		states   map[string]SectionState
		recorded ItemStatus
		want     ItemStatus
	}{
		{"all ready for dyeing", map[string]SectionState{"shirt": SectionReadyForDyeing, "dupatta": SectionReadyForDyeing}, ItemInventoryCheck, ItemReadyForDyeing},
		{"all accepted", map[string]SectionState{"shirt": SectionDyeingAccepted, "dupatta": SectionDyeingAccepted}, ItemReadyForDyeing, ItemInDyeing},
		{"accepted and ready", map[string]SectionState{"shirt": SectionDyeingAccepted, "dupatta": SectionReadyForDyeing}, ItemReadyForDyeing, ItemInDyeing},
		{"in progress and completed", map[string]SectionState{"shirt": SectionDyeingInProgress, "dupatta": SectionDyeingCompleted}, ItemInDyeing, ItemInDyeing},
		{"all completed", map[string]SectionState{"shirt": SectionDyeingCompleted, "dupatta": SectionDyeingCompleted}, ItemInDyeing, ItemDyeingCompleted},
		{"completed and ready for production", map[string]SectionState{"shirt": SectionDyeingCompleted, "dupatta": SectionReadyForProduction}, ItemInDyeing, ItemDyeingCompleted},
		{"all ready for production", map[string]SectionState{"shirt": SectionReadyForProduction, "trouser": SectionReadyForProduction}, ItemInDyeing, ItemReadyForProduction},
		{"rejected beside completed", map[string]SectionState{"shirt": SectionPendingInventoryCheck, "dupatta": SectionDyeingCompleted}, ItemInDyeing, ItemPartiallyInDyeing},
		{"ready beside pending", map[string]SectionState{"shirt": SectionReadyForDyeing, "dupatta": SectionAwaitingMaterial}, ItemAwaitingMaterial, ItemPartiallyInDyeing},
		{"all pending check", map[string]SectionState{"shirt": SectionPendingInventoryCheck}, ItemInDyeing, ItemInventoryCheck},
		{"pending and awaiting", map[string]SectionState{"shirt": SectionPendingInventoryCheck, "dupatta": SectionAwaitingMaterial}, ItemInventoryCheck, ItemAwaitingMaterial},
		{"unknown section state keeps recorded", map[string]SectionState{"shirt": SectionState("MYSTERY")}, ItemInProduction, ItemInProduction},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveItemStatus(sections(tc.states), tc.recorded))
		})
	}
}

func TestDeriveItemStatusEmptyKeepsRecorded(t *testing.T) {
	assert.Equal(t, ItemInProduction, DeriveItemStatus(nil, ItemInProduction))
	assert.Equal(t, ItemReceived, DeriveItemStatus(map[string]*SectionStatus{}, ItemReceived))
	assert.Equal(t, ItemReceived, DeriveItemStatus(map[string]*SectionStatus{"shirt": nil}, ItemReceived))
}

func TestDeriveItemStatusIdempotent(t *testing.T) {
	all := []SectionState{
		SectionPendingInventoryCheck, SectionAwaitingMaterial, SectionReadyForDyeing,
		SectionDyeingAccepted, SectionDyeingInProgress, SectionDyeingCompleted, SectionReadyForProduction,
	}
	for _, a := range all {
		for _, b := range all {
			secs := sections(map[string]SectionState{"shirt": a, "dupatta": b})
			first := DeriveItemStatus(secs, ItemReceived)
			assert.Equal(t, first, DeriveItemStatus(secs, first), "%s/%s", a, b)
		}
	}
}

func TestItemRederive(t *testing.T) {
	it := Item{Status: ItemInventoryCheck, SectionStatuses: sections(map[string]SectionState{"shirt": SectionReadyForDyeing})}
	it.Rederive()
	assert.Equal(t, ItemReadyForDyeing, it.Status)
}

func TestRollupOrderStatus(t *testing.T) {
	items := func(states ...ItemStatus) []Item {
		out := make([]Item, len(states))
		for i, s := range states {
			out[i] = Item{Status: s}
		}
		return out
	}
	assert.Equal(t, OrderPending, RollupOrderStatus(items(ItemReceived, ItemFabricationBespoke), OrderPending))
	assert.Equal(t, OrderInProgress, RollupOrderStatus(items(ItemReceived, ItemInDyeing), OrderPending))
	assert.Equal(t, OrderReadyForDispatch, RollupOrderStatus(items(ItemReadyForDispatch, ItemDispatched), OrderInProgress))
	assert.Equal(t, OrderDispatched, RollupOrderStatus(items(ItemCompleted, ItemDispatched, ItemCancelled), OrderInProgress))
	assert.Equal(t, OrderCompleted, RollupOrderStatus(items(ItemCompleted, ItemCompleted), OrderDispatched))
	assert.Equal(t, OrderCancelled, RollupOrderStatus(items(ItemCancelled), OrderPending))
	assert.Equal(t, OrderCancelled, RollupOrderStatus(items(ItemReadyForDispatch), OrderCancelled))
}

func TestItemCloneIsDeep(t *testing.T) {
	orig := Item{
		SectionStatuses: map[string]*SectionStatus{"shirt": {Status: SectionReadyForDyeing, ReservedMaterials: []ReservedMaterial{{InventoryItemID: "a", Quantity: 1}}}},
		Timeline:        []TimelineEntry{{Action: "x"}},
	}
	cp := orig.Clone()
	cp.SectionStatuses["shirt"].Status = SectionDyeingAccepted
	cp.SectionStatuses["shirt"].ReservedMaterials[0].Quantity = 9
	cp.Timeline[0].Action = "y"

	assert.Equal(t, SectionReadyForDyeing, orig.SectionStatuses["shirt"].Status)
	assert.Equal(t, 1.0, orig.SectionStatuses["shirt"].ReservedMaterials[0].Quantity)
	assert.Equal(t, "x", orig.Timeline[0].Action)
}
