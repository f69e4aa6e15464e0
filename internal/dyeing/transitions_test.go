package dyeing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailorflow/tailorflow/internal/orders"
	"github.com/tailorflow/tailorflow/internal/platform/httpx"
)

var (
	now   = time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC)
	dyer  = Actor{ID: "u-dyer", Name: "Rashid"}
	other = Actor{ID: "u-other", Name: "Kamran"}
)

func twoSectionItem(shirt, dupatta orders.SectionState) *orders.Item {
	item := &orders.Item{
		ID:                  "item-1",
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
	return item
}

func TestPlanAcceptBothSectionsIsInDyeing(t *testing.T) {
	item := twoSectionItem(orders.SectionReadyForDyeing, orders.SectionReadyForDyeing)
	require.Equal(t, orders.ItemReadyForDyeing, item.Status)

	require.NoError(t, PlanAccept(item, []string{"shirt", "dupatta"}, dyer, now))
	assert.Equal(t, orders.ItemInDyeing, item.Status)
	assert.NotEqual(t, orders.ItemReadyForDyeing, item.Status)
	for _, name := range []string{"shirt", "dupatta"} {
		sec := item.Section(name)
		assert.Equal(t, orders.SectionDyeingAccepted, sec.Status)
		assert.Equal(t, "u-dyer", sec.DyeingAcceptedBy)
		assert.Equal(t, "Rashid", sec.DyeingAcceptedByName)
		require.NotNil(t, sec.DyeingAcceptedAt)
	}
	require.Len(t, item.Timeline, 1)
	assert.Equal(t, "Dyeing accepted for Shirt, Dupatta", item.Timeline[0].Action)
}

func TestPlanAcceptRejectsSectionsNotReady(t *testing.T) {
	item := twoSectionItem(orders.SectionReadyForDyeing, orders.SectionAwaitingMaterial)
	before := item.Clone()

	err := PlanAccept(item, []string{"shirt", "dupatta"}, dyer, now)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, []string{"dupatta"}, te.Sections)
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Equal(t, before, *item)
}

func TestPlanAcceptSingleAssignee(t *testing.T) {
	item := twoSectionItem(orders.SectionReadyForDyeing, orders.SectionReadyForDyeing)
	require.NoError(t, PlanAccept(item, []string{"shirt"}, other, now))

	err := PlanAccept(item, []string{"dupatta"}, dyer, now)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, []string{"shirt"}, te.Sections)
	assert.Contains(t, te.Reason, "Kamran")

	require.NoError(t, PlanAccept(item, []string{"dupatta"}, other, now))
}

func TestPlanAcceptUnknownSection(t *testing.T) {
	item := twoSectionItem(orders.SectionReadyForDyeing, orders.SectionReadyForDyeing)
	err := PlanAccept(item, []string{"shirt", "sleeves"}, dyer, now)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, []string{"sleeves"}, te.Sections)
	assert.Equal(t, orders.SectionReadyForDyeing, item.Section("shirt").Status)
}

func TestPlanStartRequiresOwner(t *testing.T) {
	item := twoSectionItem(orders.SectionReadyForDyeing, orders.SectionReadyForDyeing)
	require.NoError(t, PlanAccept(item, []string{"shirt"}, dyer, now))

	err := PlanStart(item, []string{"shirt"}, other, now)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "sections are held by another user", te.Reason)

	err = PlanStart(item, []string{"dupatta"}, dyer, now)
	require.ErrorAs(t, err, &te)
	assert.Equal(t, []string{"dupatta"}, te.Sections)

	require.NoError(t, PlanStart(item, []string{"shirt"}, dyer, now))
	assert.Equal(t, orders.SectionDyeingInProgress, item.Section("shirt").Status)
	require.NotNil(t, item.Section("shirt").DyeingStartedAt)
	assert.Equal(t, orders.ItemInDyeing, item.Status)
}

func TestPlanCompletePromotesItemWhenAllReady(t *testing.T) {
	item := twoSectionItem(orders.SectionReadyForDyeing, orders.SectionReadyForDyeing)
	require.NoError(t, PlanAccept(item, []string{"shirt", "dupatta"}, dyer, now))
	require.NoError(t, PlanStart(item, []string{"shirt"}, dyer, now))

	require.NoError(t, PlanComplete(item, []string{"shirt"}, dyer, now))
	assert.Equal(t, orders.SectionReadyForProduction, item.Section("shirt").Status)
	assert.Equal(t, orders.ItemInDyeing, item.Status)

	// Accepted but never started sections may be completed directly.
	require.NoError(t, PlanComplete(item, []string{"dupatta"}, dyer, now))
	assert.Equal(t, orders.ItemReadyForProduction, item.Status)
	assert.NotNil(t, item.Section("dupatta").DyeingStartedAt)
	assert.NotNil(t, item.Section("dupatta").DyeingCompletedAt)
}

func TestPlanRejectionRoundTrip(t *testing.T) {
	item := twoSectionItem(orders.SectionReadyForDyeing, orders.SectionReadyForDyeing)
	roundBefore := item.Section("shirt").DyeingRound
	require.NoError(t, PlanAccept(item, []string{"shirt"}, dyer, now))

	rej, err := PlanRejection(item, []string{"shirt"}, ReasonColorMismatch, "shade too dark", dyer, now)
	require.NoError(t, err)

	sec := item.Section("shirt")
	assert.Equal(t, orders.SectionPendingInventoryCheck, sec.Status)
	assert.Greater(t, sec.DyeingRound, roundBefore)
	assert.Empty(t, sec.DyeingAcceptedBy)
	assert.Nil(t, sec.DyeingAcceptedAt)
	assert.Empty(t, sec.ReservedMaterials)
	assert.Equal(t, ReasonColorMismatch, sec.DyeingRejectionReasonCode)
	assert.Equal(t, "shade too dark", sec.DyeingRejectionNotes)
	assert.Equal(t, "u-fab", sec.PreviousFabricationAssignee)
	assert.Equal(t, "Rashid", sec.DyeingRejectedByName)

	require.Len(t, rej.Releases, 1)
	assert.Equal(t, Release{Section: "shirt", InventoryItemID: "lawn", Name: "Lawn", Quantity: 2.5, Unit: "m"}, rej.Releases[0])
	assert.Equal(t, "u-fab", rej.PreviousAssignee)

	n := len(item.Timeline)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, "Dyeing rejected for Shirt (COLOR_MISMATCH): shade too dark", item.Timeline[n-2].Action)
	assert.Equal(t, "Rashid", item.Timeline[n-2].User)
	assert.Equal(t, "Released to inventory for Shirt: Lawn (2.5 m)", item.Timeline[n-1].Action)
	assert.Equal(t, "System", item.Timeline[n-1].User)
}

func TestPlanRejectionWithCompletedSibling(t *testing.T) {
	item := twoSectionItem(orders.SectionDyeingInProgress, orders.SectionDyeingCompleted)
	item.Section("shirt").DyeingAcceptedBy = dyer.ID

	_, err := PlanRejection(item, []string{"shirt"}, "", "fabric torn", dyer, now)
	require.NoError(t, err)
	assert.Equal(t, orders.ItemPartiallyInDyeing, item.Status)
}

func TestPlanRejectionDropsNegligibleReservations(t *testing.T) {
	item := twoSectionItem(orders.SectionReadyForDyeing, orders.SectionReadyForDyeing)
	shirt := item.Section("shirt")
	shirt.ReservedMaterials = append(shirt.ReservedMaterials, orders.ReservedMaterial{InventoryItemID: "lining", Quantity: 1e-12})

	rej, err := PlanRejection(item, []string{"shirt"}, ReasonOther, "wrong lining", dyer, now)
	require.NoError(t, err)
	require.Len(t, rej.Releases, 1)
	assert.Equal(t, "lawn", rej.Releases[0].InventoryItemID)
	assert.Empty(t, item.Section("shirt").ReservedMaterials)
}

func TestPlanRejectionRequiresNotes(t *testing.T) {
	item := twoSectionItem(orders.SectionReadyForDyeing, orders.SectionReadyForDyeing)
	before := item.Clone()

	_, err := PlanRejection(item, []string{"shirt"}, ReasonOther, "   ", dyer, now)
	assert.ErrorIs(t, err, httpx.ErrValidation)
	var fe httpx.FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe, "notes")
	assert.Equal(t, before, *item)
}

func TestPlanRejectionValidatesBeforeMutating(t *testing.T) {
	item := twoSectionItem(orders.SectionReadyForDyeing, orders.SectionReadyForProduction)
	before := item.Clone()

	_, err := PlanRejection(item, []string{"shirt", "dupatta"}, "", "wrong colour", dyer, now)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, []string{"dupatta"}, te.Sections)
	assert.Equal(t, before, *item)
}

func TestNormalizeSections(t *testing.T) {
	assert.Equal(t, []string{"shirt", "dupatta"}, NormalizeSections([]string{" Shirt", "dupatta", "SHIRT", ""}))
	assert.Empty(t, NormalizeSections(nil))
}

func TestBuildTasksScopes(t *testing.T) {
	held := twoSectionItem(orders.SectionReadyForDyeing, orders.SectionReadyForDyeing)
	require.NoError(t, PlanAccept(held, []string{"shirt"}, other, now))
	free := twoSectionItem(orders.SectionReadyForDyeing, orders.SectionPendingInventoryCheck)
	free.ID = "item-2"
	items := []orders.Item{*held, *free}

	all := BuildTasks(items, ScopeAll, dyer.ID)
	require.Len(t, all, 2)
	assert.Equal(t, "Kamran", all[0].HeldBy)

	available := BuildTasks(items, ScopeAvailable, dyer.ID)
	require.Len(t, available, 1)
	assert.Equal(t, "item-2", available[0].OrderItemID)
	require.Len(t, available[0].Sections, 1)
	assert.Equal(t, "shirt", available[0].Sections[0].Name)

	mine := BuildTasks(items, ScopeMine, other.ID)
	require.Len(t, mine, 1)
	assert.Equal(t, "item-1", mine[0].OrderItemID)
}

func TestComputeStats(t *testing.T) {
	a := twoSectionItem(orders.SectionReadyForDyeing, orders.SectionReadyForDyeing)
	require.NoError(t, PlanAccept(a, []string{"shirt"}, dyer, now))
	_, err := PlanRejection(a, []string{"dupatta"}, "", "stain", dyer, now)
	require.NoError(t, err)

	st := ComputeStats([]orders.Item{*a}, dyer.ID)
	assert.Equal(t, Stats{Items: 1, Accepted: 1, Reworked: 1, MyActive: 1}, st)
}
