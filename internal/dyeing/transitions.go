package dyeing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tailorflow/tailorflow/internal/inventory"
	"github.com/tailorflow/tailorflow/internal/orders"
	"github.com/tailorflow/tailorflow/internal/production"
	"github.com/tailorflow/tailorflow/internal/shared"
)

// Action names a dyeing transition.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionReject   Action = "reject"
)

// IsValid checks if the action is valid.
func (a Action) IsValid() bool {
	switch a {
	case ActionAccept, ActionStart, ActionComplete, ActionReject:
		return true
	default:
		return false
	}
}

// Reason codes a dyer may give when sending a section back.
const (
	ReasonColorMismatch   = "COLOR_MISMATCH"
	ReasonFabricDefect    = "FABRIC_DEFECT"
	ReasonWrongMaterial   = "WRONG_MATERIAL"
	ReasonInsufficientQty = "INSUFFICIENT_QUANTITY"
	ReasonOther           = "OTHER"
)

// Actor is the user performing a transition.
type Actor struct {
	ID   string
	Name string
}

// Release is stock returned to inventory by a rejection.
type Release struct {
	Section         string  `json:"section"`
	InventoryItemID string  `json:"inventoryItemId"`
	Name            string  `json:"name"`
	Quantity        float64 `json:"quantity"`
	Unit            string  `json:"unit,omitempty"`
}

// Rejection is the unit of work produced by PlanRejection. The item already
// carries the new section states and timeline; Releases and Sections describe
// the stock and packet effects that must commit with it.
type Rejection struct {
	Sections         []string  `json:"sections"`
	Releases         []Release `json:"releases"`
	PreviousAssignee string    `json:"previousAssignee,omitempty"`
	ReasonCode       string    `json:"reasonCode,omitempty"`
	Notes            string    `json:"notes"`
}

// NormalizeSections trims, lowercases and de-duplicates section names while
// keeping their order.
func NormalizeSections(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// lookup resolves the named sections, failing on closed items and unknown
// names before any mutation.
func lookup(item *orders.Item, action Action, sections []string) ([]*orders.SectionStatus, error) {
	if item.Status.IsClosed() {
		return nil, fmt.Errorf("%w: item is %s", production.ErrItemStatus, item.Status)
	}
	if len(item.SectionStatuses) == 0 {
		return nil, &TransitionError{Action: action, Reason: "item has no dyeing sections"}
	}
	if len(sections) == 0 {
		return nil, &TransitionError{Action: action, Reason: "no sections given"}
	}
	var unknown []string
	out := make([]*orders.SectionStatus, 0, len(sections))
	for _, name := range sections {
		sec := item.Section(name)
		if sec == nil {
			unknown = append(unknown, name)
			continue
		}
		out = append(out, sec)
	}
	if len(unknown) > 0 {
		return nil, &TransitionError{Action: action, Sections: unknown, Reason: "unknown sections"}
	}
	return out, nil
}

func titles(sections []string) string {
	out := make([]string, len(sections))
	for i, s := range sections {
		out[i] = production.SectionTitle(s)
	}
	return strings.Join(out, ", ")
}

// PlanAccept claims READY_FOR_DYEING sections for the actor. Only one dyer may
// hold sections of an item at a time.
func PlanAccept(item *orders.Item, sections []string, actor Actor, now time.Time) error {
	secs, err := lookup(item, ActionAccept, sections)
	if err != nil {
		return err
	}
	var invalid []string
	for i, sec := range secs {
		if sec.Status != orders.SectionReadyForDyeing {
			invalid = append(invalid, sections[i])
		}
	}
	if len(invalid) > 0 {
		return &TransitionError{Action: ActionAccept, Sections: invalid, Reason: "sections are not ready for dyeing"}
	}
	var held []string
	holder := ""
	for _, name := range item.Sections() {
		sec := item.SectionStatuses[name]
		if sec != nil && sec.Status.IsHeld() && sec.DyeingAcceptedBy != actor.ID {
			held = append(held, name)
			holder = sec.DyeingAcceptedByName
		}
	}
	if len(held) > 0 {
		return &TransitionError{Action: ActionAccept, Sections: held, Reason: fmt.Sprintf("item is already being dyed by %s", holder)}
	}

	for _, sec := range secs {
		sec.Status = orders.SectionDyeingAccepted
		sec.DyeingAcceptedBy = actor.ID
		sec.DyeingAcceptedByName = actor.Name
		at := now
		sec.DyeingAcceptedAt = &at
		sec.DyeingStartedAt = nil
		sec.DyeingCompletedAt = nil
	}
	item.AddTimeline("Dyeing accepted for "+titles(sections), actor.Name, now)
	item.Rederive()
	return nil
}

// PlanStart moves the actor's accepted sections into progress.
func PlanStart(item *orders.Item, sections []string, actor Actor, now time.Time) error {
	secs, err := lookup(item, ActionStart, sections)
	if err != nil {
		return err
	}
	var invalid, foreign []string
	for i, sec := range secs {
		switch {
		case sec.Status != orders.SectionDyeingAccepted:
			invalid = append(invalid, sections[i])
		case sec.DyeingAcceptedBy != actor.ID:
			foreign = append(foreign, sections[i])
		}
	}
	if len(invalid) > 0 {
		return &TransitionError{Action: ActionStart, Sections: invalid, Reason: "sections are not accepted for dyeing"}
	}
	if len(foreign) > 0 {
		return &TransitionError{Action: ActionStart, Sections: foreign, Reason: "sections are held by another user"}
	}

	for _, sec := range secs {
		sec.Status = orders.SectionDyeingInProgress
		at := now
		sec.DyeingStartedAt = &at
	}
	item.AddTimeline("Dyeing started for "+titles(sections), actor.Name, now)
	item.Rederive()
	return nil
}

// PlanComplete finishes the actor's accepted or in-progress sections and
// hands them to production.
func PlanComplete(item *orders.Item, sections []string, actor Actor, now time.Time) error {
	secs, err := lookup(item, ActionComplete, sections)
	if err != nil {
		return err
	}
	var invalid, foreign []string
	for i, sec := range secs {
		switch {
		case !sec.Status.IsHeld():
			invalid = append(invalid, sections[i])
		case sec.DyeingAcceptedBy != actor.ID:
			foreign = append(foreign, sections[i])
		}
	}
	if len(invalid) > 0 {
		return &TransitionError{Action: ActionComplete, Sections: invalid, Reason: "sections are not being dyed"}
	}
	if len(foreign) > 0 {
		return &TransitionError{Action: ActionComplete, Sections: foreign, Reason: "sections are held by another user"}
	}

	for _, sec := range secs {
		if sec.DyeingStartedAt == nil {
			at := now
			sec.DyeingStartedAt = &at
		}
		sec.Status = orders.SectionReadyForProduction
		at := now
		sec.DyeingCompletedAt = &at
	}
	item.AddTimeline("Dyeing completed for "+titles(sections), actor.Name, now)
	item.Rederive()
	return nil
}

// PlanRejection sends sections back to the inventory check. It validates
// every section first, then resets them, records the rejection and lists the
// reserved stock to release. Sections may be rejected by any dyer while they
// are ready, accepted or in progress.
func PlanRejection(item *orders.Item, sections []string, reasonCode, notes string, actor Actor, now time.Time) (Rejection, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return Rejection{}, ErrNotesRequired
	}
	secs, err := lookup(item, ActionReject, sections)
	if err != nil {
		return Rejection{}, err
	}
	var invalid []string
	for i, sec := range secs {
		if !sec.Status.CanReject() {
			invalid = append(invalid, sections[i])
		}
	}
	if len(invalid) > 0 {
		return Rejection{}, &TransitionError{Action: ActionReject, Sections: invalid, Reason: "sections are not in dyeing"}
	}

	rej := Rejection{
		Sections:         append([]string(nil), sections...),
		PreviousAssignee: item.FabricationAssignee,
		ReasonCode:       reasonCode,
		Notes:            notes,
	}
	for i, sec := range secs {
		name := sections[i]
		rej.Releases = append(rej.Releases, releasesFor(item, name, sec)...)

		sec.Status = orders.SectionPendingInventoryCheck
		sec.ClearDyeingAcceptance()
		sec.DyeingRejectedBy = actor.ID
		sec.DyeingRejectedByName = actor.Name
		at := now
		sec.DyeingRejectedAt = &at
		sec.DyeingRejectionReasonCode = reasonCode
		sec.DyeingRejectionNotes = notes
		sec.DyeingRound++
		sec.PreviousFabricationAssignee = item.FabricationAssignee
		sec.ReservedMaterials = nil
		sec.InventoryCheckResult = nil
	}
	item.Rederive()

	msg := "Dyeing rejected for " + titles(sections)
	if reasonCode != "" {
		msg += " (" + reasonCode + ")"
	}
	item.AddTimeline(msg+": "+notes, actor.Name, now)
	item.AddTimeline(releaseMessage(sections, rej.Releases), shared.SystemActor, now)
	return rej, nil
}

func releasesFor(item *orders.Item, section string, sec *orders.SectionStatus) []Release {
	names := map[string]orders.MaterialRequirement{}
	for _, req := range item.RequirementsFor(section) {
		names[req.InventoryItemID] = req
	}
	out := make([]Release, 0, len(sec.ReservedMaterials))
	for _, rm := range sec.ReservedMaterials {
		if rm.Quantity < inventory.Epsilon {
			continue
		}
		req := names[rm.InventoryItemID]
		name := req.Name
		if name == "" {
			name = rm.InventoryItemID
		}
		out = append(out, Release{
			Section:         section,
			InventoryItemID: rm.InventoryItemID,
			Name:            name,
			Quantity:        rm.Quantity,
			Unit:            req.Unit,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].InventoryItemID < out[j].InventoryItemID })
	return out
}

func releaseMessage(sections []string, releases []Release) string {
	if len(releases) == 0 {
		return "No reserved materials to release for " + titles(sections)
	}
	parts := make([]string, 0, len(releases))
	for _, r := range releases {
		qty := fmt.Sprintf("%g", r.Quantity)
		if r.Unit != "" {
			qty += " " + r.Unit
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", r.Name, qty))
	}
	return "Released to inventory for " + titles(sections) + ": " + strings.Join(parts, ", ")
}
