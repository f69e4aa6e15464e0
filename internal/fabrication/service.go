// Package fabrication authors custom bills of materials and runs the
// per-section inventory check that hands sections to dyeing.
package fabrication

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/tailorflow/tailorflow/internal/inventory"
	"github.com/tailorflow/tailorflow/internal/orders"
	"github.com/tailorflow/tailorflow/internal/packets"
	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/production"
	"github.com/tailorflow/tailorflow/internal/shared"
)

const module = "fabrication"

var (
	// ErrNoSections is returned for inventory checks on items without sections.
	ErrNoSections = fmt.Errorf("%w: item has no sections to check", httpx.ErrValidation)
	// ErrNothingToCheck is returned when no requested section awaits a check.
	ErrNothingToCheck = fmt.Errorf("%w: no section is waiting for an inventory check", httpx.ErrValidation)
)

// BOMRequest is the body of a custom BOM submission.
type BOMRequest struct {
	Items []orders.MaterialRequirement `json:"items" validate:"required,min=1,dive"`
}

// CheckRequest selects sections for an inventory check. Empty means every
// section that is waiting.
type CheckRequest struct {
	Sections []string `json:"sections" validate:"omitempty,dive,required,max=50"`
}

// SectionOutcome is the result of checking one section.
type SectionOutcome struct {
	Section   string                    `json:"section"`
	Status    orders.SectionState       `json:"status"`
	Reserved  []orders.ReservedMaterial `json:"reserved,omitempty"`
	Shortages []orders.MaterialShortage `json:"shortages,omitempty"`
}

// CheckResult is the outcome of an inventory check.
type CheckResult struct {
	Item     orders.Item      `json:"item"`
	Sections []SectionOutcome `json:"sections"`
	Packet   *packets.Packet  `json:"packet,omitempty"`
}

// QueueStatuses are the item statuses fabrication works on.
var QueueStatuses = []orders.ItemStatus{
	orders.ItemFabricationBespoke,
	orders.ItemInventoryCheck,
	orders.ItemAwaitingMaterial,
}

var checkable = []orders.SectionState{
	orders.SectionPendingInventoryCheck,
	orders.SectionAwaitingMaterial,
}

// Service runs fabrication transitions.
type Service struct {
	flow  *production.Workflow
	items production.ItemReader
}

// NewService builds Service.
func NewService(flow *production.Workflow, items production.ItemReader) *Service {
	return &Service{flow: flow, items: items}
}

// Queue lists items waiting for a BOM or an inventory check, including
// sections sent back by dyeing. With userID set only rework addressed to that
// user is returned.
func (s *Service) Queue(ctx context.Context, userID string) ([]orders.Item, error) {
	bespoke, err := s.items.ListItems(ctx, orders.ItemFilter{Statuses: QueueStatuses})
	if err != nil {
		return nil, err
	}
	waiting, err := s.items.ListItems(ctx, orders.ItemFilter{SectionStates: checkable})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(bespoke))
	var out []orders.Item
	for _, list := range [][]orders.Item{bespoke, waiting} {
		for _, it := range list {
			if _, ok := seen[it.ID]; ok {
				continue
			}
			seen[it.ID] = struct{}{}
			if userID != "" && !reworkFor(it, userID) {
				continue
			}
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func reworkFor(it orders.Item, userID string) bool {
	for _, sec := range it.SectionStatuses {
		if sec != nil && sec.DyeingRound > 0 && sec.Status == orders.SectionPendingInventoryCheck && sec.PreviousFabricationAssignee == userID {
			return true
		}
	}
	return false
}

// SubmitBOM records the custom bill of materials of a bespoke item and opens
// its sections for the inventory check.
func (s *Service) SubmitBOM(ctx context.Context, itemID string, req BOMRequest, p *shared.Principal) (orders.Item, error) {
	if p == nil {
		return orders.Item{}, httpx.ErrUnauthorized
	}
	return s.flow.Item(ctx, module, "submit_bom", itemID, func(ctx context.Context, tx production.Tx, item *orders.Item, now time.Time) error {
		if !item.Status.CanSubmitBOM() {
			return fmt.Errorf("%w: item is %s", production.ErrItemStatus, item.Status)
		}
		reqs := make([]orders.MaterialRequirement, 0, len(req.Items))
		for _, line := range req.Items {
			line.Section = strings.ToLower(strings.TrimSpace(line.Section))
			stock, err := tx.GetInventoryForUpdate(ctx, line.InventoryItemID)
			if err != nil {
				return fmt.Errorf("material %s: %w", line.InventoryItemID, err)
			}
			if line.Name == "" {
				line.Name = stock.Name
			}
			if line.Unit == "" {
				line.Unit = stock.Unit
			}
			reqs = append(reqs, line)
		}
		item.MaterialRequirements = reqs
		item.CustomBOM = &orders.CustomBOM{Items: reqs, SubmittedBy: p.DisplayName(), SubmittedAt: now}
		if item.SectionStatuses == nil {
			item.SectionStatuses = map[string]*orders.SectionStatus{}
		}
		for _, line := range reqs {
			if item.Section(line.Section) == nil {
				item.SectionStatuses[line.Section] = &orders.SectionStatus{Status: orders.SectionPendingInventoryCheck}
			}
		}
		item.FabricationAssignee = p.UserID
		item.FabricationAssigneeName = p.DisplayName()
		item.Status = orders.ItemInventoryCheck
		item.Rederive()
		item.AddTimeline(fmt.Sprintf("Custom BOM submitted (%d materials)", len(reqs)), p.DisplayName(), now)
		return nil
	})
}

// CheckInventory checks stock for the selected sections. Sections whose
// materials are all available get them reserved, move to READY_FOR_DYEING and
// join the item's packet; the rest wait for material.
func (s *Service) CheckInventory(ctx context.Context, itemID string, req CheckRequest, p *shared.Principal) (CheckResult, error) {
	if p == nil {
		return CheckResult{}, httpx.ErrUnauthorized
	}
	var res CheckResult
	item, err := s.flow.Item(ctx, module, "check_inventory", itemID, func(ctx context.Context, tx production.Tx, item *orders.Item, now time.Time) error {
		names, err := selectSections(item, req.Sections)
		if err != nil {
			return err
		}
		for _, name := range names {
			out, err := checkSection(ctx, tx, item, name, p, now)
			if err != nil {
				return err
			}
			if out.Status == orders.SectionReadyForDyeing {
				pk, err := packets.Include(ctx, tx, packets.Assignment{
					OrderItemID:    item.ID,
					OrderID:        item.OrderID,
					OrderNumber:    item.OrderNumber,
					AssignedTo:     p.UserID,
					AssignedToName: p.DisplayName(),
				}, name, pickItems(item, name), now)
				if err != nil {
					return fmt.Errorf("packet: %w", err)
				}
				res.Packet = &pk
			}
			res.Sections = append(res.Sections, out)
		}
		item.FabricationAssignee = p.UserID
		item.FabricationAssigneeName = p.DisplayName()
		item.Rederive()
		return nil
	})
	if err != nil {
		return CheckResult{}, err
	}
	res.Item = item
	return res, nil
}

func selectSections(item *orders.Item, requested []string) ([]string, error) {
	if item.Status.IsClosed() {
		return nil, fmt.Errorf("%w: item is %s", production.ErrItemStatus, item.Status)
	}
	if len(item.SectionStatuses) == 0 {
		return nil, ErrNoSections
	}
	if len(requested) == 0 {
		var names []string
		for _, name := range item.Sections() {
			if isCheckable(item.SectionStatuses[name]) {
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			return nil, ErrNothingToCheck
		}
		return names, nil
	}
	var names, unknown, invalid []string
	seen := map[string]struct{}{}
	for _, raw := range requested {
		name := strings.ToLower(strings.TrimSpace(raw))
		if _, ok := seen[name]; ok || name == "" {
			continue
		}
		seen[name] = struct{}{}
		sec := item.Section(name)
		switch {
		case sec == nil:
			unknown = append(unknown, name)
		case !isCheckable(sec):
			invalid = append(invalid, name)
		default:
			names = append(names, name)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: unknown sections %s", httpx.ErrValidation, strings.Join(unknown, ", "))
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("%w: sections %s are not waiting for an inventory check", httpx.ErrValidation, strings.Join(invalid, ", "))
	}
	return names, nil
}

func isCheckable(sec *orders.SectionStatus) bool {
	return sec != nil && (sec.Status == orders.SectionPendingInventoryCheck || sec.Status == orders.SectionAwaitingMaterial)
}

// needs sums the section's requirements per inventory item in first-seen order.
func needs(item *orders.Item, section string) []orders.MaterialRequirement {
	idx := map[string]int{}
	var out []orders.MaterialRequirement
	for _, r := range item.RequirementsFor(section) {
		if i, ok := idx[r.InventoryItemID]; ok {
			out[i].Quantity += r.Quantity
			continue
		}
		idx[r.InventoryItemID] = len(out)
		out = append(out, r)
	}
	return out
}

func checkSection(ctx context.Context, tx production.Tx, item *orders.Item, name string, p *shared.Principal, now time.Time) (SectionOutcome, error) {
	sec := item.Section(name)
	reqs := needs(item, name)
	result := &orders.InventoryCheckResult{Sufficient: true, CheckedBy: p.DisplayName(), CheckedAt: now}
	for _, r := range reqs {
		stock, err := tx.GetInventoryForUpdate(ctx, r.InventoryItemID)
		if err != nil {
			return SectionOutcome{}, fmt.Errorf("material %s: %w", r.InventoryItemID, err)
		}
		if stock.RemainingStock+1e-9 < r.Quantity {
			result.Sufficient = false
			result.Shortages = append(result.Shortages, orders.MaterialShortage{
				InventoryItemID: r.InventoryItemID,
				Name:            r.Name,
				Required:        r.Quantity,
				Available:       math.Max(stock.RemainingStock, 0),
			})
		}
	}
	sec.InventoryCheckResult = result
	title := production.SectionTitle(name)
	if !result.Sufficient {
		sec.Status = orders.SectionAwaitingMaterial
		parts := make([]string, len(result.Shortages))
		for i, sh := range result.Shortages {
			parts[i] = fmt.Sprintf("%s (need %g, have %g)", sh.Name, sh.Required, sh.Available)
		}
		item.AddTimeline(fmt.Sprintf("Awaiting material for %s: %s", title, strings.Join(parts, ", ")), p.DisplayName(), now)
		return SectionOutcome{Section: name, Status: sec.Status, Shortages: result.Shortages}, nil
	}

	sec.ReservedMaterials = nil
	for _, r := range reqs {
		_, _, err := inventory.Post(ctx, tx, inventory.MovementInput{
			InventoryItemID: r.InventoryItemID,
			Type:            inventory.MovementReserve,
			Delta:           -r.Quantity,
			Reason:          fmt.Sprintf("Reserved for %s of %s", title, item.OrderNumber),
			RefModule:       module,
			RefID:           item.ID,
			Actor:           p.DisplayName(),
		}, now)
		if err != nil {
			return SectionOutcome{}, fmt.Errorf("reserve %s: %w", r.InventoryItemID, err)
		}
		sec.ReservedMaterials = append(sec.ReservedMaterials, orders.ReservedMaterial{InventoryItemID: r.InventoryItemID, Quantity: r.Quantity})
	}
	sec.Status = orders.SectionReadyForDyeing
	if len(reqs) == 0 {
		item.AddTimeline(fmt.Sprintf("Inventory check passed for %s; nothing to reserve", title), p.DisplayName(), now)
	} else {
		item.AddTimeline(fmt.Sprintf("Inventory check passed for %s; materials reserved", title), p.DisplayName(), now)
	}
	return SectionOutcome{Section: name, Status: sec.Status, Reserved: sec.ReservedMaterials}, nil
}

func pickItems(item *orders.Item, section string) []packets.PickItem {
	reqs := needs(item, section)
	out := make([]packets.PickItem, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, packets.PickItem{InventoryItemID: r.InventoryItemID, Name: r.Name, Section: section, Quantity: r.Quantity, Unit: r.Unit})
	}
	return out
}
