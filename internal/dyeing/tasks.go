package dyeing

import (
	"context"
	"log/slog"
	"time"

	"github.com/tailorflow/tailorflow/internal/orders"
)

// Scope narrows the task queue.
type Scope string

const (
	ScopeAll       Scope = "all"
	ScopeAvailable Scope = "available"
	ScopeMine      Scope = "mine"
)

// TaskSection is one section on the dyeing floor.
type TaskSection struct {
	Name                string                       `json:"name"`
	Status              orders.SectionState          `json:"status"`
	DyeingRound         int                          `json:"dyeingRound"`
	AcceptedBy          string                       `json:"acceptedBy,omitempty"`
	AcceptedByName      string                       `json:"acceptedByName,omitempty"`
	AcceptedAt          *time.Time                   `json:"acceptedAt,omitempty"`
	StartedAt           *time.Time                   `json:"startedAt,omitempty"`
	LastRejectionReason string                       `json:"lastRejectionReason,omitempty"`
	LastRejectionNotes  string                       `json:"lastRejectionNotes,omitempty"`
	Materials           []orders.MaterialRequirement `json:"materials,omitempty"`
}

// Task groups the dyeing sections of one order item.
type Task struct {
	OrderItemID string            `json:"orderItemId"`
	OrderID     string            `json:"orderId"`
	OrderNumber string            `json:"orderNumber"`
	ProductName string            `json:"productName"`
	Size        string            `json:"size"`
	Quantity    int               `json:"quantity"`
	ItemStatus  orders.ItemStatus `json:"itemStatus"`
	HeldBy      string            `json:"heldBy,omitempty"`
	Sections    []TaskSection     `json:"sections"`
}

// Stats summarises the dyeing floor.
type Stats struct {
	Items      int `json:"items"`
	Available  int `json:"available"`
	Accepted   int `json:"accepted"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Reworked   int `json:"reworked"`
	MyActive   int `json:"myActive"`
}

var floorStates = []orders.SectionState{
	orders.SectionReadyForDyeing,
	orders.SectionDyeingAccepted,
	orders.SectionDyeingInProgress,
	orders.SectionDyeingCompleted,
	orders.SectionReadyForProduction,
}

var statsStates = []orders.SectionState{
	orders.SectionPendingInventoryCheck,
	orders.SectionAwaitingMaterial,
	orders.SectionReadyForDyeing,
	orders.SectionDyeingAccepted,
	orders.SectionDyeingInProgress,
	orders.SectionDyeingCompleted,
	orders.SectionReadyForProduction,
}

// BuildTasks lists the active dyeing sections of items for the given scope.
func BuildTasks(items []orders.Item, scope Scope, userID string) []Task {
	out := make([]Task, 0, len(items))
	for i := range items {
		it := &items[i]
		holderID, holder := "", ""
		for _, name := range it.Sections() {
			if sec := it.SectionStatuses[name]; sec != nil && sec.Status.IsHeld() {
				holderID, holder = sec.DyeingAcceptedBy, sec.DyeingAcceptedByName
				break
			}
		}
		var sections []TaskSection
		for _, name := range it.Sections() {
			sec := it.SectionStatuses[name]
			if sec == nil || !sec.Status.IsActiveDyeing() {
				continue
			}
			switch scope {
			case ScopeAvailable:
				if sec.Status != orders.SectionReadyForDyeing || (holderID != "" && holderID != userID) {
					continue
				}
			case ScopeMine:
				if !sec.Status.IsHeld() || sec.DyeingAcceptedBy != userID {
					continue
				}
			}
			sections = append(sections, TaskSection{
				Name:                name,
				Status:              sec.Status,
				DyeingRound:         sec.DyeingRound,
				AcceptedBy:          sec.DyeingAcceptedBy,
				AcceptedByName:      sec.DyeingAcceptedByName,
				AcceptedAt:          sec.DyeingAcceptedAt,
				StartedAt:           sec.DyeingStartedAt,
				LastRejectionReason: sec.DyeingRejectionReasonCode,
				LastRejectionNotes:  sec.DyeingRejectionNotes,
				Materials:           it.RequirementsFor(name),
			})
		}
		if len(sections) == 0 {
			continue
		}
		out = append(out, Task{
			OrderItemID: it.ID,
			OrderID:     it.OrderID,
			OrderNumber: it.OrderNumber,
			ProductName: it.ProductName,
			Size:        it.Size,
			Quantity:    it.Quantity,
			ItemStatus:  it.Status,
			HeldBy:      holder,
			Sections:    sections,
		})
	}
	return out
}

// ComputeStats scans items once and counts sections per dyeing state.
func ComputeStats(items []orders.Item, userID string) Stats {
	var st Stats
	for i := range items {
		it := &items[i]
		counted := false
		for _, sec := range it.SectionStatuses {
			if sec == nil {
				continue
			}
			switch sec.Status {
			case orders.SectionReadyForDyeing:
				st.Available++
			case orders.SectionDyeingAccepted:
				st.Accepted++
			case orders.SectionDyeingInProgress:
				st.InProgress++
			case orders.SectionDyeingCompleted, orders.SectionReadyForProduction:
				if sec.DyeingCompletedAt != nil {
					st.Completed++
				}
			case orders.SectionPendingInventoryCheck, orders.SectionAwaitingMaterial:
				if sec.DyeingRound > 0 {
					st.Reworked++
				}
			}
			if sec.Status.IsHeld() && sec.DyeingAcceptedBy == userID {
				st.MyActive++
			}
			if sec.Status.IsActiveDyeing() {
				counted = true
			}
		}
		if counted {
			st.Items++
		}
	}
	return st
}

// Tasks returns the dyeing queue.
func (s *Service) Tasks(ctx context.Context, scope Scope, userID string) ([]Task, error) {
	items, err := s.items.ListItems(ctx, orders.ItemFilter{SectionStates: floorStates})
	if err != nil {
		return nil, err
	}
	return BuildTasks(items, scope, userID), nil
}

// Stats returns floor counters, served from the versioned cache when one is
// configured. Cache failures fall back to a direct scan.
func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	load := func(ctx context.Context) (any, error) {
		items, err := s.items.ListItems(ctx, orders.ItemFilter{SectionStates: statsStates})
		if err != nil {
			return nil, err
		}
		return ComputeStats(items, userID), nil
	}
	if s.stats != nil {
		key, err := s.stats.BuildKey(ctx, "stats", userID)
		if err == nil {
			var st Stats
			if err = s.stats.FetchJSON(ctx, key, &st, load); err == nil {
				return st, nil
			}
		}
		s.logger.Warn("dyeing stats cache", slog.Any("error", err))
	}
	v, err := load(ctx)
	if err != nil {
		return Stats{}, err
	}
	return v.(Stats), nil
}
