package packets

import (
	"fmt"
	"time"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
)

// Status is the lifecycle of a material packet.
type Status string

const (
	StatusAssigned    Status = "ASSIGNED"
	StatusInProgress  Status = "IN_PROGRESS"
	StatusCompleted   Status = "COMPLETED"
	StatusInvalidated Status = "INVALIDATED"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusAssigned, StatusInProgress, StatusCompleted, StatusInvalidated:
		return true
	default:
		return false
	}
}

// CanStart reports whether picking may begin.
func (s Status) CanStart() bool {
	return s == StatusAssigned
}

// CanComplete reports whether picking may be marked done.
func (s Status) CanComplete() bool {
	return s == StatusAssigned || s == StatusInProgress
}

// IsOpen reports whether the packet still accepts sections.
func (s Status) IsOpen() bool {
	return s == StatusAssigned || s == StatusInProgress
}

// PickItem is one material to pick for the packet.
type PickItem struct {
	InventoryItemID string  `json:"inventoryItemId"`
	Name            string  `json:"name"`
	Section         string  `json:"section"`
	Quantity        float64 `json:"quantity"`
	Unit            string  `json:"unit"`
}

// Packet groups the materials picked for sections of one order item.
type Packet struct {
	ID                  string     `json:"id"`
	OrderItemID         string     `json:"orderItemId"`
	OrderID             string     `json:"orderId"`
	OrderNumber         string     `json:"orderNumber"`
	Status              Status     `json:"status"`
	AssignedTo          string     `json:"assignedTo,omitempty"`
	AssignedToName      string     `json:"assignedToName,omitempty"`
	SectionsIncluded    []string   `json:"sectionsIncluded"`
	SectionsInvalidated []string   `json:"sectionsInvalidated,omitempty"`
	Items               []PickItem `json:"items"`
	StartedAt           *time.Time `json:"startedAt,omitempty"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
	InvalidatedAt       *time.Time `json:"invalidatedAt,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// Includes reports whether the section is part of the packet.
func (p *Packet) Includes(section string) bool {
	for _, s := range p.SectionsIncluded {
		if s == section {
			return true
		}
	}
	return false
}

// AddSection includes a section and its pick list. Adding a section that is
// already included is a no-op.
func (p *Packet) AddSection(section string, items []PickItem, at time.Time) {
	if p.Includes(section) {
		return
	}
	p.SectionsIncluded = append(p.SectionsIncluded, section)
	p.Items = append(p.Items, items...)
	p.UpdatedAt = at
}

// RemoveSection drops a section and its pick lines. A packet left without
// sections is invalidated. It reports whether the packet changed.
func (p *Packet) RemoveSection(section string, at time.Time) bool {
	if !p.Includes(section) {
		return false
	}
	kept := p.SectionsIncluded[:0:0]
	for _, s := range p.SectionsIncluded {
		if s != section {
			kept = append(kept, s)
		}
	}
	p.SectionsIncluded = kept
	p.SectionsInvalidated = append(p.SectionsInvalidated, section)

	items := p.Items[:0:0]
	for _, it := range p.Items {
		if it.Section != section {
			items = append(items, it)
		}
	}
	p.Items = items
	if len(p.SectionsIncluded) == 0 {
		p.Status = StatusInvalidated
		p.InvalidatedAt = &at
	}
	p.UpdatedAt = at
	return true
}

// Clone returns a deep copy.
func (p Packet) Clone() Packet {
	out := p
	out.SectionsIncluded = append([]string(nil), p.SectionsIncluded...)
	out.SectionsInvalidated = append([]string(nil), p.SectionsInvalidated...)
	out.Items = append([]PickItem(nil), p.Items...)
	out.StartedAt = cloneTime(p.StartedAt)
	out.CompletedAt = cloneTime(p.CompletedAt)
	out.InvalidatedAt = cloneTime(p.InvalidatedAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// ListFilter filters packet listings.
type ListFilter struct {
	Status      Status
	AssignedTo  string
	OrderItemID string
}

// Matches reports whether the packet satisfies the filter.
func (f ListFilter) Matches(p Packet) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.AssignedTo != "" && p.AssignedTo != f.AssignedTo {
		return false
	}
	if f.OrderItemID != "" && p.OrderItemID != f.OrderItemID {
		return false
	}
	return true
}

var (
	// ErrPacketNotFound is returned for unknown packets.
	ErrPacketNotFound = fmt.Errorf("packet %w", httpx.ErrNotFound)
	// ErrInvalidTransition is returned when the packet status forbids the action.
	ErrInvalidTransition = fmt.Errorf("%w: packet status does not allow this action", httpx.ErrValidation)
	// ErrNotAssignee is returned when another user acts on an assigned packet.
	ErrNotAssignee = fmt.Errorf("%w: packet is assigned to another user", httpx.ErrForbidden)
)
