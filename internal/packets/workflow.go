package packets

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Assignment identifies who picks a new packet.
type Assignment struct {
	OrderItemID    string
	OrderID        string
	OrderNumber    string
	AssignedTo     string
	AssignedToName string
}

// Include adds a section to the open packet of the item, creating one when
// none is open. It runs inside the caller's transaction.
func Include(ctx context.Context, tx TxRepository, a Assignment, section string, items []PickItem, now time.Time) (Packet, error) {
	existing, err := tx.ListItemPacketsForUpdate(ctx, a.OrderItemID)
	if err != nil {
		return Packet{}, err
	}
	for _, p := range existing {
		if !p.Status.IsOpen() {
			continue
		}
		p.AddSection(section, items, now)
		if err := tx.UpdatePacket(ctx, p); err != nil {
			return Packet{}, err
		}
		return p, nil
	}
	p := Packet{
		ID:             uuid.NewString(),
		OrderItemID:    a.OrderItemID,
		OrderID:        a.OrderID,
		OrderNumber:    a.OrderNumber,
		Status:         StatusAssigned,
		AssignedTo:     a.AssignedTo,
		AssignedToName: a.AssignedToName,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	p.AddSection(section, items, now)
	if err := tx.CreatePacket(ctx, p); err != nil {
		return Packet{}, err
	}
	return p, nil
}

// RemoveSection drops the section from every packet of the item and returns
// the packets that changed. It runs inside the caller's transaction.
func RemoveSection(ctx context.Context, tx TxRepository, orderItemID, section string, now time.Time) ([]Packet, error) {
	existing, err := tx.ListItemPacketsForUpdate(ctx, orderItemID)
	if err != nil {
		return nil, err
	}
	var changed []Packet
	for _, p := range existing {
		if !p.RemoveSection(section, now) {
			continue
		}
		if err := tx.UpdatePacket(ctx, p); err != nil {
			return nil, err
		}
		changed = append(changed, p)
	}
	return changed, nil
}

// InvalidateAll marks every open packet of the item invalidated.
func InvalidateAll(ctx context.Context, tx TxRepository, orderItemID string, now time.Time) ([]Packet, error) {
	existing, err := tx.ListItemPacketsForUpdate(ctx, orderItemID)
	if err != nil {
		return nil, err
	}
	var changed []Packet
	for _, p := range existing {
		if p.Status == StatusInvalidated {
			continue
		}
		for _, s := range append([]string(nil), p.SectionsIncluded...) {
			p.RemoveSection(s, now)
		}
		if p.Status != StatusInvalidated {
			at := now
			p.Status = StatusInvalidated
			p.InvalidatedAt = &at
			p.UpdatedAt = now
		}
		if err := tx.UpdatePacket(ctx, p); err != nil {
			return nil, err
		}
		changed = append(changed, p)
	}
	return changed, nil
}
