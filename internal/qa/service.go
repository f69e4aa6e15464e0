// Package qa implements the quality review between stitching and dispatch.
package qa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tailorflow/tailorflow/internal/orders"
	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/production"
	"github.com/tailorflow/tailorflow/internal/shared"
)

const module = "qa"

// ErrNotesRequired is returned for rejections without notes.
var ErrNotesRequired = httpx.FieldErrors{"notes": "rejection notes are required"}

// QueueStatuses are the item statuses waiting for review.
var QueueStatuses = []orders.ItemStatus{
	orders.ItemReadyForProduction,
	orders.ItemProductionCompleted,
	orders.ItemQualityAssurance,
}

// ReviewRequest is the body of approve and reject.
type ReviewRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

// Service runs QA transitions.
type Service struct {
	flow  *production.Workflow
	items production.ItemReader
}

// NewService builds Service.
func NewService(flow *production.Workflow, items production.ItemReader) *Service {
	return &Service{flow: flow, items: items}
}

// Queue lists items awaiting review.
func (s *Service) Queue(ctx context.Context) ([]orders.Item, error) {
	return s.items.ListItems(ctx, orders.ItemFilter{Statuses: QueueStatuses})
}

// Begin marks a stitched item as under review.
func (s *Service) Begin(ctx context.Context, itemID string, p *shared.Principal) (orders.Item, error) {
	if p == nil {
		return orders.Item{}, httpx.ErrUnauthorized
	}
	return s.flow.Item(ctx, module, "begin", itemID, func(ctx context.Context, tx production.Tx, item *orders.Item, now time.Time) error {
		if item.Status != orders.ItemProductionCompleted {
			return fmt.Errorf("%w: item is %s", production.ErrItemStatus, item.Status)
		}
		item.Status = orders.ItemQualityAssurance
		item.AddTimeline("Quality review started", p.DisplayName(), now)
		return nil
	})
}

// Approve passes the item to dispatch.
func (s *Service) Approve(ctx context.Context, itemID string, req ReviewRequest, p *shared.Principal) (orders.Item, error) {
	if p == nil {
		return orders.Item{}, httpx.ErrUnauthorized
	}
	notes := strings.TrimSpace(req.Notes)
	return s.flow.Item(ctx, module, "approve", itemID, func(ctx context.Context, tx production.Tx, item *orders.Item, now time.Time) error {
		if !item.Status.CanReview() {
			return fmt.Errorf("%w: item is %s", production.ErrItemStatus, item.Status)
		}
		item.Status = orders.ItemReadyForDispatch
		item.QANotes = notes
		item.QAReviewedBy = p.DisplayName()
		item.QAReviewedAt = &now
		item.AddTimeline("QA approved", p.DisplayName(), now)
		return nil
	})
}

// Reject sends the item back to stitching. Notes are mandatory.
func (s *Service) Reject(ctx context.Context, itemID string, req ReviewRequest, p *shared.Principal) (orders.Item, error) {
	if p == nil {
		return orders.Item{}, httpx.ErrUnauthorized
	}
	notes := strings.TrimSpace(req.Notes)
	if notes == "" {
		s.flow.Done(ctx, module, "reject", ErrNotesRequired)
		return orders.Item{}, ErrNotesRequired
	}
	return s.flow.Item(ctx, module, "reject", itemID, func(ctx context.Context, tx production.Tx, item *orders.Item, now time.Time) error {
		if !item.Status.CanReview() {
			return fmt.Errorf("%w: item is %s", production.ErrItemStatus, item.Status)
		}
		item.Status = orders.ItemQARejected
		item.QARound++
		item.QANotes = notes
		item.QAReviewedBy = p.DisplayName()
		item.QAReviewedAt = &now
		item.AddTimeline(fmt.Sprintf("QA rejected (round %d): %s", item.QARound, notes), p.DisplayName(), now)
		return nil
	})
}
