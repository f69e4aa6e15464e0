package dyeing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tailorflow/tailorflow/internal/inventory"
	"github.com/tailorflow/tailorflow/internal/orders"
	"github.com/tailorflow/tailorflow/internal/packets"
	"github.com/tailorflow/tailorflow/internal/platform/cache"
	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/production"
	"github.com/tailorflow/tailorflow/internal/shared"
)

const module = "dyeing"

// Request is the body of every dyeing transition.
type Request struct {
	UserID     string   `json:"userId" validate:"omitempty,max=64"`
	Sections   []string `json:"sections" validate:"required,min=1,dive,required,max=50"`
	ReasonCode string   `json:"reasonCode,omitempty" validate:"omitempty,oneof=COLOR_MISMATCH FABRIC_DEFECT WRONG_MATERIAL INSUFFICIENT_QUANTITY OTHER"`
	Notes      string   `json:"notes,omitempty" validate:"max=1000"`
}

// ReworkNotice tells fabrication that rejected sections need a new check.
type ReworkNotice struct {
	OrderItemID string    `json:"orderItemId"`
	OrderNumber string    `json:"orderNumber"`
	ProductName string    `json:"productName"`
	Sections    []string  `json:"sections"`
	Round       int       `json:"round"`
	ReasonCode  string    `json:"reasonCode,omitempty"`
	Notes       string    `json:"notes"`
	RejectedBy  string    `json:"rejectedBy"`
	Recipient   string    `json:"recipient"`
	RejectedAt  time.Time `json:"rejectedAt"`
}

// ReworkNotifier delivers rework notices after a rejection commits.
type ReworkNotifier interface {
	NotifyRework(ctx context.Context, notice ReworkNotice) error
}

// RejectResult is the outcome of a committed rejection.
type RejectResult struct {
	Item      orders.Item      `json:"item"`
	Rejection Rejection        `json:"rejection"`
	Packets   []packets.Packet `json:"packets"`
}

// Service runs dyeing transitions.
type Service struct {
	flow     *production.Workflow
	items    production.ItemReader
	stats    *cache.Versioned
	notifier ReworkNotifier
	logger   *slog.Logger
}

// NewService builds Service. stats and notifier may be nil.
func NewService(flow *production.Workflow, items production.ItemReader, stats *cache.Versioned, notifier ReworkNotifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{flow: flow, items: items, stats: stats, notifier: notifier, logger: logger}
}

type planFunc func(item *orders.Item, sections []string, actor Actor, now time.Time) error

// Accept claims sections for the caller.
func (s *Service) Accept(ctx context.Context, itemID string, req Request, p *shared.Principal) (orders.Item, error) {
	return s.simple(ctx, ActionAccept, itemID, req, p, PlanAccept)
}

// Start begins dyeing the caller's accepted sections.
func (s *Service) Start(ctx context.Context, itemID string, req Request, p *shared.Principal) (orders.Item, error) {
	return s.simple(ctx, ActionStart, itemID, req, p, PlanStart)
}

// Complete finishes the caller's sections.
func (s *Service) Complete(ctx context.Context, itemID string, req Request, p *shared.Principal) (orders.Item, error) {
	return s.simple(ctx, ActionComplete, itemID, req, p, PlanComplete)
}

func (s *Service) simple(ctx context.Context, action Action, itemID string, req Request, p *shared.Principal, plan planFunc) (orders.Item, error) {
	actor, sections, err := resolve(req, p)
	if err != nil {
		s.flow.Done(ctx, module, string(action), err)
		return orders.Item{}, err
	}
	return s.flow.Item(ctx, module, string(action), itemID, func(ctx context.Context, tx production.Tx, item *orders.Item, now time.Time) error {
		return plan(item, sections, actor, now)
	})
}

// Reject sends sections back to the inventory check, releasing their
// reserved stock and pulling them from packets in the same transaction.
func (s *Service) Reject(ctx context.Context, itemID string, req Request, p *shared.Principal) (RejectResult, error) {
	actor, sections, err := resolve(req, p)
	if err != nil {
		s.flow.Done(ctx, module, string(ActionReject), err)
		return RejectResult{}, err
	}
	var res RejectResult
	item, err := s.flow.Item(ctx, module, string(ActionReject), itemID, func(ctx context.Context, tx production.Tx, item *orders.Item, now time.Time) error {
		rej, err := PlanRejection(item, sections, req.ReasonCode, req.Notes, actor, now)
		if err != nil {
			return err
		}
		for _, rel := range rej.Releases {
			_, _, err := inventory.Post(ctx, tx, inventory.MovementInput{
				InventoryItemID: rel.InventoryItemID,
				Type:            inventory.MovementRelease,
				Delta:           rel.Quantity,
				Reason:          fmt.Sprintf("Dyeing rejected: %s of %s", production.SectionTitle(rel.Section), item.OrderNumber),
				RefModule:       module,
				RefID:           item.ID,
				Actor:           shared.SystemActor,
			}, now)
			if err != nil {
				return fmt.Errorf("release %s: %w", rel.InventoryItemID, err)
			}
		}
		touched := map[string]int{}
		for _, name := range rej.Sections {
			changed, err := packets.RemoveSection(ctx, tx, item.ID, name, now)
			if err != nil {
				return fmt.Errorf("invalidate packets: %w", err)
			}
			for _, pk := range changed {
				if i, ok := touched[pk.ID]; ok {
					res.Packets[i] = pk
					continue
				}
				touched[pk.ID] = len(res.Packets)
				res.Packets = append(res.Packets, pk)
			}
		}
		res.Rejection = rej
		return nil
	})
	if err != nil {
		return RejectResult{}, err
	}
	res.Item = item
	s.notify(ctx, item, res.Rejection, actor)
	return res, nil
}

func (s *Service) notify(ctx context.Context, item orders.Item, rej Rejection, actor Actor) {
	if s.notifier == nil || rej.PreviousAssignee == "" {
		return
	}
	round := 0
	for _, name := range rej.Sections {
		if sec := item.Section(name); sec != nil && sec.DyeingRound > round {
			round = sec.DyeingRound
		}
	}
	notice := ReworkNotice{
		OrderItemID: item.ID,
		OrderNumber: item.OrderNumber,
		ProductName: item.ProductName,
		Sections:    rej.Sections,
		Round:       round,
		ReasonCode:  rej.ReasonCode,
		Notes:       rej.Notes,
		RejectedBy:  actor.Name,
		Recipient:   rej.PreviousAssignee,
		RejectedAt:  item.UpdatedAt,
	}
	if err := s.notifier.NotifyRework(ctx, notice); err != nil {
		s.logger.Warn("enqueue rework notice", slog.String("item_id", item.ID), slog.Any("error", err))
	}
}

// resolve checks the body against the caller and normalises sections.
func resolve(req Request, p *shared.Principal) (Actor, []string, error) {
	if p == nil {
		return Actor{}, nil, httpx.ErrUnauthorized
	}
	if req.UserID != "" && req.UserID != p.UserID {
		return Actor{}, nil, ErrUserMismatch
	}
	return Actor{ID: p.UserID, Name: p.DisplayName()}, NormalizeSections(req.Sections), nil
}
