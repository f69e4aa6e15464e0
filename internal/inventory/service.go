package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
)

// Service orchestrates stock operations.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List returns stock items matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Item, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	return FilterItems(items, filter), nil
}

// FilterItems applies search, category and low-stock filters and sorting.
func FilterItems(items []Item, filter ListFilter) []Item {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if filter.Category != "" && it.Category != filter.Category {
			continue
		}
		if filter.LowOnly && !it.IsLow() {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(it.Name), search) && !strings.Contains(strings.ToLower(it.SKU), search) {
			continue
		}
		out = append(out, it)
	}
	less := func(a, b Item) bool { return a.Name < b.Name }
	switch filter.SortBy {
	case "sku":
		less = func(a, b Item) bool { return a.SKU < b.SKU }
	case "stock":
		less = func(a, b Item) bool { return a.RemainingStock < b.RemainingStock }
	case "updated":
		less = func(a, b Item) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	}
	sort.SliceStable(out, func(i, j int) bool {
		if filter.SortDesc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

// Get fetches a stock item.
func (s *Service) Get(ctx context.Context, id string) (Item, error) {
	return s.repo.GetItem(ctx, id)
}

// LowStock lists items at or below their reorder level.
func (s *Service) LowStock(ctx context.Context) ([]Item, error) {
	return s.List(ctx, ListFilter{LowOnly: true, SortBy: "stock"})
}

// Movements returns the most recent movements of an item.
func (s *Service) Movements(ctx context.Context, itemID string, limit int) ([]Movement, error) {
	if _, err := s.repo.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListMovements(ctx, itemID, limit)
}

// Create registers a stock item and posts its opening balance.
func (s *Service) Create(ctx context.Context, req CreateRequest, actor string) (Item, error) {
	now := s.now()
	item := Item{
		ID:           uuid.NewString(),
		SKU:          strings.ToUpper(strings.TrimSpace(req.SKU)),
		Name:         strings.TrimSpace(req.Name),
		Category:     req.Category,
		Unit:         strings.TrimSpace(req.Unit),
		ReorderLevel: req.ReorderLevel,
		UnitCost:     req.UnitCost,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.CreateInventory(ctx, item); err != nil {
			return err
		}
		if req.OpeningStock <= 0 {
			return nil
		}
		updated, _, err := Post(ctx, tx, MovementInput{
			InventoryItemID: item.ID,
			Type:            MovementIn,
			Delta:           req.OpeningStock,
			UnitCost:        req.UnitCost,
			Reason:          "Opening balance",
			RefModule:       "inventory",
			RefID:           item.ID,
			Actor:           actor,
		}, now)
		if err != nil {
			return err
		}
		item = updated
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

// Update edits descriptive fields of an item.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (Item, error) {
	var item Item
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		item, err = tx.GetInventoryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.Name != nil {
			item.Name = strings.TrimSpace(*req.Name)
		}
		if req.Unit != nil {
			item.Unit = strings.TrimSpace(*req.Unit)
		}
		if req.ReorderLevel != nil {
			item.ReorderLevel = *req.ReorderLevel
		}
		item.UpdatedAt = s.now()
		return tx.UpdateInventory(ctx, item)
	})
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

// Adjust posts a manual correction. Positive deltas with a unit cost are
// treated as receipts and move the average cost.
func (s *Service) Adjust(ctx context.Context, id string, req AdjustRequest, actor string) (Item, Movement, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return Item{}, Movement{}, fmt.Errorf("%w: reason required", httpx.ErrValidation)
	}
	var (
		item Item
		mv   Movement
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		item, mv, err = Post(ctx, tx, MovementInput{
			InventoryItemID: id,
			Type:            MovementAdjust,
			Delta:           req.Delta,
			UnitCost:        req.UnitCost,
			Reason:          strings.TrimSpace(req.Reason),
			RefModule:       "inventory",
			RefID:           id,
			Actor:           actor,
		}, s.now())
		return err
	})
	if err != nil {
		if !errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrNotFound) {
			s.logger.Error("inventory adjust", slog.String("item_id", id), slog.Any("error", err))
		}
		return Item{}, Movement{}, err
	}
	if item.IsLow() {
		s.logger.Warn("inventory below reorder level",
			slog.String("item_id", item.ID),
			slog.String("sku", item.SKU),
			slog.Float64("remaining", item.RemainingStock),
		)
	}
	return item, mv, nil
}
