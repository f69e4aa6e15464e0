package production

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tailorflow/tailorflow/internal/inventory"
	"github.com/tailorflow/tailorflow/internal/orders"
	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/shared"
)

// ErrItemStatus is returned when the item status forbids a transition.
var ErrItemStatus = fmt.Errorf("%w: item status does not allow this action", httpx.ErrValidation)

// Workflow runs item transitions in one transaction, then records the
// outcome and invalidates cached stats.
type Workflow struct {
	Repo    Repository
	Cache   Invalidator
	Metrics Recorder
	Logger  *slog.Logger
	Now     func() time.Time
}

// NewWorkflow builds a Workflow. cache and metrics may be nil.
func NewWorkflow(repo Repository, cache Invalidator, metrics Recorder, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{Repo: repo, Cache: cache, Metrics: metrics, Logger: logger, Now: func() time.Time { return time.Now().UTC() }}
}

// ItemFunc mutates a locked item. Returning an error rolls everything back.
type ItemFunc func(ctx context.Context, tx Tx, item *orders.Item, now time.Time) error

// Item locks the item, applies fn, persists the item and re-rolls the order
// status.
func (w *Workflow) Item(ctx context.Context, module, action, itemID string, fn ItemFunc) (orders.Item, error) {
	var out orders.Item
	err := w.Repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		item, err := tx.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		now := w.Now()
		if err := fn(ctx, tx, &item, now); err != nil {
			return err
		}
		item.UpdatedAt = now
		if err := tx.UpdateItem(ctx, item); err != nil {
			return err
		}
		if _, err := orders.SyncOrderStatus(ctx, tx, item.OrderID, now); err != nil {
			return fmt.Errorf("sync order status: %w", err)
		}
		out = item
		return nil
	})
	w.Done(ctx, module, action, err)
	if err != nil {
		return orders.Item{}, err
	}
	w.Logger.Info("item transition",
		slog.String("module", module),
		slog.String("action", action),
		slog.String("item_id", out.ID),
		slog.String("status", string(out.Status)),
	)
	return out, nil
}

// Done records a transition outcome and bumps the stats cache on success.
func (w *Workflow) Done(ctx context.Context, module, action string, err error) {
	if w.Metrics != nil {
		w.Metrics.RecordTransition(module, action, err)
	}
	if err != nil {
		if httpx.StatusFor(err) == http.StatusInternalServerError && !errors.Is(err, context.Canceled) {
			w.Logger.Error("item transition failed", slog.String("module", module), slog.String("action", action), slog.Any("error", err))
		}
		return
	}
	if w.Cache != nil {
		if err := w.Cache.Bump(ctx); err != nil {
			w.Logger.Warn("bump stats cache", slog.Any("error", err))
		}
	}
}

// SectionTitle renders a section key for timeline messages. Casers keep
// state, so one is built per call.
func SectionTitle(section string) string {
	return cases.Title(language.English).String(section)
}

// ReleaseSection returns every material reserved for the section to stock
// and clears the reservation. It runs inside the caller's transaction.
func ReleaseSection(ctx context.Context, tx inventory.TxRepository, item *orders.Item, section, reason string, now time.Time) ([]inventory.Movement, error) {
	sec := item.Section(section)
	if sec == nil || len(sec.ReservedMaterials) == 0 {
		return nil, nil
	}
	moves := make([]inventory.Movement, 0, len(sec.ReservedMaterials))
	for _, rm := range sec.ReservedMaterials {
		if rm.Quantity < inventory.Epsilon {
			continue
		}
		_, mv, err := inventory.Post(ctx, tx, inventory.MovementInput{
			InventoryItemID: rm.InventoryItemID,
			Type:            inventory.MovementRelease,
			Delta:           rm.Quantity,
			Reason:          reason,
			RefModule:       "orders",
			RefID:           item.ID,
			Actor:           shared.SystemActor,
		}, now)
		if err != nil {
			return nil, fmt.Errorf("release %s for %s: %w", rm.InventoryItemID, section, err)
		}
		moves = append(moves, mv)
	}
	sec.ReservedMaterials = nil
	return moves, nil
}
