package orders

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/products"
	"github.com/tailorflow/tailorflow/internal/shared"
)

// Catalog resolves products referenced by new order items.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (products.Product, error)
}

// Invalidator drops cached read models after a write.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service provides business logic for orders.
type Service struct {
	repo    RepositoryPort
	catalog Catalog
	cache   Invalidator
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs an order service. cache may be nil.
func NewService(repo RepositoryPort, catalog Catalog, cache Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, catalog: catalog, cache: cache, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// CreateOrder validates products and stores a new order with its items.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest, actor *shared.Principal) (Order, error) {
	now := s.now()
	order := Order{
		ID:        uuid.NewString(),
		Customer:  req.Customer,
		Shipping:  req.Shipping,
		Payment:   req.Payment,
		Status:    OrderPending,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedBy: actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if order.Payment.Status == "" {
		order.Payment.Status = "PENDING"
	}

	total := 0.0
	for _, line := range req.Items {
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return Order{}, fmt.Errorf("product %s: %w", line.ProductID, err)
		}
		if !product.IsActive {
			return Order{}, fmt.Errorf("%w: product %s is not available", httpx.ErrValidation, product.Name)
		}
		item := NewItem(order.ID, product, line, actor.DisplayName(), now)
		total += item.UnitPrice * float64(item.Quantity)
		order.Items = append(order.Items, item)
	}
	if order.Payment.TotalAmount == 0 {
		order.Payment.TotalAmount = total
	}
	if order.Payment.AdvancePaid > order.Payment.TotalAmount {
		return Order{}, fmt.Errorf("%w: advance paid exceeds order total", httpx.ErrValidation)
	}
	order.Status = RollupOrderStatus(order.Items, OrderPending)

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextOrderNumber(ctx)
		if err != nil {
			return fmt.Errorf("order number: %w", err)
		}
		order.OrderNumber = number
		for i := range order.Items {
			order.Items[i].OrderNumber = number
		}
		return tx.CreateOrder(ctx, order)
	})
	if err != nil {
		return Order{}, err
	}
	s.invalidate(ctx)
	s.logger.Info("order created", slog.String("order_id", order.ID), slog.String("order_number", order.OrderNumber), slog.Int("items", len(order.Items)))
	return order, nil
}

// NewItem builds the initial state of an order item. Custom sizes wait for a
// fabrication BOM; products with sections start their inventory check with
// requirements scaled from the product BOM.
func NewItem(orderID string, product products.Product, line CreateItemRequest, actorName string, now time.Time) Item {
	item := Item{
		ID:           uuid.NewString(),
		OrderID:      orderID,
		ProductID:    product.ID,
		ProductName:  product.Name,
		Size:         line.Size,
		IsCustomSize: line.IsCustomSize,
		Quantity:     line.Quantity,
		UnitPrice:    product.BasePrice,
		Status:       ItemReceived,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	switch {
	case line.IsCustomSize:
		item.Status = ItemFabricationBespoke
		item.AddTimeline("Item received; waiting for custom bill of materials", actorName, now)
	case len(product.Sections) > 0:
		item.SectionStatuses = make(map[string]*SectionStatus, len(product.Sections))
		for _, name := range product.Sections {
			item.SectionStatuses[name] = &SectionStatus{Status: SectionPendingInventoryCheck}
		}
		for _, b := range product.BOM {
			item.MaterialRequirements = append(item.MaterialRequirements, MaterialRequirement{
				InventoryItemID: b.InventoryItemID,
				Name:            b.Name,
				Section:         b.Section,
				Quantity:        b.Quantity * float64(line.Quantity),
				Unit:            b.Unit,
			})
		}
		item.Rederive()
		item.AddTimeline("Item received; queued for inventory check", actorName, now)
	default:
		item.AddTimeline("Item received", actorName, now)
	}
	return item
}

// ListOrders returns a page of orders after filtering and sorting.
func (s *Service) ListOrders(ctx context.Context, filter ListFilter) ([]Order, shared.Pagination, error) {
	all, err := s.repo.ListOrders(ctx, filter.Status)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	matched := FilterOrders(all, filter)
	page := shared.NewPagination(filter.Page, filter.PerPage, len(matched))
	start, end := page.Window()
	return matched[start:end], page, nil
}

// GetOrder fetches one order with its items.
func (s *Service) GetOrder(ctx context.Context, id string) (Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// GetItem fetches one order item.
func (s *Service) GetItem(ctx context.Context, id string) (Item, error) {
	return s.repo.GetItem(ctx, id)
}

// ListItems lists items for work queues.
func (s *Service) ListItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	return s.repo.ListItems(ctx, filter)
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump stats cache", slog.Any("error", err))
	}
}

// FilterOrders applies search, customer and status filters and sorting.
func FilterOrders(all []Order, f ListFilter) []Order {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	customer := strings.ToLower(strings.TrimSpace(f.Customer))
	out := make([]Order, 0, len(all))
	for _, o := range all {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if customer != "" && !strings.Contains(strings.ToLower(o.Customer.Name), customer) {
			continue
		}
		if search != "" && !matchesSearch(o, search) {
			continue
		}
		out = append(out, o)
	}
	less := func(a, b Order) bool { return a.CreatedAt.Before(b.CreatedAt) }
	switch f.SortBy {
	case "order_number":
		less = func(a, b Order) bool { return a.OrderNumber < b.OrderNumber }
	case "total":
		less = func(a, b Order) bool { return a.Payment.TotalAmount < b.Payment.TotalAmount }
	case "customer":
		less = func(a, b Order) bool { return strings.ToLower(a.Customer.Name) < strings.ToLower(b.Customer.Name) }
	}
	sort.SliceStable(out, func(i, j int) bool {
		if f.SortDesc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func matchesSearch(o Order, q string) bool {
	if strings.Contains(strings.ToLower(o.OrderNumber), q) ||
		strings.Contains(strings.ToLower(o.Customer.Name), q) ||
		strings.Contains(o.Customer.Phone, q) {
		return true
	}
	for _, it := range o.Items {
		if strings.Contains(strings.ToLower(it.ProductName), q) {
			return true
		}
	}
	return false
}
