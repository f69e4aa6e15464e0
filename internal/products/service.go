package products

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
)

// ErrProductNotFound is returned for unknown product ids.
var ErrProductNotFound = fmt.Errorf("product %w", httpx.ErrNotFound)

// RepositoryPort abstracts product persistence.
type RepositoryPort interface {
	ListProducts(ctx context.Context, activeOnly bool) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
	CreateProduct(ctx context.Context, p Product) error
	UpdateProduct(ctx context.Context, p Product) error
}

// Service manages the product catalog.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// List returns catalog products.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]Product, error) {
	return s.repo.ListProducts(ctx, activeOnly)
}

// GetProduct fetches one product.
func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// Create stores a new active product.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Product, error) {
	now := s.now()
	p := Product{
		ID:        uuid.NewString(),
		SKU:       strings.ToUpper(strings.TrimSpace(req.SKU)),
		Name:      strings.TrimSpace(req.Name),
		Category:  req.Category,
		BasePrice: req.BasePrice,
		Sections:  normalizeSections(req.Sections),
		BOM:       normalizeBOM(req.BOM),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validateBOM(p.Sections, p.BOM); err != nil {
		return Product{}, err
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.BasePrice != nil {
		p.BasePrice = *req.BasePrice
	}
	if req.Sections != nil {
		p.Sections = normalizeSections(*req.Sections)
	}
	if req.BOM != nil {
		p.BOM = normalizeBOM(*req.BOM)
	}
	if err := validateBOM(p.Sections, p.BOM); err != nil {
		return Product{}, err
	}
	p.UpdatedAt = s.now()
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

// Deactivate hides the product from new orders. Existing orders are untouched.
func (s *Service) Deactivate(ctx context.Context, id string) (Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	p.IsActive = false
	p.UpdatedAt = s.now()
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func normalizeSections(in []string) []string {
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

func normalizeBOM(in []BOMLine) []BOMLine {
	out := make([]BOMLine, len(in))
	for i, line := range in {
		line.Section = strings.ToLower(strings.TrimSpace(line.Section))
		out[i] = line
	}
	return out
}

func validateBOM(sections []string, bom []BOMLine) error {
	known := make(map[string]struct{}, len(sections))
	for _, s := range sections {
		known[s] = struct{}{}
	}
	for _, line := range bom {
		if _, ok := known[line.Section]; !ok {
			return fmt.Errorf("%w: bom references unknown section %q", httpx.ErrValidation, line.Section)
		}
	}
	return nil
}
