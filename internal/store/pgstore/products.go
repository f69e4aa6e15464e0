package pgstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tailorflow/tailorflow/internal/products"
)

// ProductsRepo implements products.RepositoryPort.
type ProductsRepo struct{ store *Store }

// ListProducts returns products ordered by name.
func (r *ProductsRepo) ListProducts(ctx context.Context, activeOnly bool) ([]products.Product, error) {
	rows, err := r.store.pool.Query(ctx, `SELECT data FROM products WHERE (NOT $1 OR is_active) ORDER BY name`, activeOnly)
	if err != nil {
		return nil, mapErr(err, nil, "list products")
	}
	return scanDocs[products.Product](rows, "product")
}

// GetProduct fetches one product.
func (r *ProductsRepo) GetProduct(ctx context.Context, id string) (products.Product, error) {
	return getDoc[products.Product](r.store.pool.QueryRow(ctx, `SELECT data FROM products WHERE id = $1`, id), products.ErrProductNotFound, "product")
}

// CreateProduct stores a product with a unique SKU.
func (r *ProductsRepo) CreateProduct(ctx context.Context, p products.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("pgstore: encode product: %w", err)
	}
	_, err = r.store.pool.Exec(ctx, `INSERT INTO products (id, sku, name, is_active, data) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.SKU, p.Name, p.IsActive, data)
	return mapErr(err, nil, "product sku "+p.SKU)
}

// UpdateProduct replaces a product.
func (r *ProductsRepo) UpdateProduct(ctx context.Context, p products.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("pgstore: encode product: %w", err)
	}
	tag, err := r.store.pool.Exec(ctx, `UPDATE products SET sku = $2, name = $3, is_active = $4, data = $5 WHERE id = $1`,
		p.ID, p.SKU, p.Name, p.IsActive, data)
	if err != nil {
		return mapErr(err, nil, "product sku "+p.SKU)
	}
	return expectRow(tag, products.ErrProductNotFound)
}
