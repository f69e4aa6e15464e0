// Package pgstore persists every aggregate in PostgreSQL. Order items,
// orders, packets and products are stored as JSONB documents next to the
// columns queues filter on; stock and accounts use plain columns.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tailorflow/tailorflow/internal/platform/db"
	"github.com/tailorflow/tailorflow/internal/platform/httpx"
)

//go:embed schema.sql
var schema string

// Store wraps the connection pool shared by all repositories.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("pgstore: migrate: %w", err)
	}
	return nil
}

// Orders returns the order repository.
func (s *Store) Orders() *OrdersRepo { return &OrdersRepo{store: s} }

// Inventory returns the stock repository.
func (s *Store) Inventory() *InventoryRepo { return &InventoryRepo{store: s} }

// Packets returns the packet repository.
func (s *Store) Packets() *PacketsRepo { return &PacketsRepo{store: s} }

// Products returns the product catalog repository.
func (s *Store) Products() *ProductsRepo { return &ProductsRepo{store: s} }

// Production returns the cross-module transactional repository.
func (s *Store) Production() *ProductionRepo { return &ProductionRepo{store: s} }

// Users returns the account repository.
func (s *Store) Users() *UsersRepo { return &UsersRepo{store: s} }

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// withTx runs fn under read committed isolation. Row locks taken with
// FOR UPDATE make concurrent writers wait and then see the committed row.
func (s *Store) withTx(ctx context.Context, fn func(*txView) error) error {
	return db.WithIsolation(ctx, s.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(&txView{q: tx})
	})
}

func mapErr(err error, notFound error, subject string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) && notFound != nil {
		return notFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", subject, httpx.ErrDuplicate)
		case "40001", "40P01":
			return fmt.Errorf("%s: %w", subject, httpx.ErrConflict)
		}
	}
	return fmt.Errorf("pgstore: %s: %w", subject, err)
}

func expectRow(tag pgconn.CommandTag, notFound error) error {
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

func scanDocs[T any](rows pgx.Rows, subject string) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, mapErr(err, nil, subject)
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("pgstore: decode %s: %w", subject, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err, nil, subject)
	}
	return out, nil
}

func getDoc[T any](row pgx.Row, notFound error, subject string) (T, error) {
	var (
		raw []byte
		v   T
	)
	if err := row.Scan(&raw); err != nil {
		return v, mapErr(err, notFound, subject)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("pgstore: decode %s: %w", subject, err)
	}
	return v, nil
}
