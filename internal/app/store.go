package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tailorflow/tailorflow/internal/platform/db"
	"github.com/tailorflow/tailorflow/internal/store/memstore"
	"github.com/tailorflow/tailorflow/internal/store/pgstore"
)

// OpenBackend connects the store selected by STORE_DRIVER. The returned
// close function is never nil.
func OpenBackend(ctx context.Context, cfg *Config, logger *slog.Logger) (Backend, func(), error) {
	switch cfg.StoreDriver {
	case StoreMemory, "":
		logger.Info("using in-memory store")
		return MemoryBackend(memstore.New()), func() {}, nil
	case StorePostgres:
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return Backend{}, func() {}, err
		}
		store := pgstore.New(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return Backend{}, func() {}, fmt.Errorf("app: migrate: %w", err)
		}
		logger.Info("using postgres store")
		return PostgresBackend(store), pool.Close, nil
	default:
		return Backend{}, func() {}, fmt.Errorf("app: unknown store driver %q", cfg.StoreDriver)
	}
}
