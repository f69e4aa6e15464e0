package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/tailorflow/tailorflow/internal/auth"
	"github.com/tailorflow/tailorflow/internal/dispatch"
	"github.com/tailorflow/tailorflow/internal/dyeing"
	"github.com/tailorflow/tailorflow/internal/fabrication"
	"github.com/tailorflow/tailorflow/internal/inventory"
	"github.com/tailorflow/tailorflow/internal/notify"
	"github.com/tailorflow/tailorflow/internal/observability"
	"github.com/tailorflow/tailorflow/internal/orders"
	"github.com/tailorflow/tailorflow/internal/packets"
	"github.com/tailorflow/tailorflow/internal/platform/cache"
	"github.com/tailorflow/tailorflow/internal/production"
	"github.com/tailorflow/tailorflow/internal/products"
	"github.com/tailorflow/tailorflow/internal/qa"
	"github.com/tailorflow/tailorflow/internal/rbac"
	"github.com/tailorflow/tailorflow/internal/seed"
	"github.com/tailorflow/tailorflow/internal/shared"
	"github.com/tailorflow/tailorflow/internal/store/memstore"
	"github.com/tailorflow/tailorflow/internal/store/pgstore"
	"github.com/tailorflow/tailorflow/internal/users"
	"github.com/tailorflow/tailorflow/internal/view"
	"github.com/tailorflow/tailorflow/jobs"
)

// UserRepository serves both authentication lookups and user administration.
type UserRepository interface {
	auth.Repository
	users.RepositoryPort
}

// OrderRepository serves order writes and the production work queues.
type OrderRepository interface {
	orders.RepositoryPort
	production.ItemReader
}

// Backend is the persistence layer behind every service.
type Backend struct {
	Orders     OrderRepository
	Inventory  inventory.RepositoryPort
	Packets    packets.RepositoryPort
	Products   products.RepositoryPort
	Production production.Repository
	Users      UserRepository
}

// MemoryBackend exposes an in-process store.
func MemoryBackend(s *memstore.Store) Backend {
	return Backend{
		Orders:     s.Orders(),
		Inventory:  s.Inventory(),
		Packets:    s.Packets(),
		Products:   s.Products(),
		Production: s.Production(),
		Users:      s.Users(),
	}
}

// PostgresBackend exposes a PostgreSQL store.
func PostgresBackend(s *pgstore.Store) Backend {
	return Backend{
		Orders:     s.Orders(),
		Inventory:  s.Inventory(),
		Packets:    s.Packets(),
		Products:   s.Products(),
		Production: s.Production(),
		Users:      s.Users(),
	}
}

// Deps are the external resources an Application is built from.
type Deps struct {
	Config    *Config
	Logger    *slog.Logger
	Redis     *redis.Client
	Backend   Backend
	Notifier  dyeing.ReworkNotifier
	Inspector *asynq.Inspector
	Metrics   *observability.Metrics
	Templates *view.Engine
}

// Application holds the wired HTTP handler and the services background
// processes reuse.
type Application struct {
	Handler       http.Handler
	Registry      *rbac.Registry
	Seeder        *seed.Seeder
	Inventory     *inventory.Service
	Notifications *notify.Store
}

// New wires services and handlers over deps.
func New(deps Deps) (*Application, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("app: config is required")
	}
	if deps.Redis == nil {
		return nil, fmt.Errorf("app: redis client is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	registry := rbac.NewRegistry()
	if err := registry.ValidateRoles(); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	if err := registry.Validate(rbac.Requirements(Navigation)...); err != nil {
		return nil, fmt.Errorf("app: navigation: %w", err)
	}

	templates := deps.Templates
	if templates == nil {
		engine, err := view.NewEngine()
		if err != nil {
			return nil, fmt.Errorf("app: templates: %w", err)
		}
		templates = engine
	}

	sessions := shared.NewSessionManager(deps.Redis, "tailorflow_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrf := shared.NewCSRFManager(cfg.CSRFSecret)
	tokens := auth.NewTokens(cfg.TokenSecret, cfg.TokenTTL, deps.Redis)
	authService := auth.NewService(deps.Backend.Users, tokens, logger)
	guard := rbac.Middleware{Logger: logger, Templates: templates, Registry: registry, LoginPath: "/auth/login"}

	stats := cache.NewVersioned(deps.Redis, "tailorflow:stats", cfg.StatsCacheTTL)
	var recorder production.Recorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}
	flow := production.NewWorkflow(deps.Backend.Production, stats, recorder, logger)
	items := deps.Backend.Orders

	productService := products.NewService(deps.Backend.Products)
	inventoryService := inventory.NewService(deps.Backend.Inventory, logger)
	packetService := packets.NewService(deps.Backend.Packets, logger)
	orderService := orders.NewService(deps.Backend.Orders, productService, stats, logger)
	productionService := production.NewService(flow, items)
	fabricationService := fabrication.NewService(flow, items)
	dyeingService := dyeing.NewService(flow, items, stats, deps.Notifier, logger)
	qaService := qa.NewService(flow, items)
	dispatchService := dispatch.NewService(flow, items)
	userService := users.NewService(deps.Backend.Users, registry, logger)
	inbox := notify.NewStore(deps.Redis, cfg.NotificationTTL)

	handler := NewRouter(RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessions,
		CSRFManager:    csrf,
		Resolver:       auth.Resolver{Service: authService, Tokens: tokens, Sessions: sessions, Logger: logger},
		RBACMiddleware: guard,

		AuthHandler:         auth.NewHandler(logger, authService, templates, sessions, csrf, guard),
		OrdersHandler:       orders.NewHandler(logger, orderService, productionService, guard),
		InventoryHandler:    inventory.NewHandler(logger, inventoryService, guard),
		ProductsHandler:     products.NewHandler(logger, productService, guard),
		PacketsHandler:      packets.NewHandler(logger, packetService, guard),
		ProductionHandler:   production.NewHandler(logger, productionService, guard),
		FabricationHandler:  fabrication.NewHandler(logger, fabricationService, guard),
		DyeingHandler:       dyeing.NewHandler(logger, dyeingService, guard),
		QAHandler:           qa.NewHandler(logger, qaService, guard),
		DispatchHandler:     dispatch.NewHandler(logger, dispatchService, guard),
		UsersHandler:        users.NewHandler(logger, userService, guard),
		PermissionsHandler:  rbac.NewPermissionsHandler(registry, guard),
		NotificationHandler: notify.NewHandler(logger, inbox, guard),
		JobHandler:          jobs.NewHandler(deps.Inspector, logger),
		Metrics:             deps.Metrics,
	})

	return &Application{
		Handler:  handler,
		Registry: registry,
		Seeder: &seed.Seeder{
			Users:       userService,
			Inventory:   inventoryService,
			Products:    productService,
			Orders:      orderService,
			Fabrication: fabricationService,
			Logger:      logger,
		},
		Inventory:     inventoryService,
		Notifications: inbox,
	}, nil
}
