package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tailorflow/tailorflow/internal/auth"
	"github.com/tailorflow/tailorflow/internal/dispatch"
	"github.com/tailorflow/tailorflow/internal/dyeing"
	"github.com/tailorflow/tailorflow/internal/fabrication"
	"github.com/tailorflow/tailorflow/internal/inventory"
	"github.com/tailorflow/tailorflow/internal/notify"
	"github.com/tailorflow/tailorflow/internal/observability"
	"github.com/tailorflow/tailorflow/internal/orders"
	"github.com/tailorflow/tailorflow/internal/packets"
	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/production"
	"github.com/tailorflow/tailorflow/internal/products"
	"github.com/tailorflow/tailorflow/internal/qa"
	"github.com/tailorflow/tailorflow/internal/rbac"
	"github.com/tailorflow/tailorflow/internal/shared"
	"github.com/tailorflow/tailorflow/internal/users"
	"github.com/tailorflow/tailorflow/internal/view"
	"github.com/tailorflow/tailorflow/jobs"
	"github.com/tailorflow/tailorflow/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Resolver       auth.Resolver
	RBACMiddleware rbac.Middleware

	AuthHandler         *auth.Handler
	OrdersHandler       *orders.Handler
	InventoryHandler    *inventory.Handler
	ProductsHandler     *products.Handler
	PacketsHandler      *packets.Handler
	ProductionHandler   *production.Handler
	FabricationHandler  *fabrication.Handler
	DyeingHandler       *dyeing.Handler
	QAHandler           *qa.Handler
	DispatchHandler     *dispatch.Handler
	UsersHandler        *users.Handler
	PermissionsHandler  *rbac.PermissionsHandler
	NotificationHandler *notify.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with tailorflow defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Resolver:       params.Resolver,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	guard := params.RBACMiddleware
	r.With(guard.RequireAuth).Get("/", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
		var flash *shared.FlashMessage
		if sess != nil {
			flash = sess.PopFlash()
		}
		p := shared.PrincipalFromContext(r.Context())
		data := view.TemplateData{
			Title:       "Tailorflow",
			CSRFToken:   csrfToken,
			Flash:       flash,
			CurrentPath: r.URL.Path,
			User:        p,
			Nav:         navLinks(p),
		}
		if err := params.Templates.Render(w, "pages/home.html", data); err != nil {
			params.Logger.Error("render home", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountAPIRoutes)
		r.With(guard.RequireAuth).Get("/navigation", func(w http.ResponseWriter, r *http.Request) {
			httpx.OK(w, http.StatusOK, rbac.FilterNavigation(Navigation, shared.PrincipalFromContext(r.Context())), "")
		})
		r.Route("/orders", params.OrdersHandler.MountRoutes)
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
		r.Route("/products", params.ProductsHandler.MountRoutes)
		r.Route("/packets", params.PacketsHandler.MountRoutes)
		r.Route("/production", params.ProductionHandler.MountRoutes)
		r.Route("/fabrication", params.FabricationHandler.MountRoutes)
		r.Route("/dyeing", params.DyeingHandler.MountRoutes)
		r.Route("/qa", params.QAHandler.MountRoutes)
		r.Route("/dispatch", params.DispatchHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		if params.NotificationHandler != nil {
			r.Route("/notifications", params.NotificationHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			httpx.Fail(w, http.StatusNotFound, "route not found", nil)
		})
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
