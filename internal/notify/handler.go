package notify

import (
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/rbac"
	"github.com/tailorflow/tailorflow/internal/shared"
)

// Handler exposes the caller's inbox.
type Handler struct {
	logger *slog.Logger
	store  *Store
	rbac   rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, store *Store, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, store: store, rbac: rbac}
}

// MountRoutes registers notification routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuth)
		r.Get("/", h.list)
		r.Delete("/", h.clear)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := h.store.List(r.Context(), p.UserID, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	if rbac.HasAnyPermission(p, shared.PermInventoryView) {
		broadcast, err := h.store.List(r.Context(), BroadcastInventory, limit)
		if err != nil {
			h.fail(w, err)
			return
		}
		out = append(out, broadcast...)
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
	}
	httpx.OK(w, http.StatusOK, out, "")
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	if err := h.store.Clear(r.Context(), p.UserID); err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, nil, "Notifications cleared")
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if h.logger != nil {
		h.logger.Error("notifications request", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
