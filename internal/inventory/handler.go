package inventory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/rbac"
	"github.com/tailorflow/tailorflow/internal/shared"
)

// Handler exposes inventory endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler builds handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validate: httpx.NewValidator()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermInventoryView))
		r.Get("/", h.list)
		r.Get("/low-stock", h.lowStock)
		r.Get("/{id}", h.get)
		r.Get("/{id}/movements", h.movements)
	})
	r.With(h.rbac.RequireAny(shared.PermInventoryCreate)).Post("/", h.create)
	r.With(h.rbac.RequireAny(shared.PermInventoryEdit)).Put("/{id}", h.update)
	r.With(h.rbac.RequireAny(shared.PermInventoryAdjust)).Post("/{id}/adjust", h.adjust)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.service.List(r.Context(), ListFilter{
		Category: Category(q.Get("category")),
		Search:   q.Get("search"),
		LowOnly:  q.Get("low") == "true",
		SortBy:   q.Get("sort"),
		SortDesc: q.Get("order") == "desc",
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, items, "")
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.LowStock(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, items, "")
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, item, "")
}

func (h *Handler) movements(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.service.Movements(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, list, "")
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		h.fail(w, err)
		return
	}
	item, err := h.service.Create(r.Context(), req, actorName(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, item, "Inventory item created")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		h.fail(w, err)
		return
	}
	item, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, item, "Inventory item updated")
}

type adjustResponse struct {
	Item     Item     `json:"item"`
	Movement Movement `json:"movement"`
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var req AdjustRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		h.fail(w, err)
		return
	}
	item, mv, err := h.service.Adjust(r.Context(), chi.URLParam(r, "id"), req, actorName(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, adjustResponse{Item: item, Movement: mv}, "Stock adjusted")
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError && h.logger != nil {
		h.logger.Error("inventory request", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func actorName(r *http.Request) string {
	if p := shared.PrincipalFromContext(r.Context()); p != nil {
		return p.DisplayName()
	}
	return shared.SystemActor
}
