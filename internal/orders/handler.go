package orders

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/rbac"
	"github.com/tailorflow/tailorflow/internal/shared"
)

// Canceller cancels an order together with its compensating stock and
// packet effects.
type Canceller interface {
	CancelOrder(ctx context.Context, orderID, reason string, actor *shared.Principal) (Order, error)
}

// Handler exposes the order API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	canceller Canceller
	rbac      rbac.Middleware
	validate  *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, canceller Canceller, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, canceller: canceller, rbac: rbac, validate: httpx.NewValidator()}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermOrdersView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/items/{itemId}", h.getItem)
		r.Get("/items/{itemId}/timeline", h.timeline)
	})
	r.With(h.rbac.RequireAny(shared.PermOrdersCreate)).Post("/", h.create)
	r.With(h.rbac.RequireAny(shared.PermOrdersCancel, shared.PermOrdersEdit)).Post("/{id}/cancel", h.cancel)
}

type listResponse struct {
	Orders     []Order           `json:"orders"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Status:   OrderStatus(q.Get("status")),
		Search:   q.Get("search"),
		Customer: q.Get("customer"),
		SortBy:   q.Get("sort"),
		SortDesc: q.Get("order") == "desc",
		Page:     atoi(q.Get("page")),
		PerPage:  atoi(q.Get("perPage")),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		httpx.Fail(w, http.StatusBadRequest, "unknown order status", nil)
		return
	}
	list, page, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, listResponse{Orders: list, Pagination: page}, "")
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, order, "")
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetItem(r.Context(), chi.URLParam(r, "itemId"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, item, "")
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetItem(r.Context(), chi.URLParam(r, "itemId"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, item.Timeline, "")
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		h.fail(w, err)
		return
	}
	order, err := h.service.CreateOrder(r.Context(), req, shared.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, order, "Order created")
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		h.fail(w, err)
		return
	}
	order, err := h.canceller.CancelOrder(r.Context(), chi.URLParam(r, "id"), req.Reason, shared.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, order, "Order cancelled")
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError && h.logger != nil {
		h.logger.Error("orders request", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
