package dispatch

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/rbac"
	"github.com/tailorflow/tailorflow/internal/shared"
)

// Handler exposes dispatch endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validate: httpx.NewValidator()}
}

// MountRoutes registers dispatch routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermDispatchView)).Get("/queue", h.queue)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermDispatchEdit))
		r.Post("/items/{itemId}/dispatch", h.dispatch)
		r.Post("/items/{itemId}/complete", h.complete)
		r.Post("/orders/{orderId}/dispatch", h.dispatchOrder)
	})
}

func (h *Handler) queue(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Queue(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, items, "")
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		h.fail(w, err)
		return
	}
	item, err := h.service.Dispatch(r.Context(), chi.URLParam(r, "itemId"), req, shared.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, item, "Item dispatched")
}

func (h *Handler) dispatchOrder(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		h.fail(w, err)
		return
	}
	order, err := h.service.DispatchOrder(r.Context(), chi.URLParam(r, "orderId"), req, shared.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, order, "Order dispatched")
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Complete(r.Context(), chi.URLParam(r, "itemId"), shared.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, item, "Delivery confirmed")
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError && h.logger != nil {
		h.logger.Error("dispatch request", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
