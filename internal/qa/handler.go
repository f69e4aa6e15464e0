package qa

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/rbac"
	"github.com/tailorflow/tailorflow/internal/shared"
)

// Handler exposes QA endpoints.
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

// MountRoutes registers QA routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermQAView)).Get("/queue", h.queue)
	r.With(h.rbac.RequireAny(shared.PermQAApprove, shared.PermQAReject)).Post("/items/{itemId}/begin", h.begin)
	r.With(h.rbac.RequireAny(shared.PermQAApprove)).Post("/items/{itemId}/approve", h.approve)
	r.With(h.rbac.RequireAny(shared.PermQAReject)).Post("/items/{itemId}/reject", h.reject)
}

func (h *Handler) queue(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Queue(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, items, "")
}

func (h *Handler) begin(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Begin(r.Context(), chi.URLParam(r, "itemId"), shared.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, item, "Quality review started")
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if r.ContentLength != 0 {
		if err := httpx.Bind(r, h.validate, &req); err != nil {
			h.fail(w, err)
			return
		}
	}
	item, err := h.service.Approve(r.Context(), chi.URLParam(r, "itemId"), req, shared.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, item, "Item approved")
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		h.fail(w, err)
		return
	}
	item, err := h.service.Reject(r.Context(), chi.URLParam(r, "itemId"), req, shared.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, item, "Item sent back to production")
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError && h.logger != nil {
		h.logger.Error("qa request", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
