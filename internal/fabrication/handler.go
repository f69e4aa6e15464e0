package fabrication

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/rbac"
	"github.com/tailorflow/tailorflow/internal/shared"
)

// Handler exposes fabrication endpoints.
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

// MountRoutes registers fabrication routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermFabricationView)).Get("/queue", h.queue)
	r.With(h.rbac.RequireAny(shared.PermFabricationBOM)).Post("/items/{itemId}/bom", h.submitBOM)
	r.With(h.rbac.RequireAny(shared.PermFabricationCheck)).Post("/items/{itemId}/inventory-check", h.check)
}

func (h *Handler) queue(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if r.URL.Query().Get("mine") == "true" {
		if p := shared.PrincipalFromContext(r.Context()); p != nil {
			userID = p.UserID
		}
	}
	items, err := h.service.Queue(r.Context(), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, items, "")
}

func (h *Handler) submitBOM(w http.ResponseWriter, r *http.Request) {
	var req BOMRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		h.fail(w, err)
		return
	}
	item, err := h.service.SubmitBOM(r.Context(), chi.URLParam(r, "itemId"), req, shared.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, item, "Custom BOM submitted")
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if r.ContentLength != 0 {
		if err := httpx.Bind(r, h.validate, &req); err != nil {
			h.fail(w, err)
			return
		}
	}
	res, err := h.service.CheckInventory(r.Context(), chi.URLParam(r, "itemId"), req, shared.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, res, "Inventory check completed")
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError && h.logger != nil {
		h.logger.Error("fabrication request", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
