package production

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/rbac"
	"github.com/tailorflow/tailorflow/internal/shared"
)

// Handler exposes stitching endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers production routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermProductionView)).Get("/queue", h.queue)
	r.With(h.rbac.RequireAny(shared.PermProductionEdit)).Post("/items/{itemId}/start", h.start)
	r.With(h.rbac.RequireAny(shared.PermProductionEdit)).Post("/items/{itemId}/complete", h.complete)
}

func (h *Handler) queue(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Queue(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, items, "")
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Start(r.Context(), chi.URLParam(r, "itemId"), shared.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, item, "Production started")
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Complete(r.Context(), chi.URLParam(r, "itemId"), shared.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, item, "Production completed")
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError && h.logger != nil {
		h.logger.Error("production request", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
