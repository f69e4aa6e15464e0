package packets

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/rbac"
	"github.com/tailorflow/tailorflow/internal/shared"
)

// Handler exposes packet endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers packet routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermPacketsView, shared.PermFabricationView)).Get("/", h.list)
	r.With(h.rbac.RequireAny(shared.PermPacketsView, shared.PermFabricationView)).Get("/{id}", h.get)
	r.With(h.rbac.RequireAny(shared.PermPacketsEdit)).Post("/{id}/start", h.start)
	r.With(h.rbac.RequireAny(shared.PermPacketsEdit)).Post("/{id}/complete", h.complete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Status:      Status(q.Get("status")),
		AssignedTo:  q.Get("assignedTo"),
		OrderItemID: q.Get("orderItemId"),
	}
	if q.Get("mine") == "true" {
		if p := shared.PrincipalFromContext(r.Context()); p != nil {
			filter.AssignedTo = p.UserID
		}
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		httpx.Fail(w, http.StatusBadRequest, "unknown packet status", nil)
		return
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, list, "")
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, p, "")
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Start(r.Context(), chi.URLParam(r, "id"), shared.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, p, "Packet picking started")
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Complete(r.Context(), chi.URLParam(r, "id"), shared.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, p, "Packet completed")
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError && h.logger != nil {
		h.logger.Error("packets request", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
