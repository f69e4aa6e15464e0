package dyeing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/rbac"
	"github.com/tailorflow/tailorflow/internal/shared"
)

// Handler exposes the dyeing task API.
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

// MountRoutes registers dyeing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermDyeingView))
		r.Get("/tasks", h.tasks)
		r.Get("/stats", h.stats)
	})
	r.With(h.rbac.RequireAny(shared.PermDyeingAccept)).Post("/task/{orderItemId}/accept", h.accept)
	r.With(h.rbac.RequireAny(shared.PermDyeingStart)).Post("/task/{orderItemId}/start", h.start)
	r.With(h.rbac.RequireAny(shared.PermDyeingComplete)).Post("/task/{orderItemId}/complete", h.complete)
	r.With(h.rbac.RequireAny(shared.PermDyeingReject)).Post("/task/{orderItemId}/reject", h.reject)
}

func (h *Handler) tasks(w http.ResponseWriter, r *http.Request) {
	scope := Scope(r.URL.Query().Get("scope"))
	switch scope {
	case "":
		scope = ScopeAll
	case ScopeAll, ScopeAvailable, ScopeMine:
	default:
		httpx.Fail(w, http.StatusBadRequest, "unknown scope", nil)
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	tasks, err := h.service.Tasks(r.Context(), scope, p.UserID)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, tasks, "")
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	st, err := h.service.Stats(r.Context(), p.UserID)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, st, "")
}

func (h *Handler) bind(w http.ResponseWriter, r *http.Request) (Request, bool) {
	var req Request
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		h.fail(w, err)
		return Request{}, false
	}
	return req, true
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request) {
	req, ok := h.bind(w, r)
	if !ok {
		return
	}
	item, err := h.service.Accept(r.Context(), chi.URLParam(r, "orderItemId"), req, shared.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, item, "Sections accepted for dyeing")
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	req, ok := h.bind(w, r)
	if !ok {
		return
	}
	item, err := h.service.Start(r.Context(), chi.URLParam(r, "orderItemId"), req, shared.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, item, "Dyeing started")
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	req, ok := h.bind(w, r)
	if !ok {
		return
	}
	item, err := h.service.Complete(r.Context(), chi.URLParam(r, "orderItemId"), req, shared.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, item, "Dyeing completed")
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	req, ok := h.bind(w, r)
	if !ok {
		return
	}
	res, err := h.service.Reject(r.Context(), chi.URLParam(r, "orderItemId"), req, shared.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, res, "Sections sent back for rework")
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError && h.logger != nil {
		h.logger.Error("dyeing request", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
