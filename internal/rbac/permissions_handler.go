package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/shared"
)

// PermissionsHandler exposes the permission catalog and role templates.
type PermissionsHandler struct {
	registry *Registry
	rbac     Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(registry *Registry, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{registry: registry, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPermissionsView, shared.PermUsersView))
		r.Get("/", h.listPermissions)
		r.Get("/roles", h.listRoles)
	})
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, http.StatusOK, h.registry.Groups(), "")
}

func (h *PermissionsHandler) listRoles(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, http.StatusOK, h.registry.Roles(), "")
}
