package rbac

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tailorflow/tailorflow/internal/shared"
)

// Role template names.
const (
	RoleAdmin            = "ADMIN"
	RoleSales            = "SALES"
	RoleFabrication      = "FABRICATION"
	RoleDyeing           = "DYEING"
	RoleProduction       = "PRODUCTION"
	RoleQA               = "QA"
	RoleDispatch         = "DISPATCH"
	RoleInventoryManager = "INVENTORY_MANAGER"
)

// PermissionGroup is a feature area of the permission catalog.
type PermissionGroup struct {
	Feature     string   `json:"feature"`
	Permissions []string `json:"permissions"`
}

// RoleTemplate is a named starting set of permissions. The role label on a
// user is informational; access is decided by the permission set alone.
type RoleTemplate struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

// Registry is the static catalog of permission keys and role templates.
type Registry struct {
	groups []PermissionGroup
	known  map[string]struct{}
	roles  map[string]RoleTemplate
}

// NewRegistry builds the registry from the permission constants declared in
// package shared and the default role templates.
func NewRegistry() *Registry {
	groups := []PermissionGroup{
		{Feature: "core", Permissions: shared.CoreScopes()},
		{Feature: "orders", Permissions: shared.OrderScopes()},
		{Feature: "inventory", Permissions: shared.InventoryScopes()},
		{Feature: "products", Permissions: shared.ProductScopes()},
		{Feature: "fabrication", Permissions: shared.FabricationScopes()},
		{Feature: "dyeing", Permissions: shared.DyeingScopes()},
		{Feature: "production", Permissions: shared.ProductionScopes()},
		{Feature: "qa", Permissions: shared.QAScopes()},
		{Feature: "dispatch", Permissions: shared.DispatchScopes()},
	}
	known := make(map[string]struct{})
	for _, g := range groups {
		for _, p := range g.Permissions {
			known[p] = struct{}{}
		}
	}
	r := &Registry{groups: groups, known: known, roles: make(map[string]RoleTemplate)}
	for _, tpl := range defaultRoles() {
		r.roles[tpl.Name] = tpl
	}
	return r
}

func defaultRoles() []RoleTemplate {
	return []RoleTemplate{
		{Name: RoleAdmin, Description: "Full access", Permissions: shared.AllScopes()},
		{Name: RoleSales, Description: "Takes and follows up customer orders", Permissions: []string{
			shared.PermDashboardView,
			shared.PermOrdersView, shared.PermOrdersCreate, shared.PermOrdersEdit, shared.PermOrdersCancel,
			shared.PermProductsView, shared.PermInventoryView,
		}},
		{Name: RoleFabrication, Description: "Authors custom BOMs and assembles packets", Permissions: []string{
			shared.PermDashboardView, shared.PermOrdersView, shared.PermInventoryView,
			shared.PermFabricationView, shared.PermFabricationBOM, shared.PermFabricationCheck,
			shared.PermPacketsView, shared.PermPacketsEdit,
		}},
		{Name: RoleDyeing, Description: "Accepts and processes dyeing tasks", Permissions: []string{
			shared.PermDashboardView, shared.PermOrdersView,
			shared.PermDyeingView, shared.PermDyeingAccept, shared.PermDyeingStart,
			shared.PermDyeingComplete, shared.PermDyeingReject,
		}},
		{Name: RoleProduction, Description: "Stitches and finishes garments", Permissions: []string{
			shared.PermDashboardView, shared.PermOrdersView,
			shared.PermProductionView, shared.PermProductionEdit,
		}},
		{Name: RoleQA, Description: "Reviews finished garments", Permissions: []string{
			shared.PermDashboardView, shared.PermOrdersView,
			shared.PermQAView, shared.PermQAApprove, shared.PermQAReject,
		}},
		{Name: RoleDispatch, Description: "Ships approved orders", Permissions: []string{
			shared.PermDashboardView, shared.PermOrdersView,
			shared.PermDispatchView, shared.PermDispatchEdit,
		}},
		{Name: RoleInventoryManager, Description: "Maintains stock and the product catalog", Permissions: []string{
			shared.PermDashboardView,
			shared.PermInventoryView, shared.PermInventoryCreate, shared.PermInventoryEdit, shared.PermInventoryAdjust,
			shared.PermProductsView, shared.PermProductsCreate, shared.PermProductsEdit,
			shared.PermPacketsView,
		}},
	}
}

// Known reports whether key is a registered permission.
func (r *Registry) Known(key string) bool {
	_, ok := r.known[key]
	return ok
}

// Validate rejects any key missing from the registry. The error names every
// unknown key and wraps shared.ErrUnknownPermission.
func (r *Registry) Validate(keys ...string) error {
	var unknown []string
	for _, k := range keys {
		if !r.Known(k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", shared.ErrUnknownPermission, strings.Join(unknown, ", "))
}

// ValidateRoles checks every role template against the catalog.
func (r *Registry) ValidateRoles() error {
	for _, name := range r.roleNames() {
		if err := r.Validate(r.roles[name].Permissions...); err != nil {
			return fmt.Errorf("rbac: role %s: %w", name, err)
		}
	}
	return nil
}

// Groups returns the catalog grouped by feature area.
func (r *Registry) Groups() []PermissionGroup {
	out := make([]PermissionGroup, len(r.groups))
	for i, g := range r.groups {
		out[i] = PermissionGroup{Feature: g.Feature, Permissions: append([]string(nil), g.Permissions...)}
	}
	return out
}

// Role returns the named template.
func (r *Registry) Role(name string) (RoleTemplate, bool) {
	tpl, ok := r.roles[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return RoleTemplate{}, false
	}
	tpl.Permissions = append([]string(nil), tpl.Permissions...)
	return tpl, true
}

// Roles lists every template ordered by name.
func (r *Registry) Roles() []RoleTemplate {
	names := r.roleNames()
	out := make([]RoleTemplate, 0, len(names))
	for _, n := range names {
		tpl, _ := r.Role(n)
		out = append(out, tpl)
	}
	return out
}

func (r *Registry) roleNames() []string {
	names := make([]string, 0, len(r.roles))
	for n := range r.roles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
