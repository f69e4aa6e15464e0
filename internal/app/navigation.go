package app

import (
	"github.com/tailorflow/tailorflow/internal/rbac"
	"github.com/tailorflow/tailorflow/internal/shared"
	"github.com/tailorflow/tailorflow/internal/view"
)

// Navigation is the sidebar of the front-end, in display order.
var Navigation = []rbac.NavItem{
	{Name: "Dashboard", Href: "/", RequiredPermissions: []string{shared.PermDashboardView}},
	{Name: "Orders", Href: "/orders", RequiredPermissions: []string{shared.PermOrdersView}},
	{Name: "Inventory", Href: "/inventory", RequiredPermissions: []string{shared.PermInventoryView}},
	{Name: "Products", Href: "/products", RequiredPermissions: []string{shared.PermProductsView}},
	{Name: "Fabrication", Href: "/fabrication", RequiredPermissions: []string{shared.PermFabricationView}},
	{Name: "Packets", Href: "/packets", RequiredPermissions: []string{shared.PermPacketsView}},
	{Name: "Dyeing", Href: "/dyeing", RequiredPermissions: []string{shared.PermDyeingView}},
	{Name: "Production", Href: "/production", RequiredPermissions: []string{shared.PermProductionView}},
	{Name: "Quality Assurance", Href: "/qa", RequiredPermissions: []string{shared.PermQAView}},
	{Name: "Dispatch", Href: "/dispatch", RequiredPermissions: []string{shared.PermDispatchView}},
	{Name: "Users", Href: "/users", RequiredPermissions: []string{shared.PermUsersView, shared.PermUsersCreate}},
	{Name: "Profile", Href: "/profile"},
}

func navLinks(p *shared.Principal) []view.NavLink {
	items := rbac.FilterNavigation(Navigation, p)
	out := make([]view.NavLink, 0, len(items))
	for _, it := range items {
		out = append(out, view.NavLink{Name: it.Name, Href: it.Href})
	}
	return out
}
