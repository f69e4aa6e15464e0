package rbac

import "github.com/tailorflow/tailorflow/internal/shared"

// NavItem is one entry of the sidebar navigation.
type NavItem struct {
	Name                string   `json:"name"`
	Href                string   `json:"href"`
	RequiredPermissions []string `json:"requiredPermissions"`
}

// FilterNavigation returns the items p may see, in their original order.
// A nil principal sees nothing. items is not modified.
func FilterNavigation(items []NavItem, p *shared.Principal) []NavItem {
	if p == nil {
		return []NavItem{}
	}
	out := make([]NavItem, 0, len(items))
	for _, item := range items {
		if CanAccessRoute(p, item.RequiredPermissions...) {
			out = append(out, item)
		}
	}
	return out
}

// Requirements flattens the permission keys referenced by items, for
// registry validation at startup.
func Requirements(items []NavItem) []string {
	var keys []string
	for _, item := range items {
		keys = append(keys, item.RequiredPermissions...)
	}
	return keys
}
