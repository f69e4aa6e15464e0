package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailorflow/tailorflow/internal/shared"
)

func sampleNav() []NavItem {
	return []NavItem{
		{Name: "Dashboard", Href: "/", RequiredPermissions: nil},
		{Name: "Orders", Href: "/orders", RequiredPermissions: []string{shared.PermOrdersView}},
		{Name: "Dyeing", Href: "/dyeing", RequiredPermissions: []string{shared.PermDyeingView}},
		{Name: "Users", Href: "/users", RequiredPermissions: []string{shared.PermUsersView}},
	}
}

func TestFilterNavigationNilPrincipal(t *testing.T) {
	got := FilterNavigation(sampleNav(), nil)
	require.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, FilterNavigation(nil, nil))
}

func TestFilterNavigationKeepsOrder(t *testing.T) {
	p := &shared.Principal{Permissions: []string{shared.PermUsersView, shared.PermOrdersView}}
	got := FilterNavigation(sampleNav(), p)
	names := make([]string, 0, len(got))
	for _, item := range got {
		names = append(names, item.Name)
	}
	assert.Equal(t, []string{"Dashboard", "Orders", "Users"}, names)
}

func TestFilterNavigationDoesNotMutateInput(t *testing.T) {
	items := sampleNav()
	before := sampleNav()
	_ = FilterNavigation(items, &shared.Principal{Permissions: []string{}})
	assert.Equal(t, before, items)
}

func TestFilterNavigationEmptyPermissionsSeesOpenItems(t *testing.T) {
	got := FilterNavigation(sampleNav(), &shared.Principal{})
	require.Len(t, got, 1)
	assert.Equal(t, "Dashboard", got[0].Name)
}
