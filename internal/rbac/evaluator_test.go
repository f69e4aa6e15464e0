package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tailorflow/tailorflow/internal/shared"
)

func TestHasPermissionNilSafe(t *testing.T) {
	keys := append(shared.AllScopes(), "", "unknown.key")
	for _, k := range keys {
		assert.False(t, HasPermission(nil, k), k)
		assert.False(t, HasPermission(&shared.Principal{Role: "ADMIN"}, k), k)
	}
}

func TestHasAnyAndAll(t *testing.T) {
	p := &shared.Principal{Permissions: []string{shared.PermOrdersView, shared.PermDyeingAccept}}

	assert.True(t, HasAnyPermission(p, shared.PermOrdersEdit, shared.PermOrdersView))
	assert.False(t, HasAnyPermission(p, shared.PermOrdersEdit))
	assert.False(t, HasAnyPermission(p))

	assert.True(t, HasAllPermissions(p, shared.PermOrdersView, shared.PermDyeingAccept))
	assert.False(t, HasAllPermissions(p, shared.PermOrdersView, shared.PermOrdersEdit))
	assert.True(t, HasAllPermissions(p))
	assert.False(t, HasAllPermissions(nil, shared.PermOrdersView))
}

func TestCanAccessRouteEmptyRequirement(t *testing.T) {
	principals := []*shared.Principal{nil, {}, {Permissions: []string{}}, {Permissions: []string{shared.PermOrdersView}}}
	for _, p := range principals {
		assert.True(t, CanAccessRoute(p))
		assert.True(t, CanAccessRoute(p, []string{}...))
	}
}

func TestCanAccessRouteAnySemantics(t *testing.T) {
	p := &shared.Principal{Permissions: []string{shared.PermQAView}}
	assert.True(t, CanAccessRoute(p, shared.PermDispatchView, shared.PermQAView))
	assert.False(t, CanAccessRoute(p, shared.PermDispatchView))
	assert.False(t, CanAccessRoute(nil, shared.PermDispatchView))
}

func TestDecidePermissionListsRequired(t *testing.T) {
	p := &shared.Principal{Permissions: []string{"orders.view"}}
	d := DecidePermission(p, []string{"orders.edit"})
	assert.False(t, d.Allowed)
	assert.Equal(t, []string{"orders.edit"}, d.Required)

	assert.True(t, DecidePermission(p, nil).Allowed)
	assert.True(t, DecidePermission(p, []string{"orders.view"}).Allowed)
}

func TestDecideAuth(t *testing.T) {
	assert.Equal(t, ActionShowLoading, DecideAuth(shared.AuthLoading))
	assert.Equal(t, ActionRedirectLogin, DecideAuth(shared.AuthUnauthenticated))
	assert.Equal(t, ActionRender, DecideAuth(shared.AuthAuthenticated))
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/orders?status=PENDING", SafeNext("/orders?status=PENDING"))
	assert.Equal(t, "/", SafeNext("https://evil.example"))
	assert.Equal(t, "/", SafeNext("//evil.example"))
	assert.Equal(t, "/", SafeNext("/\\evil.example"))
	assert.Equal(t, "/", SafeNext(""))
	assert.Equal(t, "/auth/login?next=%2Fdyeing", LoginURL("/auth/login", "/dyeing"))
	assert.Equal(t, "/auth/login", LoginURL("/auth/login", "/"))
}
