package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailorflow/tailorflow/internal/shared"
)

func TestRegistryRejectsUnknownKeys(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Validate(shared.PermOrdersView, shared.PermDyeingReject))

	err := reg.Validate(shared.PermOrdersView, "orders.delete", "dyeing.teleport")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrUnknownPermission)
	assert.Contains(t, err.Error(), "orders.delete")
	assert.Contains(t, err.Error(), "dyeing.teleport")
}

func TestRoleTemplatesUseRegisteredKeys(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.ValidateRoles())

	admin, ok := reg.Role("admin")
	require.True(t, ok)
	assert.ElementsMatch(t, shared.AllScopes(), admin.Permissions)

	_, ok = reg.Role("TAILOR")
	assert.False(t, ok)
	assert.Len(t, reg.Roles(), 8)
}

func TestRoleCopiesAreIndependent(t *testing.T) {
	reg := NewRegistry()
	dyer, _ := reg.Role(RoleDyeing)
	dyer.Permissions[0] = "tampered"
	again, _ := reg.Role(RoleDyeing)
	assert.NotEqual(t, "tampered", again.Permissions[0])
}

func TestAllScopesAreDottedAndUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, k := range shared.AllScopes() {
		assert.Regexp(t, `^[a-z]+\.[a-z]+$`, k)
		assert.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
}
