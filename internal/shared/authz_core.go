package shared

// Core platform permissions.
const (
	PermDashboardView = "dashboard.view"

	PermUsersView   = "users.view"
	PermUsersCreate = "users.create"
	PermUsersEdit   = "users.edit"

	PermRolesView = "roles.view"

	PermPermissionsView = "permissions.view"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermDashboardView,
		PermUsersView,
		PermUsersCreate,
		PermUsersEdit,
		PermRolesView,
		PermPermissionsView,
	}
}
