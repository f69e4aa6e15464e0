package shared

// Order lifecycle permissions declared for RBAC.
const (
	// Order permissions
	PermOrdersView   = "orders.view"
	PermOrdersCreate = "orders.create"
	PermOrdersEdit   = "orders.edit"
	PermOrdersCancel = "orders.cancel"

	// Quality assurance permissions
	PermQAView    = "qa.view"
	PermQAApprove = "qa.approve"
	PermQAReject  = "qa.reject"

	// Dispatch permissions
	PermDispatchView = "dispatch.view"
	PermDispatchEdit = "dispatch.edit"
)

// OrderScopes lists all permissions related to the orders module.
func OrderScopes() []string {
	return []string{
		PermOrdersView,
		PermOrdersCreate,
		PermOrdersEdit,
		PermOrdersCancel,
	}
}

// QAScopes lists all permissions related to quality assurance.
func QAScopes() []string {
	return []string{
		PermQAView,
		PermQAApprove,
		PermQAReject,
	}
}

// DispatchScopes lists all permissions related to dispatch.
func DispatchScopes() []string {
	return []string{
		PermDispatchView,
		PermDispatchEdit,
	}
}
