package shared

// Catalog permissions: inventory and products.
const (
	PermInventoryView   = "inventory.view"
	PermInventoryCreate = "inventory.create"
	PermInventoryEdit   = "inventory.edit"
	PermInventoryAdjust = "inventory.adjust"

	PermProductsView   = "products.view"
	PermProductsCreate = "products.create"
	PermProductsEdit   = "products.edit"
)

// InventoryScopes lists all inventory permissions.
func InventoryScopes() []string {
	return []string{
		PermInventoryView,
		PermInventoryCreate,
		PermInventoryEdit,
		PermInventoryAdjust,
	}
}

// ProductScopes lists all product catalog permissions.
func ProductScopes() []string {
	return []string{
		PermProductsView,
		PermProductsCreate,
		PermProductsEdit,
	}
}

// AllScopes returns every permission key known to the application, grouped by
// feature area in declaration order.
func AllScopes() []string {
	groups := [][]string{
		CoreScopes(),
		OrderScopes(),
		InventoryScopes(),
		ProductScopes(),
		FabricationScopes(),
		DyeingScopes(),
		ProductionScopes(),
		QAScopes(),
		DispatchScopes(),
	}
	var all []string
	for _, g := range groups {
		all = append(all, g...)
	}
	return all
}
