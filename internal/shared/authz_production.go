package shared

// Production floor permissions: fabrication, packets, dyeing and stitching.
const (
	PermFabricationView  = "fabrication.view"
	PermFabricationBOM   = "fabrication.bom"
	PermFabricationCheck = "fabrication.check"

	PermPacketsView = "packets.view"
	PermPacketsEdit = "packets.edit"

	PermDyeingView     = "dyeing.view"
	PermDyeingAccept   = "dyeing.accept"
	PermDyeingStart    = "dyeing.start"
	PermDyeingComplete = "dyeing.complete"
	PermDyeingReject   = "dyeing.reject"

	PermProductionView = "production.view"
	PermProductionEdit = "production.edit"
)

// FabricationScopes lists fabrication and packet permissions.
func FabricationScopes() []string {
	return []string{
		PermFabricationView,
		PermFabricationBOM,
		PermFabricationCheck,
		PermPacketsView,
		PermPacketsEdit,
	}
}

// DyeingScopes lists dyeing permissions.
func DyeingScopes() []string {
	return []string{
		PermDyeingView,
		PermDyeingAccept,
		PermDyeingStart,
		PermDyeingComplete,
		PermDyeingReject,
	}
}

// ProductionScopes lists stitching/production permissions.
func ProductionScopes() []string {
	return []string{
		PermProductionView,
		PermProductionEdit,
	}
}
