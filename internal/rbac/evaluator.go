package rbac

import "github.com/tailorflow/tailorflow/internal/shared"

// HasPermission reports whether p holds key. A nil principal or a principal
// without permissions holds nothing.
func HasPermission(p *shared.Principal, key string) bool {
	if p == nil || p.Permissions == nil {
		return false
	}
	for _, granted := range p.Permissions {
		if granted == key {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether p holds at least one of keys.
func HasAnyPermission(p *shared.Principal, keys ...string) bool {
	for _, k := range keys {
		if HasPermission(p, k) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether p holds every one of keys.
func HasAllPermissions(p *shared.Principal, keys ...string) bool {
	for _, k := range keys {
		if !HasPermission(p, k) {
			return false
		}
	}
	return true
}

// CanAccessRoute applies the route rule: no requirement means open to any
// caller, otherwise any single listed permission is enough.
func CanAccessRoute(p *shared.Principal, required ...string) bool {
	if len(required) == 0 {
		return true
	}
	return HasAnyPermission(p, required...)
}
