package rbac

import (
	"net/url"
	"strings"

	"github.com/tailorflow/tailorflow/internal/shared"
)

// AuthAction is the outcome of the authentication guard.
type AuthAction int

const (
	// ActionShowLoading renders the loading placeholder while auth resolves.
	ActionShowLoading AuthAction = iota
	// ActionRedirectLogin sends the caller to the login page.
	ActionRedirectLogin
	// ActionRender serves the protected content.
	ActionRender
)

// DecideAuth maps the resolved authentication state to a guard action.
func DecideAuth(state shared.AuthState) AuthAction {
	switch state {
	case shared.AuthAuthenticated:
		return ActionRender
	case shared.AuthLoading:
		return ActionShowLoading
	default:
		return ActionRedirectLogin
	}
}

// Decision is the outcome of the permission guard.
type Decision struct {
	Allowed bool
	// Required lists the permissions that would satisfy the route when denied.
	Required []string
}

// DecidePermission evaluates required against p with route semantics.
func DecidePermission(p *shared.Principal, required []string) Decision {
	if CanAccessRoute(p, required...) {
		return Decision{Allowed: true}
	}
	return Decision{Allowed: false, Required: append([]string(nil), required...)}
}

// LoginURL builds the login destination carrying the originally requested
// location in the next parameter.
func LoginURL(loginPath, requested string) string {
	target := SafeNext(requested)
	if target == "/" {
		return loginPath
	}
	return loginPath + "?next=" + url.QueryEscape(target)
}

// SafeNext restricts post-login redirects to local absolute paths.
func SafeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return next
}
