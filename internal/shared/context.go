package shared

import "context"

type sessionContextKey struct{}

type authContextKey struct{}

type authContext struct {
	state     AuthState
	principal *Principal
}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithAuth stores the resolved authentication state and principal.
func ContextWithAuth(ctx context.Context, state AuthState, principal *Principal) context.Context {
	if state == AuthAuthenticated && principal == nil {
		state = AuthUnauthenticated
	}
	return context.WithValue(ctx, authContextKey{}, authContext{state: state, principal: principal})
}

// AuthFromContext returns the authentication state. Requests that never passed
// through the authentication middleware are reported as unauthenticated.
func AuthFromContext(ctx context.Context) (AuthState, *Principal) {
	ac, ok := ctx.Value(authContextKey{}).(authContext)
	if !ok {
		return AuthUnauthenticated, nil
	}
	return ac.state, ac.principal
}

// PrincipalFromContext returns the authenticated principal or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	_, p := AuthFromContext(ctx)
	return p
}
