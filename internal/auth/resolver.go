package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tailorflow/tailorflow/internal/shared"
)

// Resolver turns the request's bearer token or cookie session into an
// authentication state and principal exactly once per request.
type Resolver struct {
	Service  *Service
	Tokens   *Tokens
	Sessions *shared.SessionManager
	Logger   *slog.Logger
}

// Middleware stores the resolved state with shared.ContextWithAuth. A session
// store that cannot answer leaves the request in the loading state.
func (rv Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state, principal := rv.resolve(r)
		ctx := shared.ContextWithAuth(r.Context(), state, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (rv Resolver) resolve(r *http.Request) (shared.AuthState, *shared.Principal) {
	ctx := r.Context()
	if raw, ok := BearerToken(r); ok {
		if rv.Tokens == nil {
			return shared.AuthUnauthenticated, nil
		}
		claims, err := rv.Tokens.Parse(ctx, raw)
		if err != nil {
			if !errors.Is(err, ErrInvalidToken) {
				rv.warn("bearer token lookup", err)
				return shared.AuthLoading, nil
			}
			return shared.AuthUnauthenticated, nil
		}
		return rv.principal(r, claims.Subject)
	}

	if state, _ := shared.AuthFromContext(ctx); state == shared.AuthLoading {
		return shared.AuthLoading, nil
	}
	sess := shared.SessionFromContext(ctx)
	if sess == nil || sess.User() == "" {
		return shared.AuthUnauthenticated, nil
	}
	if rv.Sessions != nil && rv.Sessions.TTL() > 0 && !sess.StartedAt().IsZero() &&
		time.Since(sess.StartedAt()) > rv.Sessions.TTL() {
		rv.Sessions.Destroy(sess)
		return shared.AuthUnauthenticated, nil
	}
	return rv.principal(r, sess.User())
}

func (rv Resolver) principal(r *http.Request, userID string) (shared.AuthState, *shared.Principal) {
	p, err := rv.Service.Resolve(r.Context(), userID)
	if err != nil {
		rv.warn("resolve principal", err)
		return shared.AuthLoading, nil
	}
	if p == nil {
		if sess := shared.SessionFromContext(r.Context()); sess != nil && rv.Sessions != nil {
			rv.Sessions.Destroy(sess)
		}
		return shared.AuthUnauthenticated, nil
	}
	return shared.AuthAuthenticated, p
}

func (rv Resolver) warn(msg string, err error) {
	if rv.Logger != nil {
		rv.Logger.Warn(msg, slog.Any("error", err))
	}
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[7:])
	return tok, tok != ""
}
