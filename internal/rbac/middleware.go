package rbac

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/shared"
	"github.com/tailorflow/tailorflow/internal/view"
)

// DefaultLoginPath is where unauthenticated page requests are redirected.
const DefaultLoginPath = "/auth/login"

// Middleware wires the authentication and permission guards for HTTP handlers.
type Middleware struct {
	Logger    *slog.Logger
	Templates *view.Engine
	// Registry, when set, rejects unknown permission keys while routes are
	// being mounted.
	Registry  *Registry
	LoginPath string
}

// RequireAuth is the authentication guard.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state, _ := shared.AuthFromContext(r.Context())
		switch DecideAuth(state) {
		case ActionRender:
			next.ServeHTTP(w, r)
		case ActionShowLoading:
			m.renderLoading(w, r)
		default:
			if httpx.WantsJSON(r) {
				httpx.Fail(w, http.StatusUnauthorized, "authentication required", nil)
				return
			}
			http.Redirect(w, r, LoginURL(m.loginPath(), r.URL.RequestURI()), http.StatusSeeOther)
		}
	})
}

// RequireAny ensures the current principal has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := m.normalize(perms)
	return func(next http.Handler) http.Handler {
		return m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := DecidePermission(shared.PrincipalFromContext(r.Context()), normalized)
			if decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}
			m.renderDenied(w, r, decision.Required)
		}))
	}
}

// RequireAll ensures the current principal has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := m.normalize(perms)
	return func(next http.Handler) http.Handler {
		return m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if HasAllPermissions(shared.PrincipalFromContext(r.Context()), normalized...) {
				next.ServeHTTP(w, r)
				return
			}
			m.renderDenied(w, r, normalized)
		}))
	}
}

func (m Middleware) renderLoading(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "1")
	w.Header().Set("Cache-Control", "no-store")
	if httpx.WantsJSON(r) || m.Templates == nil {
		httpx.Fail(w, http.StatusServiceUnavailable, "authentication pending", nil)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	data := view.TemplateData{Title: "Loading", CurrentPath: r.URL.RequestURI()}
	if err := m.Templates.Render(w, "pages/loading.html", data); err != nil {
		m.logError("render loading", err)
	}
}

type deniedPage struct {
	Required []string
	Back     string
}

// backTarget picks the same-origin referer as the fallback for the "go back"
// link; the page script prefers browser history when it exists.
func backTarget(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Host != r.Host {
		return "/"
	}
	return SafeNext(ref.RequestURI())
}

func (m Middleware) renderDenied(w http.ResponseWriter, r *http.Request, required []string) {
	if m.Logger != nil {
		p := shared.PrincipalFromContext(r.Context())
		userID := ""
		if p != nil {
			userID = p.UserID
		}
		m.Logger.Info("access denied",
			slog.String("path", r.URL.Path),
			slog.String("user_id", userID),
			slog.String("required", strings.Join(required, ",")))
	}
	if httpx.WantsJSON(r) || m.Templates == nil {
		httpx.JSON(w, http.StatusForbidden, map[string]any{
			"success":             false,
			"error":               "access denied",
			"requiredPermissions": required,
		})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	data := view.TemplateData{
		Title:       "Access denied",
		CurrentPath: r.URL.Path,
		User:        shared.PrincipalFromContext(r.Context()),
		Data:        deniedPage{Required: required, Back: backTarget(r)},
	}
	if err := m.Templates.Render(w, "pages/access_denied.html", data); err != nil {
		m.logError("render access denied", err)
	}
}

func (m Middleware) loginPath() string {
	if m.LoginPath == "" {
		return DefaultLoginPath
	}
	return m.LoginPath
}

func (m Middleware) normalize(perms []string) []string {
	normalized := normalizePermissions(perms)
	if m.Registry != nil {
		if err := m.Registry.Validate(normalized...); err != nil {
			panic("rbac: " + err.Error())
		}
	}
	return normalized
}

func (m Middleware) logError(msg string, err error) {
	if m.Logger != nil {
		m.Logger.Error(msg, slog.Any("error", err))
	}
}

// normalizePermissions trims, lowercases and de-duplicates keys while keeping
// their first-seen order.
func normalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
