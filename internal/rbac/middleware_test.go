package rbac

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailorflow/tailorflow/internal/shared"
	"github.com/tailorflow/tailorflow/internal/view"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func newMiddleware(t *testing.T) Middleware {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)
	return Middleware{Templates: engine, Registry: NewRegistry()}
}

func withAuth(r *http.Request, state shared.AuthState, p *shared.Principal) *http.Request {
	return r.WithContext(shared.ContextWithAuth(r.Context(), state, p))
}

func TestRequireAuthRedirectsWithNext(t *testing.T) {
	m := newMiddleware(t)
	req := withAuth(httptest.NewRequest(http.MethodGet, "/orders?status=PENDING", nil), shared.AuthUnauthenticated, nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()

	m.RequireAuth(okHandler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login?next=%2Forders%3Fstatus%3DPENDING", rec.Header().Get("Location"))
}

func TestRequireAuthJSONUnauthorized(t *testing.T) {
	m := newMiddleware(t)
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()

	m.RequireAuth(okHandler).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"authentication required"}`, rec.Body.String())
}

func TestRequireAuthLoadingPlaceholder(t *testing.T) {
	m := newMiddleware(t)
	req := withAuth(httptest.NewRequest(http.MethodGet, "/orders", nil), shared.AuthLoading, nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()

	m.RequireAuth(okHandler).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "Loading")
	assert.NotContains(t, rec.Body.String(), "<form")
}

func TestRequireAnyDeniedHTMLListsPermissions(t *testing.T) {
	m := newMiddleware(t)
	p := &shared.Principal{UserID: "u1", Permissions: []string{"orders.view"}}
	req := withAuth(httptest.NewRequest(http.MethodGet, "/orders/new", nil), shared.AuthAuthenticated, p)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()

	m.RequireAny("orders.edit")(okHandler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "orders.edit")
	assert.Contains(t, rec.Body.String(), "data-history-back")
}

func TestRequireAnyDeniedJSON(t *testing.T) {
	m := newMiddleware(t)
	p := &shared.Principal{UserID: "u1", Permissions: []string{"orders.view"}}
	req := withAuth(httptest.NewRequest(http.MethodPost, "/api/orders/1/cancel", nil), shared.AuthAuthenticated, p)
	rec := httptest.NewRecorder()

	m.RequireAny("orders.edit", "orders.cancel")(okHandler).ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	var body struct {
		Success  bool     `json:"success"`
		Required []string `json:"requiredPermissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, []string{"orders.edit", "orders.cancel"}, body.Required)
}

func TestRequireAnyAllowed(t *testing.T) {
	m := newMiddleware(t)
	p := &shared.Principal{Permissions: []string{"orders.cancel"}}
	req := withAuth(httptest.NewRequest(http.MethodPost, "/api/orders/1/cancel", nil), shared.AuthAuthenticated, p)
	rec := httptest.NewRecorder()

	m.RequireAny("orders.edit", "orders.cancel")(okHandler).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireAllNeedsEveryKey(t *testing.T) {
	m := newMiddleware(t)
	p := &shared.Principal{Permissions: []string{"users.view"}}
	req := withAuth(httptest.NewRequest(http.MethodPost, "/api/users", nil), shared.AuthAuthenticated, p)
	rec := httptest.NewRecorder()

	m.RequireAll("users.view", "users.create")(okHandler).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAnyPanicsOnUnknownKey(t *testing.T) {
	m := newMiddleware(t)
	assert.Panics(t, func() { m.RequireAny("orders.teleport") })
}
