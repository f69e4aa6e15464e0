package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailorflow/tailorflow/internal/auth"
	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/rbac"
	"github.com/tailorflow/tailorflow/internal/shared"
	"github.com/tailorflow/tailorflow/internal/view"
	_ "github.com/tailorflow/tailorflow/testing"
)

type stubRepo struct {
	users map[string]auth.User
	err   error
}

func (s *stubRepo) FindByUsername(ctx context.Context, username string) (auth.User, error) {
	if s.err != nil {
		return auth.User{}, s.err
	}
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrUserNotFound
}

func (s *stubRepo) FindByID(ctx context.Context, id string) (auth.User, error) {
	if s.err != nil {
		return auth.User{}, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, nil
}

type env struct {
	repo     *stubRepo
	handler  *auth.Handler
	sessions *shared.SessionManager
	tokens   *auth.Tokens
	service  *auth.Service
	mr       *miniredis.Miniredis
}

func newEnv(t *testing.T) *env {
	t.Helper()
	hash, err := auth.HashPassword("correct-horse")
	require.NoError(t, err)
	repo := &stubRepo{users: map[string]auth.User{
		"u-1": {ID: "u-1", Username: "ayesha", Name: "Ayesha", PasswordHash: hash, Role: "DYEING", Permissions: shared.DyeingScopes(), IsActive: true},
		"u-2": {ID: "u-2", Username: "retired", Name: "Retired", PasswordHash: hash, IsActive: false},
	}}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	tokens := auth.NewTokens("token-secret", time.Hour, client)
	service := auth.NewService(repo, tokens, nil)
	templates, err := view.NewEngine()
	require.NoError(t, err)
	handler := auth.NewHandler(nil, service, templates, sessions, shared.NewCSRFManager("csrf"), rbac.Middleware{})
	return &env{repo: repo, handler: handler, sessions: sessions, tokens: tokens, service: service, mr: mr}
}

// serve runs the request through session loading, the resolver and the auth
// routes, committing the session afterwards.
func (e *env) serve(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	sess, err := e.sessions.Load(req.Context(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	router := chi.NewRouter()
	router.Use(auth.Resolver{Service: e.service, Tokens: e.tokens, Sessions: e.sessions}.Middleware)
	router.Route("/auth", e.handler.MountRoutes)
	router.Route("/api/auth", e.handler.MountAPIRoutes)

	rec := httptest.NewRecorder()
	cw := &commitWriter{ResponseWriter: rec, commit: func() {
		require.NoError(t, e.sessions.Commit(ctx, rec, req, sess))
	}}
	router.ServeHTTP(cw, req)
	if !cw.done {
		cw.WriteHeader(http.StatusOK)
	}
	return rec
}

// commitWriter persists the session before the status line is written, as
// the application middleware does.
type commitWriter struct {
	http.ResponseWriter
	commit func()
	done   bool
}

func (w *commitWriter) WriteHeader(status int) {
	if !w.done {
		w.done = true
		w.commit()
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *commitWriter) Write(b []byte) (int, error) {
	if !w.done {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func sessionCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginPage(t *testing.T) {
	e := newEnv(t)
	rec := e.serve(t, httptest.NewRequest(http.MethodGet, "/auth/login?next=/dyeing", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<form")
	assert.Contains(t, body, `value="/dyeing"`)
}

func TestLoginInvalidCredentials(t *testing.T) {
	e := newEnv(t)
	form := url.Values{"username": {"ayesha"}, "password": {"wrong-password"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := e.serve(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid username or password")
}

func TestLoginRedirectsToNextAndResolvesSession(t *testing.T) {
	e := newEnv(t)
	form := url.Values{"username": {"ayesha"}, "password": {"correct-horse"}, "next": {"/dyeing?scope=mine"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := e.serve(t, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dyeing?scope=mine", rec.Header().Get("Location"))
	cookie := sessionCookie(rec, e.sessions.CookieName())
	require.NotNil(t, cookie)

	me := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	me.AddCookie(cookie)
	rec = e.serve(t, me)
	require.Equal(t, http.StatusOK, rec.Code)
	var envl struct {
		Success bool             `json:"success"`
		Data    shared.Principal `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envl))
	assert.Equal(t, "u-1", envl.Data.UserID)
	assert.ElementsMatch(t, shared.DyeingScopes(), envl.Data.Permissions)
}

func TestLoginRejectsOffsiteNext(t *testing.T) {
	e := newEnv(t)
	form := url.Values{"username": {"ayesha"}, "password": {"correct-horse"}, "next": {"//evil.example/x"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := e.serve(t, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestInactiveUserCannotLogin(t *testing.T) {
	e := newEnv(t)
	_, err := e.service.Authenticate(context.Background(), "retired", "correct-horse")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAPILoginTokenLifecycle(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"ayesha","password":"correct-horse"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := e.serve(t, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var login struct {
		Data auth.LoginResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.Data.Token)
	assert.Equal(t, "u-1", login.Data.User.UserID)

	bearer := "Bearer " + login.Data.Token
	me := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	me.Header.Set("Authorization", bearer)
	assert.Equal(t, http.StatusOK, e.serve(t, me).Code)

	out := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	out.Header.Set("Authorization", bearer)
	assert.Equal(t, http.StatusOK, e.serve(t, out).Code)

	me = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	me.Header.Set("Authorization", bearer)
	rec = e.serve(t, me)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var fail httpx.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fail))
	assert.False(t, fail.Success)
}

func TestAPILoginWrongPassword(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"ayesha","password":"nope-nope-nope"}`))
	rec := e.serve(t, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResolverStates(t *testing.T) {
	e := newEnv(t)
	var got shared.AuthState
	probe := auth.Resolver{Service: e.service, Tokens: e.tokens, Sessions: e.sessions}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = shared.AuthFromContext(r.Context())
	}))

	t.Run("anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		probe.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, shared.AuthUnauthenticated, got)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		probe.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, shared.AuthUnauthenticated, got)
	})

	t.Run("session store failure stays loading", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(shared.ContextWithAuth(req.Context(), shared.AuthLoading, nil))
		probe.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, shared.AuthLoading, got)
	})

	t.Run("user store failure is loading", func(t *testing.T) {
		token, _, err := e.tokens.Issue(e.repo.users["u-1"])
		require.NoError(t, err)
		e.repo.err = assert.AnError
		defer func() { e.repo.err = nil }()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		probe.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, shared.AuthLoading, got)
	})

	t.Run("deactivated user", func(t *testing.T) {
		token, _, err := e.tokens.Issue(e.repo.users["u-2"])
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		probe.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, shared.AuthUnauthenticated, got)
	})
}

func TestTokensRejectForeignSecret(t *testing.T) {
	e := newEnv(t)
	other := auth.NewTokens("other-secret", time.Hour, nil)
	raw, _, err := other.Issue(e.repo.users["u-1"])
	require.NoError(t, err)
	_, err = e.tokens.Parse(context.Background(), raw)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
