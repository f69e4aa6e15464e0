package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/rbac"
	"github.com/tailorflow/tailorflow/internal/shared"
	"github.com/tailorflow/tailorflow/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	rbac           rbac.Middleware
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		rbac:           rbac,
		validator:      httpx.NewValidator(),
	}
}

// MountRoutes registers the HTML auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

// MountAPIRoutes registers the token auth routes.
func (h *Handler) MountAPIRoutes(r chi.Router) {
	r.Post("/login", h.apiLogin)
	r.Post("/logout", h.apiLogout)
	r.With(h.rbac.RequireAuth).Get("/me", h.me)
}

type loginForm struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=8,max=200"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
	Next   string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	next := rbac.SafeNext(r.URL.Query().Get("next"))
	if state, _ := shared.AuthFromContext(r.Context()); state == shared.AuthAuthenticated {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, loginPageData{Next: next}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	form := loginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	next := rbac.SafeNext(r.PostFormValue("next"))

	errs := make(map[string]string)
	var fields httpx.FieldErrors
	if err := httpx.Validate(h.validator, form); errors.As(err, &fields) {
		for k, v := range fields {
			errs[k] = v
		}
	}
	if len(errs) == 0 {
		user, err := h.service.Authenticate(r.Context(), form.Username, form.Password)
		if err != nil {
			errs["general"] = "Invalid username or password"
		} else if sess == nil {
			h.logger.Error("session missing during login")
			errs["general"] = "Sign-in is temporarily unavailable"
		} else {
			h.sessionManager.Begin(sess, user.ID)
			sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back, " + user.Principal().DisplayName()})
			h.logger.Info("user signed in", slog.String("user_id", user.ID))
			http.Redirect(w, r, next, http.StatusSeeOther)
			return
		}
	}
	form.Password = ""
	h.renderLogin(w, r, loginPageData{Form: form, Errors: errs, Next: next}, http.StatusBadRequest)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, rbac.DefaultLoginPath, http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, data loginPageData, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	if data.Errors == nil {
		data.Errors = map[string]string{}
	}
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Sign in",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}

func (h *Handler) apiLogin(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if err := httpx.Bind(r, h.validator, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Login(r.Context(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Fail(w, http.StatusUnauthorized, "invalid username or password", nil)
			return
		}
		h.logger.Error("api login", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, res, "Signed in")
}

func (h *Handler) apiLogout(w http.ResponseWriter, r *http.Request) {
	if raw, ok := BearerToken(r); ok {
		if err := h.service.Logout(r.Context(), raw); err != nil {
			h.logger.Warn("revoke token", slog.Any("error", err))
		}
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil && sess.User() != "" {
		h.sessionManager.Destroy(sess)
	}
	httpx.OK(w, http.StatusOK, nil, "Signed out")
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, http.StatusOK, shared.PrincipalFromContext(r.Context()), "")
}
