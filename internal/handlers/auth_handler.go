package handlers

import (
	"errors"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"childsubs/internal/logger"
	"childsubs/internal/models"
	"childsubs/internal/security"
	"childsubs/internal/service"
	"childsubs/internal/validation"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService          *service.AuthService
	templates            *template.Template
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
	logger               *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, templates *template.Template, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		templates:            templates,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		logger:               logger,
	}
}

// signedIn returns the user behind a valid session cookie, if any
func (h *AuthHandler) signedIn(r *http.Request) *models.User {
	cookie, err := r.Cookie(security.SessionCookieName)
	if err != nil {
		return nil
	}
	user, err := h.authService.ValidateSession(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	return user
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data LoginViewData) {
	data.Title = "Log in"
	data.OAuthProviders = h.oauthProviderViews()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.ExecuteTemplate(w, "login.tmpl", data); err != nil {
		logger.FromContext(r.Context(), h.logger).Error("error rendering login template", zap.Error(err))
	}
}

// ShowLogin renders the login page
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	if h.signedIn(r) != nil {
		http.Redirect(w, r, myChildrenPath, http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, LoginViewData{})
}

// Login handles login form submission
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")

	session, user, err := h.authService.Login(r.Context(), email, password)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			logger.FromContext(r.Context(), h.logger).Error("login failed", zap.Error(err))
		}
		h.renderLogin(w, r, http.StatusUnauthorized, LoginViewData{Error: "Invalid email or password", Email: email})
		return
	}

	logger.FromContext(r.Context(), h.logger).Info("user logged in", zap.Int64("user_id", user.ID))
	http.SetCookie(w, security.CreateSessionCookie(r, session.ID, session.ExpiresAt))
	http.Redirect(w, r, myChildrenPath, http.StatusSeeOther)
}

// ShowRegister renders the registration page
func (h *AuthHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	if h.signedIn(r) != nil {
		http.Redirect(w, r, myChildrenPath, http.StatusSeeOther)
		return
	}
	h.renderRegister(w, r, http.StatusOK, RegisterViewData{})
}

func (h *AuthHandler) renderRegister(w http.ResponseWriter, r *http.Request, status int, data RegisterViewData) {
	data.Title = "Register"
	data.OAuthProviders = h.oauthProviderViews()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.ExecuteTemplate(w, "register.tmpl", data); err != nil {
		logger.FromContext(r.Context(), h.logger).Error("error rendering register template", zap.Error(err))
	}
}

// Register handles registration form submission
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")
	name := r.FormValue("name")

	if _, err := h.authService.Register(r.Context(), email, password, name); err != nil {
		var fieldErr validation.FieldError
		msg := "Registration failed. Please try again."
		switch {
		case errors.As(err, &fieldErr):
			msg = fieldErr.Message
		case errors.Is(err, service.ErrEmailTaken):
			msg = "An account with that email already exists."
		default:
			logger.FromContext(r.Context(), h.logger).Error("registration failed", zap.Error(err))
		}
		h.renderRegister(w, r, http.StatusBadRequest, RegisterViewData{Error: msg, Email: email, Name: name})
		return
	}

	// Auto-login after registration
	session, _, err := h.authService.Login(r.Context(), email, password)
	if err != nil {
		http.Redirect(w, r, loginPath, http.StatusSeeOther)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, session.ID, session.ExpiresAt))
	http.Redirect(w, r, myChildrenPath, http.StatusSeeOther)
}

// Logout handles logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(security.SessionCookieName); err == nil {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			logger.FromContext(r.Context(), h.logger).Warn("failed to delete session", zap.Error(err))
		}
	}

	http.SetCookie(w, security.CreateDeleteCookie(r, security.SessionCookieName))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Home sends signed-in users to their children and everyone else to the shop
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	if h.signedIn(r) != nil {
		http.Redirect(w, r, myChildrenPath, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/shop", http.StatusSeeOther)
}
