package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"childsubs/internal/logger"
	"childsubs/internal/models"
	"childsubs/internal/security"
	"childsubs/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const UserContextKey ContextKey = "user"

const requestIDHeader = "X-Request-ID"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	rateLimiter *security.RateLimiter
	logger      *zap.Logger
}

// NewMiddleware creates a new middleware instance. rateLimiter may be nil.
func NewMiddleware(authService *service.AuthService, rateLimiter *security.RateLimiter, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

// sessionUser resolves the session cookie. A stale cookie is cleared.
func (m *Middleware) sessionUser(w http.ResponseWriter, r *http.Request) *models.User {
	cookie, err := r.Cookie(security.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	user, err := m.authService.ValidateSession(r.Context(), cookie.Value)
	if err != nil {
		logger.FromContext(r.Context(), m.logger).Debug("session rejected", zap.Error(err))
		http.SetCookie(w, security.CreateDeleteCookie(r, security.SessionCookieName))
		return nil
	}
	return user
}

// RequireAuth is middleware that requires a valid session
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := m.sessionUser(w, r)
		if user == nil {
			http.Redirect(w, r, loginPath, http.StatusSeeOther)
			return
		}
		next(w, r.WithContext(withUser(r.Context(), user)))
	}
}

// RequireAdmin is RequireAuth plus the admin flag
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		if !user.IsAdmin {
			logger.FromContext(r.Context(), m.logger).Warn("admin access denied", zap.Int64("user_id", user.ID))
			http.Error(w, ErrForbidden, http.StatusForbidden)
			return
		}
		next(w, r)
	})
}

// OptionalAuth attaches the user when the session is valid and lets
// anonymous requests through
func (m *Middleware) OptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if user := m.sessionUser(w, r); user != nil {
			r = r.WithContext(withUser(r.Context(), user))
		}
		next(w, r)
	}
}

// RateLimit limits requests per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.rateLimiter != nil {
			ip := security.GetClientIP(r)
			if !m.rateLimiter.Allow(ip) {
				logger.FromContext(r.Context(), m.logger).Warn("rate limit exceeded", zap.String("ip", ip))
				http.Error(w, ErrTooManyRequests, http.StatusTooManyRequests)
				return
			}
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logging attaches a request-scoped logger carrying the request ID and logs
// each request when it completes
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx, reqLogger := logger.WithRequestID(r.Context(), m.logger, requestID)
		w.Header().Set(requestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		reqLogger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func withUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
