package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"tenxdev/internal/models"
	"tenxdev/internal/security"
	"tenxdev/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const UserContextKey ContextKey = "user"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	limiter     *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService, limiter *security.RateLimiter) *Middleware {
	return &Middleware{
		authService: authService,
		limiter:     limiter,
	}
}

// RequireAuth rejects requests without a valid session and puts the
// authenticated identity on the request context.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
			return
		}

		user, err := m.authService.ValidateSession(cookie.Value)
		if err != nil {
			http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
			writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
			return
		}

		identity := user.Public()
		ctx := context.WithValue(r.Context(), UserContextKey, &identity)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin is RequireAuth plus the admin role gate
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		if user == nil || !user.IsAdmin {
			writeError(w, http.StatusForbidden, ErrMsgForbidden)
			return
		}
		next(w, r)
	})
}

// RateLimit throttles a handler per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.limiter.Allow(security.GetClientIP(r)) {
			writeError(w, http.StatusTooManyRequests, ErrMsgTooManyRequests)
			return
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// GetUserFromContext retrieves the authenticated identity from the
// request context.
func GetUserFromContext(ctx context.Context) *models.PublicUser {
	user, ok := ctx.Value(UserContextKey).(*models.PublicUser)
	if !ok {
		return nil
	}
	return user
}
