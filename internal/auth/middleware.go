package auth

import (
	"log/slog"
	"net/http"

	"github.com/codesagecoder/digital-marketplace/internal/platform/httpx"
	"github.com/codesagecoder/digital-marketplace/internal/shared"
	"github.com/codesagecoder/digital-marketplace/internal/users"
)

// Middleware resolves the request principal from the session.
type Middleware struct {
	logger *slog.Logger
	users  *users.Service
}

// NewMiddleware constructs the auth middleware.
func NewMiddleware(logger *slog.Logger, usersSvc *users.Service) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{logger: logger, users: usersSvc}
}

// LoadPrincipal builds the principal for authenticated sessions and stores
// it in the request context. Unauthenticated requests pass through with no
// principal; downstream access decisions deny them where required.
func (m *Middleware) LoadPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			next.ServeHTTP(w, r)
			return
		}
		principal, err := m.users.PrincipalFor(r.Context(), sess.User())
		if err != nil {
			m.logger.Warn("resolve principal", slog.Any("error", err), slog.String("user_id", sess.User()))
			next.ServeHTTP(w, r)
			return
		}
		ctx := shared.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects requests without an authenticated principal.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.PrincipalFromContext(r.Context()) == nil {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests unless the principal carries the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := shared.PrincipalFromContext(r.Context())
		if principal == nil {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		if !principal.IsAdmin() {
			httpx.RespondError(w, httpx.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
