package rbac

import (
	"log/slog"
	"net/http"

	"github.com/aegis-auth/aegis/internal/platform/httpx"
	"github.com/aegis-auth/aegis/internal/shared"
)

// Middleware wires permission checks in front of HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Require gates a route on the access-rule matrix for the named business
// element. The required flag is derived from the HTTP verb. Anonymous
// requests get 401, denied ones 403. An empty element denies everything:
// a handler without a configured element fails closed.
func (m Middleware) Require(element string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.Error(w, http.StatusUnauthorized, httpx.CodeAuthenticationRequired, "Valid authentication token required.")
				return
			}

			action := ActionForMethod(r.Method)
			granted, err := m.Service.Allows(r.Context(), principal, element, action)
			if err != nil {
				m.logError("permission check", err)
				httpx.Error(w, http.StatusInternalServerError, httpx.CodeInternalError, "An internal server error occurred.")
				return
			}
			if !granted {
				httpx.Error(w, http.StatusForbidden, httpx.CodeInsufficientPermissions, "You do not have permission to perform this action.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin gates a route on membership of the reserved admin role.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := shared.PrincipalFromContext(r.Context())
		if principal == nil {
			httpx.Error(w, http.StatusUnauthorized, httpx.CodeAuthenticationRequired, "Valid authentication token required.")
			return
		}

		isAdmin, err := m.Service.IsAdmin(r.Context(), principal.ID)
		if err != nil {
			m.logError("admin check", err)
			httpx.Error(w, http.StatusInternalServerError, httpx.CodeInternalError, "An internal server error occurred.")
			return
		}
		if !isAdmin {
			httpx.Error(w, http.StatusForbidden, httpx.CodeInsufficientPermissions, "Administrator role required.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) logError(msg string, err error) {
	if m.Logger != nil {
		m.Logger.Error(msg, slog.Any("error", err))
	}
}
