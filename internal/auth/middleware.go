package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aegis-auth/aegis/internal/platform/httpx"
	"github.com/aegis-auth/aegis/internal/shared"
)

// Gate authenticates requests from bearer tokens. An absent or malformed
// Authorization header leaves the request anonymous so RequireAuth or the
// permission middleware can reject it later, while a presented token that
// fails verification, revocation or account checks terminates the request
// immediately.
type Gate struct {
	logger  *slog.Logger
	service *Service
}

// NewGate constructs the authentication middleware.
func NewGate(logger *slog.Logger, service *Service) *Gate {
	return &Gate{logger: logger, service: service}
}

// Authenticate resolves the bearer token, if any, into a principal bound to
// the request context.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := parts[1]

		claims, err := g.service.Tokens().Verify(token)
		if err != nil {
			httpx.Error(w, http.StatusUnauthorized, httpx.CodeAuthenticationFailed, "Invalid or expired token")
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			httpx.Error(w, http.StatusUnauthorized, httpx.CodeAuthenticationFailed, "Invalid token payload")
			return
		}

		revoked, err := g.service.IsRevoked(r.Context(), token)
		if err != nil {
			g.logger.Error("blacklist lookup", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		if revoked {
			httpx.Error(w, http.StatusUnauthorized, httpx.CodeAuthenticationFailed, "Token has been revoked")
			return
		}

		user, err := g.service.UserByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				httpx.Error(w, http.StatusUnauthorized, httpx.CodeAuthenticationFailed, "User not found or inactive")
				return
			}
			g.logger.Error("load user", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		if !user.IsActive {
			httpx.Error(w, http.StatusUnauthorized, httpx.CodeAuthenticationFailed, "User not found or inactive")
			return
		}

		ctx := shared.ContextWithPrincipal(r.Context(), &shared.Principal{ID: user.ID, Email: user.Email})
		ctx = shared.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects requests that did not authenticate.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.PrincipalFromContext(r.Context()) == nil {
			httpx.Error(w, http.StatusUnauthorized, httpx.CodeAuthenticationRequired, "Valid authentication token required.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
