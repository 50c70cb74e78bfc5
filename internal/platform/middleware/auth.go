package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// TokenValidator validates admin bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// TokenClaims are the claims the gateway cares about.
type TokenClaims struct {
	Subject string
	Role    string
}

type contextKeyOperator struct{}

// GetOperator retrieves the authenticated operator subject from the context.
func GetOperator(ctx context.Context) string {
	operator, ok := ctx.Value(contextKeyOperator{}).(string)
	if !ok {
		return ""
	}
	return operator
}

// RequireAuth guards admin routes with a bearer JWT. Requests without a valid
// token are rejected with 401 before reaching the handler.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || validator == nil {
				unauthorized(w, r, logger, "missing token")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token", "error", err)
				unauthorized(w, r, logger, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyOperator{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, logger *slog.Logger, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if _, err := w.Write([]byte(`{"error":"unauthorized"}`)); err != nil {
		logger.ErrorContext(r.Context(), "failed to write unauthorized response",
			"error", err, "reason", reason)
	}
}
