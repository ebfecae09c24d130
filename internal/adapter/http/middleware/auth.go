package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/infrastructure/auth"
	"github.com/iho/creditledger/internal/infrastructure/metrics"
)

// Authenticate verifies the bearer token and attaches the operator to the
// request context.
func Authenticate(jwtManager *auth.JWTManager, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				authFailed(w, m, "missing_header", "missing authorization header")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				authFailed(w, m, "bad_header", "invalid authorization header format")
				return
			}

			claims, err := jwtManager.Verify(token)
			if err != nil {
				reason := "invalid_token"
				if errors.Is(err, domain.ErrExpiredToken) {
					reason = "expired_token"
				}
				authFailed(w, m, reason, "invalid or expired token")
				return
			}

			ctx := domain.ContextWithOperator(r.Context(), claims.Operator())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects operators below minRole.
func RequireRole(minRole domain.Role, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			op, ok := domain.OperatorFromContext(r.Context())
			if !ok {
				authFailed(w, m, "no_operator", "unauthorized")
				return
			}

			if !op.Role.Allows(minRole) {
				if m != nil {
					m.AuthFailures.WithLabelValues("insufficient_role").Inc()
				}
				writeJSONError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func authFailed(w http.ResponseWriter, m *metrics.Metrics, reason, message string) {
	if m != nil {
		m.AuthFailures.WithLabelValues(reason).Inc()
	}
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeJSONError(w, http.StatusUnauthorized, message)
}
