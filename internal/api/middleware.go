package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// RequireAdmin returns middleware that guards admin routes with a static
// bearer token. Supports "Authorization: Bearer <token>" or the raw token
// in either the Authorization or X-API-Key header.
func RequireAdmin(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := extractToken(r)
			if provided == "" {
				writeError(w, http.StatusUnauthorized, "Missing admin token")
				return
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				slog.Warn("invalid admin token attempt",
					"token_prefix", maskToken(provided),
					"remote_addr", r.RemoteAddr,
				)
				writeError(w, http.StatusForbidden, "Invalid admin token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractToken extracts the admin token from request headers
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		if strings.HasPrefix(authHeader, "Bearer ") {
			return strings.TrimPrefix(authHeader, "Bearer ")
		}
		return authHeader
	}

	return r.Header.Get("X-API-Key")
}

// maskToken returns the first 8 chars of a token for safe logging
func maskToken(token string) string {
	if len(token) < 8 {
		return "***"
	}
	return token[:8] + "..."
}
