package mcp

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// bearerToken extracts the credential from an Authorization header. Both
// "Bearer <key>" (any scheme case) and a bare key are accepted.
func bearerToken(header string) string {
	scheme, token, found := strings.Cut(header, " ")
	if found && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(header)
}

// AuthMiddleware rejects MCP requests whose Authorization header does not
// carry apiKey. An empty apiKey leaves the endpoint open.
func AuthMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	want := []byte(apiKey)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			slog.WarnContext(r.Context(), "mcp request without credentials", "remote", r.RemoteAddr)
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(bearerToken(header)), want) != 1 {
			slog.WarnContext(r.Context(), "mcp request with invalid key", "remote", r.RemoteAddr)
			http.Error(w, "invalid credentials", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
