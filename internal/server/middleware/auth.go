package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Auth returns middleware gating the API behind a deployment-level key,
// accepted either as a Bearer token or in the X-API-Key header. This is a
// perimeter credential for private deployments; it is unrelated to the
// per-user session id, which handlers resolve themselves. With an empty key
// the gate is disabled. The health endpoint always passes so probes work
// without credentials.
func Auth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" || r.URL.Path == "/api/health" {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				writeUnauthorized(w, "missing api key")
				return
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				writeUnauthorized(w, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractToken pulls the credential from Authorization: Bearer or X-API-Key.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
