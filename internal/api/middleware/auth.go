package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cloo-solutions/campusguide/internal/api"
)

type contextKey string

// APIKeyAuth requires "Authorization: Bearer <key>" matching one of keys.
// With no keys configured every request passes.
func APIKeyAuth(keys ...string) func(http.Handler) http.Handler {
	accepted := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			accepted = append(accepted, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(accepted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := []byte(strings.TrimPrefix(authHeader, "Bearer "))
			for _, key := range accepted {
				if subtle.ConstantTimeCompare(token, key) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}
			api.Error(w, http.StatusUnauthorized, "invalid api key")
		})
	}
}
