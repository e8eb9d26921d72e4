package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const apiKeyHeader = "x-goog-api-key"

// NewAPIKeyMiddleware requires the x-goog-api-key header. With want set, the
// key must match it exactly; otherwise any non-blank key is accepted.
//
// On success, it stores a fingerprint of the key in request context.
func NewAPIKeyMiddleware(want string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(apiKeyHeader))
			if key == "" {
				key = strings.TrimSpace(r.URL.Query().Get("key"))
			}
			if key == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", "API key not provided")
				return
			}
			if want != "" && subtle.ConstantTimeCompare([]byte(key), []byte(want)) != 1 {
				writeError(w, r, http.StatusForbidden, "PERMISSION_DENIED", "API key not valid")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), fingerprint(key))))
		})
	}
}

func fingerprint(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "…" + key[len(key)-4:]
}
