package middleware

import (
	"crypto/subtle"
	"net/http"
)

// AuthHeader carries the shared API token.
const AuthHeader = "X-Auth-Token"

// Auth rejects requests whose X-Auth-Token does not match token. An empty
// token disables the check.
func Auth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(AuthHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
