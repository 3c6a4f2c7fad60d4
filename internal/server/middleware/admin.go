package middleware

import (
	"crypto/subtle"
	"net/http"
)

// AdminTokenHeader carries the token for administrative endpoints.
const AdminTokenHeader = "X-Admin-Token"

// RequireAdminToken gates destructive endpoints behind a static token.
// When token is empty the middleware is a no-op, matching local-development
// deployments that run without an admin credential.
func RequireAdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			got := r.Header.Get(AdminTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing or invalid admin token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
