package middleware

import (
	"net/http"
)

// RequireAbility allows the request only when the calling token carries
// ability (or the "*" wildcard).
func RequireAbility(ability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "Unauthenticated.")
				return
			}
			if p.Token == nil || !p.Token.Can(ability) {
				writeJSONError(w, http.StatusForbidden, "Invalid ability provided.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
