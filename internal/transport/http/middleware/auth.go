package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/auirah-api/internal/domain"
)

type contextKey string

const principalKey contextKey = "principal"

type authenticator interface {
	Authenticate(ctx context.Context, bearer string) (*domain.Principal, error)
}

// Auth resolves the Bearer token to a stored access token and its user and
// injects the result into the request context.
func Auth(authn authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "Unauthenticated.")
				return
			}
			p, err := authn.Authenticate(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				if errors.Is(err, domain.ErrUnauthorized) {
					writeJSONError(w, http.StatusUnauthorized, "Unauthenticated.")
					return
				}
				writeJSONError(w, http.StatusInternalServerError, "Server Error")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the authenticated caller from the request context.
func PrincipalFromContext(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*domain.Principal)
	return p, ok && p != nil
}
