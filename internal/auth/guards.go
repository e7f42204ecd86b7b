package auth

import (
	"net/http"

	pkghttp "github.com/BradenHooton/portal/pkg/http"
)

const (
	ForbiddenMessage    = "You need to log in to access this page"
	AccessDeniedMessage = "You do not have permission to access this page"
)

// RequireAuthenticated rejects requests that reached it without a principal.
// Must be used after AuthMiddleware.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetPrincipal(r) == nil {
			pkghttp.WriteUnauthorized(w, ForbiddenMessage)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthority creates a middleware that enforces an authority claim from the token
func RequireAuthority(authority string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r)
			if principal == nil {
				pkghttp.WriteUnauthorized(w, ForbiddenMessage)
				return
			}

			if !principal.HasAuthority(authority) {
				pkghttp.WriteForbidden(w, AccessDeniedMessage)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
