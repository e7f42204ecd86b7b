package auth

import (
	"context"
	"net/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// PrincipalContextKey is the key for storing the authenticated principal in context
	PrincipalContextKey contextKey = "principal"
)

// Principal is the identity reconstructed from a bearer token for one request
type Principal struct {
	Username    string
	Authorities []string
	Token       string
}

// HasAuthority checks if the principal's token grants authority
func (p *Principal) HasAuthority(authority string) bool {
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

// WithPrincipal returns a copy of ctx carrying principal.
// A nil principal masks any principal set further up the chain.
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, principal)
}

// PrincipalFromContext returns the authenticated principal, or nil
func PrincipalFromContext(ctx context.Context) *Principal {
	principal, ok := ctx.Value(PrincipalContextKey).(*Principal)
	if !ok {
		return nil
	}
	return principal
}

// GetPrincipal extracts the authenticated principal from the request context
func GetPrincipal(r *http.Request) *Principal {
	return PrincipalFromContext(r.Context())
}
