package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

const (
	// TokenPrefix precedes the token in the Authorization header
	TokenPrefix = "Bearer "
	// TokenHeader carries a freshly issued token on the login response
	TokenHeader = "Jwt-Token"
)

// AuthState is the outcome of inspecting one request's credentials
type AuthState int

const (
	StateNoHeader AuthState = iota
	StateMalformedHeader
	StateTokenRejected
	StateAuthenticated
)

func (s AuthState) String() string {
	switch s {
	case StateNoHeader:
		return "no_header"
	case StateMalformedHeader:
		return "malformed_header"
	case StateTokenRejected:
		return "token_rejected"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// TokenVerifier is the part of TokenManager the middleware needs
type TokenVerifier interface {
	DecodeSubject(tokenString string) (string, error)
	Verify(tokenString, expectedSubject string) Verification
}

// Authenticate inspects the request's bearer token and returns the resulting state
// and the context the rest of the chain should see. It never fails the request.
func Authenticate(r *http.Request, verifier TokenVerifier) (AuthState, context.Context) {
	ctx := r.Context()

	if r.Method == http.MethodOptions {
		return StateNoHeader, ctx
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return StateNoHeader, ctx
	}
	if !strings.HasPrefix(authHeader, TokenPrefix) {
		return StateMalformedHeader, ctx
	}

	tokenString := strings.TrimSpace(authHeader[len(TokenPrefix):])

	// Already authenticated with this token earlier in the pipeline
	if existing := PrincipalFromContext(ctx); existing != nil && existing.Token == tokenString {
		return StateAuthenticated, ctx
	}

	username, err := verifier.DecodeSubject(tokenString)
	if err != nil {
		return StateTokenRejected, WithPrincipal(ctx, nil)
	}

	verification := verifier.Verify(tokenString, username)
	if !verification.Valid {
		return StateTokenRejected, WithPrincipal(ctx, nil)
	}

	return StateAuthenticated, WithPrincipal(ctx, &Principal{
		Username:    username,
		Authorities: verification.Authorities,
		Token:       tokenString,
	})
}

// AuthMiddleware populates the request-scoped principal from a bearer token.
// Requests without valid credentials continue unauthenticated; route guards decide
// whether that is acceptable.
func AuthMiddleware(verifier TokenVerifier, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state, ctx := Authenticate(r, verifier)

			if state == StateTokenRejected {
				logger.Debug("bearer token rejected",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
