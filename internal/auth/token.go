package auth

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/portal/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// Verification is the outcome of checking a bearer token
type Verification struct {
	Valid       bool
	Authorities []string
}

// TokenManager handles JWT token generation and validation
type TokenManager struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience string
	now      func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, ttl time.Duration, issuer, audience string) *TokenManager {
	return &TokenManager{
		secret:   []byte(secret),
		ttl:      ttl,
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}
}

// SetClock replaces the time source used for issuing and verifying tokens
func (tm *TokenManager) SetClock(now func() time.Time) {
	tm.now = now
}

// LogValue keeps the signing secret out of structured logs
func (tm *TokenManager) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("issuer", tm.issuer),
		slog.String("audience", tm.audience),
		slog.Duration("ttl", tm.ttl),
		slog.String("secret", "[REDACTED]"),
	)
}

// Issue creates a signed token for subject carrying the given authorities
func (tm *TokenManager) Issue(subject string, authorities []string) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("cannot issue token: empty subject")
	}

	now := tm.now()
	claims := &models.TokenClaims{
		Authorities: append([]string{}, authorities...),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{tm.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Verify checks signature, issuer, audience, subject and expiry.
// It never returns an error: any failure yields an invalid verdict.
func (tm *TokenManager) Verify(tokenString, expectedSubject string) Verification {
	if tokenString == "" || expectedSubject == "" {
		return Verification{}
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tm.issuer),
		jwt.WithAudience(tm.audience),
		jwt.WithSubject(expectedSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
		jwt.WithStrictDecoding(),
	)

	claims := &models.TokenClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	})
	if err != nil || !token.Valid {
		return Verification{}
	}

	authorities := claims.Authorities
	if authorities == nil {
		authorities = []string{}
	}

	return Verification{Valid: true, Authorities: authorities}
}

// DecodeSubject extracts the subject without checking the signature.
// Used to find the expected subject before full verification.
func (tm *TokenManager) DecodeSubject(tokenString string) (string, error) {
	claims := &models.TokenClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrMalformedToken, err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", models.ErrMalformedToken)
	}

	return claims.Subject, nil
}
