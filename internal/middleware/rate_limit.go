package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/portal/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
}

// RateLimitByIP creates a middleware that rate limits requests by client IP.
// The client IP comes from resolver, so forwarded headers only count behind a trusted proxy.
func RateLimitByIP(config RateLimitConfig, resolver *pkghttp.ClientIPResolver) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return resolver.ClientIP(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Too many requests. Please try again later")
		}),
	)
}
