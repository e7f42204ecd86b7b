package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeadersConfig holds security headers configuration
type SecurityHeadersConfig struct {
	Env string
}

// SecurityHeaders returns a middleware that adds security headers to all responses.
// The API serves JSON and images only, so nothing may be scripted or framed.
func SecurityHeaders(config SecurityHeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Content-Security-Policy", "default-src 'none'; img-src 'self' data:; frame-ancestors 'none'")
			h.Set("Permissions-Policy", "camera=(), geolocation=(), microphone=(), payment=(), usb=()")
			h.Set("X-DNS-Prefetch-Control", "off")
			h.Set("Cross-Origin-Opener-Policy", "same-origin")
			// Profile images are embedded by the front end on another origin
			h.Set("Cross-Origin-Resource-Policy", "cross-origin")

			// HSTS only over HTTPS in production
			if config.Env == "production" && (r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https") {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			if !strings.HasPrefix(r.URL.Path, "/user/image/") {
				h.Set("Cache-Control", "no-store")
			}

			next.ServeHTTP(w, r)
		})
	}
}
