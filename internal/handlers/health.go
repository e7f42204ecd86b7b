package handlers

import (
	"context"
	"log/slog"
	"net/http"

	pkghttp "github.com/BradenHooton/portal/pkg/http"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Health reports database reachability
func Health(db HealthChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(r.Context()); err != nil {
			logger.ErrorContext(r.Context(), "health check failed", slog.Any("error", err))
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "unhealthy",
				"database": "down",
			})
			return
		}

		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
			"status":   "healthy",
			"database": "up",
		})
	}
}
