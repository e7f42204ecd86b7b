package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	pkghttp "github.com/BradenHooton/portal/pkg/http"
	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5/middleware"
)

// Recoverer turns a panic into a 500 response and reports it to Sentry.
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				stack := string(debug.Stack())
				requestID := middleware.GetReqID(r.Context())

				hub := sentry.GetHubFromContext(r.Context())
				if hub == nil {
					hub = sentry.CurrentHub().Clone()
				}
				hub.WithScope(func(scope *sentry.Scope) {
					scope.SetTag("request_id", requestID)
					scope.SetContext("request", sentry.Context{
						"method": r.Method,
						"path":   r.URL.Path,
						"stack":  stack,
					})
					hub.RecoverWithContext(r.Context(), rec)
				})

				logger.ErrorContext(r.Context(), "panic_recovered",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", requestID),
					slog.String("panic", fmt.Sprint(rec)),
				)

				pkghttp.WriteInternalError(w, "An error occurred while processing the request")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
