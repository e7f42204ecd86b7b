package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/portal/internal/models"
	pkghttp "github.com/BradenHooton/portal/pkg/http"
	"github.com/getsentry/sentry-go"
)

// User-visible messages for service failures
const (
	msgBadCredentials  = "Username / password incorrect. Please try again"
	msgAccountLocked   = "Your account has been locked. Please contact administration"
	msgAccountDisabled = "Your account has been disabled. If this is an error, please contact administration"
	msgUsernameExists  = "Username already exists"
	msgEmailExists     = "Email already exists"
	msgEmailNotFound   = "No user found for email"
	msgUserNotFound    = "User not found"
	msgInvalidRole     = "Role is not recognised"
	msgInvalidImage    = "Profile image must be a JPEG, PNG or GIF no larger than the upload limit"
	msgDelivery        = "The email could not be sent. Please try again later"
	msgUpstream        = "The image service is unavailable. Please try again later"
	msgInternal        = "An error occurred while processing the request"
)

// writeServiceError maps a service error onto the JSON error response the client sees.
// Unclassified errors are logged and reported as 500.
func writeServiceError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, models.ErrBadCredentials):
		pkghttp.WriteUnauthorized(w, msgBadCredentials)
	case errors.Is(err, models.ErrAccountLocked):
		pkghttp.WriteUnauthorized(w, msgAccountLocked)
	case errors.Is(err, models.ErrAccountDisabled):
		pkghttp.WriteUnauthorized(w, msgAccountDisabled)
	case errors.Is(err, models.ErrDuplicateUsername):
		pkghttp.WriteConflict(w, msgUsernameExists)
	case errors.Is(err, models.ErrDuplicateEmail):
		pkghttp.WriteConflict(w, msgEmailExists)
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Resource already exists")
	case errors.Is(err, models.ErrEmailNotFound):
		pkghttp.WriteNotFound(w, msgEmailNotFound)
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, msgUserNotFound)
	case errors.Is(err, models.ErrInvalidRole):
		pkghttp.WriteBadRequest(w, msgInvalidRole)
	case errors.Is(err, models.ErrInvalidImage):
		pkghttp.WriteUnsupportedMediaType(w, msgInvalidImage)
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	case errors.Is(err, models.ErrDelivery):
		logger.WarnContext(ctx, "email delivery failed", slog.Any("error", err))
		pkghttp.WriteBadGateway(w, msgDelivery)
	case errors.Is(err, models.ErrUpstream):
		logger.WarnContext(ctx, "upstream request failed", slog.Any("error", err))
		pkghttp.WriteBadGateway(w, msgUpstream)
	default:
		logger.ErrorContext(ctx, "request failed", slog.Any("error", err))
		sentry.CaptureException(err)
		pkghttp.WriteInternalError(w, msgInternal)
	}
}
