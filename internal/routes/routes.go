package routes

import (
	"log/slog"

	"github.com/BradenHooton/portal/internal/auth"
	"github.com/BradenHooton/portal/internal/handlers"
	"github.com/BradenHooton/portal/internal/middleware"
	"github.com/BradenHooton/portal/internal/models"
	pkghttp "github.com/BradenHooton/portal/pkg/http"
	"github.com/go-chi/chi/v5"
)

// RateLimits holds the per-IP budgets of the public endpoints, in requests per minute
type RateLimits struct {
	Login         int
	Register      int
	ResetPassword int
}

// Handlers groups the HTTP handlers mounted under /user
type Handlers struct {
	Auth   *handlers.AuthHandler
	Users  *handlers.UserHandler
	Images *handlers.ImageHandler
}

// RegisterRoutes registers all application routes.
// AuthMiddleware runs on every /user request; guards decide per route.
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	verifier auth.TokenVerifier,
	ips *pkghttp.ClientIPResolver,
	limits RateLimits,
	logger *slog.Logger,
) {
	router.Route("/user", func(r chi.Router) {
		r.Use(auth.AuthMiddleware(verifier, logger))

		// Public routes - no authentication required
		r.Get("/home", h.Auth.Home)
		r.With(middleware.RateLimitByIP(middleware.RateLimitConfig{RequestsPerMinute: limits.Login}, ips)).
			Post("/login", h.Auth.Login)
		r.With(middleware.RateLimitByIP(middleware.RateLimitConfig{RequestsPerMinute: limits.Register}, ips)).
			Post("/register", h.Auth.Register)
		r.With(middleware.RateLimitByIP(middleware.RateLimitConfig{RequestsPerMinute: limits.ResetPassword}, ips)).
			Get("/reset-password/{email}", h.Auth.ResetPassword)
		r.Get("/image/profile/{username}", h.Images.DefaultProfileImage)
		r.Get("/image/{username}/{fileName}", h.Images.ProfileImage)

		// Protected routes - authentication required
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuthenticated)

			r.Get("/find/{username}", h.Users.FindUser)
			r.Get("/list", h.Users.ListUsers)
			r.Post("/update-profile-image", h.Users.UpdateProfileImage)

			r.With(auth.RequireAuthority(models.AuthorityUserCreate)).Post("/add", h.Users.AddUser)
			r.With(auth.RequireAuthority(models.AuthorityUserUpdate)).Post("/update", h.Users.UpdateUser)
			r.With(auth.RequireAuthority(models.AuthorityUserUpdate)).Post("/unlock/{username}", h.Users.UnlockUser)
			r.With(auth.RequireAuthority(models.AuthorityUserDelete)).Delete("/delete/{id}", h.Users.DeleteUser)
		})
	})
}
