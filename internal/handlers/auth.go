package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BradenHooton/portal/internal/auth"
	"github.com/BradenHooton/portal/internal/models"
	"github.com/BradenHooton/portal/internal/services"
	pkghttp "github.com/BradenHooton/portal/pkg/http"
	"github.com/go-chi/chi/v5"
)

// LoginService defines the interface for the login flow
type LoginService interface {
	Login(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error)
}

// AccountService defines the self-service account operations
type AccountService interface {
	Register(ctx context.Context, req services.RegisterRequest) (*models.User, error)
	ResetPassword(ctx context.Context, email string) error
}

// AuthHandler handles login, registration and password reset
type AuthHandler struct {
	login    LoginService
	accounts AccountService
	ips      *pkghttp.ClientIPResolver
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(login LoginService, accounts AccountService, ips *pkghttp.ClientIPResolver, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		login:    login,
		accounts: accounts,
		ips:      ips,
		logger:   logger,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=128"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName" validate:"required,max=50"`
	Username  string `json:"username" validate:"required,max=50,printascii,excludesall=/"`
	Email     string `json:"email" validate:"required,email,max=254"`
}

// Home answers the liveness probe the front end uses
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Application works"))
}

// Login authenticates a user and returns the profile with a token in the Jwt-Token header
// @Summary User login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /user/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.login.Login(r.Context(), services.LoginRequest{
		Username:  strings.TrimSpace(req.Username),
		Password:  req.Password,
		IPAddress: h.ips.ClientIP(r),
		UserAgent: r.Header.Get("User-Agent"),
	})
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}

	w.Header().Set(auth.TokenHeader, result.Token)
	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(result.User))
}

// Register creates a ROLE_USER account and emails its generated password
// @Summary User registration
// @Accept json
// @Param request body RegisterRequest true "Register request"
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /user/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.accounts.Register(r.Context(), services.RegisterRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
	})
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(user))
}

// ResetPassword emails a freshly generated password to the owner of {email}
// @Summary Reset password
// @Param email path string true "Account email"
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /user/reset-password/{email} [get]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "email")))
	if err := validate.Var(email, "required,email"); err != nil {
		pkghttp.WriteBadRequest(w, "validation failed: email: must be a valid email address")
		return
	}

	if err := h.accounts.ResetPassword(r.Context(), email); err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, strings.ToUpper("An email with a new password was sent to "+email))
}
