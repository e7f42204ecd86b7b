package handlers

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/portal/internal/auth"
	"github.com/BradenHooton/portal/internal/models"
	"github.com/BradenHooton/portal/internal/services"
	"github.com/BradenHooton/portal/internal/storage"
	pkghttp "github.com/BradenHooton/portal/pkg/http"
	"github.com/go-chi/chi/v5"
)

const (
	profileImageField = "profileImage"
	// Room for the text fields that accompany an upload
	formOverheadBytes = 1 << 20
	maxMemoryBytes    = 8 << 20
)

// UserService defines the interface for user administration
type UserService interface {
	AddUser(ctx context.Context, actor string, req services.UserRequest, image *storage.Upload) (*models.User, error)
	UpdateUser(ctx context.Context, actor, currentUsername string, req services.UserRequest, image *storage.Upload) (*models.User, error)
	UnlockUser(ctx context.Context, actor, username string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	DeleteUser(ctx context.Context, actor, id string) error
	UpdateProfileImage(ctx context.Context, actor, username string, image storage.Upload) (*models.User, error)
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	service        UserService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewUserHandler creates a new UserHandler. maxUploadBytes bounds the profile image part of a form.
func NewUserHandler(service UserService, maxUploadBytes int64, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Request/Response DTOs

// UserForm is the multipart form posted by the administration screens
type UserForm struct {
	FirstName   string `form:"firstName" validate:"required,max=50"`
	LastName    string `form:"lastName" validate:"required,max=50"`
	Username    string `form:"username" validate:"required,max=50,printascii,excludesall=/"`
	Email       string `form:"email" validate:"required,email,max=254"`
	Role        string `form:"role" validate:"required"`
	IsActive    string `form:"isActive" validate:"required,boolean"`
	IsNotLocked string `form:"isNotLocked" validate:"required,boolean"`
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"userId"`
	FirstName            string     `json:"firstName"`
	LastName             string     `json:"lastName"`
	Username             string     `json:"username"`
	Email                string     `json:"email"`
	ProfileImageURL      string     `json:"profileImageUrl"`
	LastLoginDate        *time.Time `json:"lastLoginDate"`
	LastLoginDateDisplay *time.Time `json:"lastLoginDateDisplay"`
	JoinDate             time.Time  `json:"joinDate"`
	Role                 string     `json:"role"`
	Authorities          []string   `json:"authorities"`
	IsActive             bool       `json:"isActive"`
	IsNotLocked          bool       `json:"isNotLocked"`
}

// userModelToResponse converts a user model to a response DTO.
// The password hash never leaves the service.
func userModelToResponse(user *models.User) *UserResponse {
	authorities := user.Authorities
	if authorities == nil {
		authorities = []string{}
	}
	return &UserResponse{
		ID:                   user.ID,
		UserID:               user.UserID,
		FirstName:            user.FirstName,
		LastName:             user.LastName,
		Username:             user.Username,
		Email:                user.Email,
		ProfileImageURL:      user.ProfileImageURL,
		LastLoginDate:        user.LastLoginDate,
		LastLoginDateDisplay: user.LastLoginDateDisplay,
		JoinDate:             user.JoinDate,
		Role:                 user.Role,
		Authorities:          authorities,
		IsActive:             user.Active,
		IsNotLocked:          !user.Locked,
	}
}

// FindUser returns one user by username
// @Router /user/find/{username} [get]
func (h *UserHandler) FindUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.FindByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(user))
}

// ListUsers returns every user
// @Router /user/list [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}

	response := make([]*UserResponse, len(users))
	for i, user := range users {
		response[i] = userModelToResponse(user)
	}

	pkghttp.WriteJSON(w, http.StatusOK, response)
}

// AddUser creates a user from the administration form
// @Accept multipart/form-data
// @Router /user/add [post]
func (h *UserHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	req, ok := readUserForm(w, r)
	if !ok {
		return
	}

	image, closeImage, ok := h.optionalImage(w, r)
	if !ok {
		return
	}
	defer closeImage()

	user, err := h.service.AddUser(r.Context(), actorName(r), req, image)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(user))
}

// UpdateUser applies the administration form to the user named currentUsername
// @Accept multipart/form-data
// @Router /user/update [post]
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	currentUsername := strings.TrimSpace(r.FormValue("currentUsername"))
	if currentUsername == "" {
		pkghttp.WriteBadRequest(w, "validation failed: currentUsername: this field is required")
		return
	}

	req, ok := readUserForm(w, r)
	if !ok {
		return
	}

	image, closeImage, ok := h.optionalImage(w, r)
	if !ok {
		return
	}
	defer closeImage()

	user, err := h.service.UpdateUser(r.Context(), actorName(r), currentUsername, req, image)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(user))
}

// UnlockUser clears the lock flag and failed-login counter of {username}
// @Router /user/unlock/{username} [post]
func (h *UserHandler) UnlockUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.UnlockUser(r.Context(), actorName(r), chi.URLParam(r, "username"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(user))
}

// DeleteUser removes the user with primary key {id}
// @Router /user/delete/{id} [delete]
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := validate.Var(id, "required,uuid"); err != nil {
		pkghttp.WriteBadRequest(w, "validation failed: id: must be a valid user id")
		return
	}

	if err := h.service.DeleteUser(r.Context(), actorName(r), id); err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, "USER DELETED SUCCESSFULLY")
}

// UpdateProfileImage replaces a profile image. Without a username field the
// caller's own image is replaced; changing someone else's needs user:update.
// @Accept multipart/form-data
// @Router /user/update-profile-image [post]
func (h *UserHandler) UpdateProfileImage(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipal(r)
	if principal == nil {
		pkghttp.WriteUnauthorized(w, auth.ForbiddenMessage)
		return
	}

	if !h.parseForm(w, r) {
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	if username == "" {
		username = principal.Username
	}
	if username != principal.Username && !principal.HasAuthority(models.AuthorityUserUpdate) {
		pkghttp.WriteForbidden(w, auth.AccessDeniedMessage)
		return
	}

	image, closeImage, ok := h.optionalImage(w, r)
	if !ok {
		return
	}
	defer closeImage()
	if image == nil {
		pkghttp.WriteBadRequest(w, "validation failed: profileImage: this field is required")
		return
	}

	user, err := h.service.UpdateProfileImage(r.Context(), principal.Username, username, *image)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(user))
}

// parseForm reads a multipart or urlencoded body, bounded by the upload limit
func (h *UserHandler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+formOverheadBytes)

	err := r.ParseMultipartForm(maxMemoryBytes)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		pkghttp.WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body is too large")
		return false
	}
	pkghttp.WriteBadRequest(w, "Invalid form body")
	return false
}

// optionalImage returns the uploaded profile image, or nil when none was sent.
// The returned func closes the underlying part.
func (h *UserHandler) optionalImage(w http.ResponseWriter, r *http.Request) (*storage.Upload, func(), bool) {
	noop := func() {}
	if r.MultipartForm == nil {
		return nil, noop, true
	}

	file, header, err := r.FormFile(profileImageField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, true
	}
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid profile image")
		return nil, noop, false
	}

	closeFile := func() {
		if err := file.Close(); err != nil {
			h.logger.WarnContext(r.Context(), "failed to close upload", slog.Any("error", err))
		}
	}
	return &storage.Upload{
		ContentType: partContentType(header),
		Reader:      file,
	}, closeFile, true
}

func partContentType(header *multipart.FileHeader) string {
	if header == nil {
		return ""
	}
	return header.Header.Get("Content-Type")
}

// readUserForm validates the administration form fields
func readUserForm(w http.ResponseWriter, r *http.Request) (services.UserRequest, bool) {
	form := UserForm{
		FirstName:   strings.TrimSpace(r.FormValue("firstName")),
		LastName:    strings.TrimSpace(r.FormValue("lastName")),
		Username:    strings.TrimSpace(r.FormValue("username")),
		Email:       strings.ToLower(strings.TrimSpace(r.FormValue("email"))),
		Role:        strings.TrimSpace(r.FormValue("role")),
		IsActive:    strings.TrimSpace(r.FormValue("isActive")),
		IsNotLocked: strings.TrimSpace(r.FormValue("isNotLocked")),
	}

	if err := ValidateRequest(form); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return services.UserRequest{}, false
	}

	// Both flags passed the boolean rule above
	isActive, _ := strconv.ParseBool(form.IsActive)
	isNotLocked, _ := strconv.ParseBool(form.IsNotLocked)

	return services.UserRequest{
		FirstName:   form.FirstName,
		LastName:    form.LastName,
		Username:    form.Username,
		Email:       form.Email,
		Role:        form.Role,
		IsActive:    isActive,
		IsNotLocked: isNotLocked,
	}, true
}

// actorName is the username recorded in the audit trail
func actorName(r *http.Request) string {
	if principal := auth.GetPrincipal(r); principal != nil {
		return principal.Username
	}
	return ""
}
