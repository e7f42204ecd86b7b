package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/BradenHooton/portal/internal/auth"
	"github.com/BradenHooton/portal/internal/models"
	"github.com/BradenHooton/portal/internal/services"
	"github.com/BradenHooton/portal/internal/storage"
	pkghttp "github.com/BradenHooton/portal/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// formFile is one file part of a multipart test request
type formFile struct {
	contentType string
	content     []byte
}

// NewMultipartRequest builds a multipart/form-data request with optional profile image
func NewMultipartRequest(t *testing.T, url string, fields map[string]string, image *formFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, mw.WriteField(name, value))
	}
	if image != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="profileImage"; filename="avatar.png"`)
		header.Set("Content-Type", image.contentType)
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(image.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// WithPrincipal adds an authenticated principal to the request context
func WithPrincipal(req *http.Request, username string, authorities ...string) *http.Request {
	return req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{
		Username:    username,
		Authorities: authorities,
		Token:       "test-token",
	}))
}

// WithURLParams sets chi route parameters on a request served without a router
func WithURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target any) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), target), "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response and returns it
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.Equal(t, expectedStatus, resp.StatusCode)
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

func testUser(username string) *models.User {
	return &models.User{
		ID:          "6f1c2a64-3b0e-4d55-9a43-3a8a3f0f2c11",
		UserID:      "1234567890",
		FirstName:   "Alice",
		LastName:    "Liddell",
		Username:    username,
		Email:       username + "@example.com",
		Role:        models.RoleUser,
		Authorities: models.RoleAuthorities(models.RoleUser),
		Active:      true,
	}
}

// MockLoginService implements LoginService for testing
type MockLoginService struct {
	LoginFunc func(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error)
}

func (m *MockLoginService) Login(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrBadCredentials
	}
	return m.LoginFunc(ctx, req)
}

// MockAccountService implements AccountService for testing
type MockAccountService struct {
	RegisterFunc      func(ctx context.Context, req services.RegisterRequest) (*models.User, error)
	ResetPasswordFunc func(ctx context.Context, email string) error
}

func (m *MockAccountService) Register(ctx context.Context, req services.RegisterRequest) (*models.User, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrDuplicateUsername
	}
	return m.RegisterFunc(ctx, req)
}

func (m *MockAccountService) ResetPassword(ctx context.Context, email string) error {
	if m.ResetPasswordFunc == nil {
		return models.ErrEmailNotFound
	}
	return m.ResetPasswordFunc(ctx, email)
}

// MockUserService implements UserService for testing
type MockUserService struct {
	AddUserFunc            func(ctx context.Context, actor string, req services.UserRequest, image *storage.Upload) (*models.User, error)
	UpdateUserFunc         func(ctx context.Context, actor, currentUsername string, req services.UserRequest, image *storage.Upload) (*models.User, error)
	UnlockUserFunc         func(ctx context.Context, actor, username string) (*models.User, error)
	FindByUsernameFunc     func(ctx context.Context, username string) (*models.User, error)
	ListUsersFunc          func(ctx context.Context) ([]*models.User, error)
	DeleteUserFunc         func(ctx context.Context, actor, id string) error
	UpdateProfileImageFunc func(ctx context.Context, actor, username string, image storage.Upload) (*models.User, error)
}

func (m *MockUserService) AddUser(ctx context.Context, actor string, req services.UserRequest, image *storage.Upload) (*models.User, error) {
	if m.AddUserFunc == nil {
		return nil, models.ErrDuplicateUsername
	}
	return m.AddUserFunc(ctx, actor, req, image)
}

func (m *MockUserService) UpdateUser(ctx context.Context, actor, currentUsername string, req services.UserRequest, image *storage.Upload) (*models.User, error) {
	if m.UpdateUserFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateUserFunc(ctx, actor, currentUsername, req, image)
}

func (m *MockUserService) UnlockUser(ctx context.Context, actor, username string) (*models.User, error) {
	if m.UnlockUserFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UnlockUserFunc(ctx, actor, username)
}

func (m *MockUserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.FindByUsernameFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.FindByUsernameFunc(ctx, username)
}

func (m *MockUserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	if m.ListUsersFunc == nil {
		return []*models.User{}, nil
	}
	return m.ListUsersFunc(ctx)
}

func (m *MockUserService) DeleteUser(ctx context.Context, actor, id string) error {
	if m.DeleteUserFunc == nil {
		return models.ErrNotFound
	}
	return m.DeleteUserFunc(ctx, actor, id)
}

func (m *MockUserService) UpdateProfileImage(ctx context.Context, actor, username string, image storage.Upload) (*models.User, error) {
	if m.UpdateProfileImageFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateProfileImageFunc(ctx, actor, username, image)
}
