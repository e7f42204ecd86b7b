package routes_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/portal/internal/auth"
	"github.com/BradenHooton/portal/internal/handlers"
	"github.com/BradenHooton/portal/internal/models"
	"github.com/BradenHooton/portal/internal/routes"
	"github.com/BradenHooton/portal/internal/services"
	"github.com/BradenHooton/portal/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "routes-test-secret-32-characters!"

type stubLogin struct {
	tokens *auth.TokenManager
}

func (s stubLogin) Login(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error) {
	if req.Password != "correct" {
		return nil, models.ErrBadCredentials
	}
	token, err := s.tokens.Issue(req.Username, models.RoleAuthorities(models.RoleUser))
	if err != nil {
		return nil, err
	}
	return &services.LoginResult{Token: token, User: user(req.Username)}, nil
}

type stubAccounts struct{}

func (stubAccounts) Register(ctx context.Context, req services.RegisterRequest) (*models.User, error) {
	return user(req.Username), nil
}

func (stubAccounts) ResetPassword(ctx context.Context, email string) error {
	return nil
}

type stubUsers struct{}

func (stubUsers) AddUser(ctx context.Context, actor string, req services.UserRequest, image *storage.Upload) (*models.User, error) {
	return user(req.Username), nil
}

func (stubUsers) UpdateUser(ctx context.Context, actor, currentUsername string, req services.UserRequest, image *storage.Upload) (*models.User, error) {
	return user(req.Username), nil
}

func (stubUsers) UnlockUser(ctx context.Context, actor, username string) (*models.User, error) {
	return user(username), nil
}

func (stubUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return user(username), nil
}

func (stubUsers) ListUsers(ctx context.Context) ([]*models.User, error) {
	return []*models.User{user("alice")}, nil
}

func (stubUsers) DeleteUser(ctx context.Context, actor, id string) error {
	return nil
}

func (stubUsers) UpdateProfileImage(ctx context.Context, actor, username string, image storage.Upload) (*models.User, error) {
	return user(username), nil
}

type stubImages struct{}

func (stubImages) Open(username, fileName string) (*os.File, error) {
	return nil, models.ErrNotFound
}

func (stubImages) DefaultAvatar(ctx context.Context, username string) ([]byte, string, error) {
	return []byte("avatar"), "image/png", nil
}

func user(username string) *models.User {
	return &models.User{
		ID:          "6f1c2a64-3b0e-4d55-9a43-3a8a3f0f2c11",
		Username:    username,
		Role:        models.RoleUser,
		Authorities: models.RoleAuthorities(models.RoleUser),
		Active:      true,
	}
}

func newRouter(t *testing.T) (http.Handler, *auth.TokenManager) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewTokenManager(testSecret, time.Hour, "user-portal", "User Management Portal")

	router := chi.NewRouter()
	routes.RegisterRoutes(router, routes.Handlers{
		Auth:   handlers.NewAuthHandler(stubLogin{tokens: tokens}, stubAccounts{}, nil, logger),
		Users:  handlers.NewUserHandler(stubUsers{}, 1024, logger),
		Images: handlers.NewImageHandler(stubImages{}, logger),
	}, tokens, nil, routes.RateLimits{Login: 3, Register: 3, ResetPassword: 3}, logger)

	return router, tokens
}

func tokenFor(t *testing.T, tokens *auth.TokenManager, username, role string) string {
	t.Helper()
	token, err := tokens.Issue(username, models.RoleAuthorities(role))
	require.NoError(t, err)
	return token
}

func TestRoutes_Guards(t *testing.T) {
	router, tokens := newRouter(t)
	userToken := tokenFor(t, tokens, "alice", models.RoleUser)
	adminToken := tokenFor(t, tokens, "root", models.RoleSuperAdmin)
	deleteURL := "/user/delete/6f1c2a64-3b0e-4d55-9a43-3a8a3f0f2c11"

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{"home is public", http.MethodGet, "/user/home", "", http.StatusOK},
		{"default image is public", http.MethodGet, "/user/image/profile/alice", "", http.StatusOK},
		{"stored image is public", http.MethodGet, "/user/image/alice/alice.jpg", "", http.StatusNotFound},
		{"list needs a token", http.MethodGet, "/user/list", "", http.StatusUnauthorized},
		{"list with user token", http.MethodGet, "/user/list", userToken, http.StatusOK},
		{"find with user token", http.MethodGet, "/user/find/alice", userToken, http.StatusOK},
		{"tampered token is anonymous", http.MethodGet, "/user/list", userToken + "x", http.StatusUnauthorized},
		{"unlock needs user:update", http.MethodPost, "/user/unlock/alice", userToken, http.StatusForbidden},
		{"unlock as super admin", http.MethodPost, "/user/unlock/alice", adminToken, http.StatusOK},
		{"delete needs user:delete", http.MethodDelete, deleteURL, userToken, http.StatusForbidden},
		{"delete anonymous", http.MethodDelete, deleteURL, "", http.StatusUnauthorized},
		{"delete as super admin", http.MethodDelete, deleteURL, adminToken, http.StatusOK},
		{"add needs user:create", http.MethodPost, "/user/add", userToken, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestRoutes_GuardMessages(t *testing.T) {
	router, tokens := newRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user/list", nil))
	assert.Contains(t, w.Body.String(), auth.ForbiddenMessage)

	req := httptest.NewRequest(http.MethodPost, "/user/add", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, tokens, "alice", models.RoleUser))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), auth.AccessDeniedMessage)
}

func TestRoutes_LoginIssuesUsableToken(t *testing.T) {
	router, _ := newRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/user/login",
		strings.NewReader(`{"username":"alice","password":"correct"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	token := w.Header().Get(auth.TokenHeader)
	require.NotEmpty(t, token)

	req := httptest.NewRequest(http.MethodGet, "/user/find/alice", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_LoginIsRateLimited(t *testing.T) {
	router, _ := newRouter(t)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/user/login", strings.NewReader(`{"username":"alice","password":"wrong"}`))
		req.RemoteAddr = "198.51.100.20:4000"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}
