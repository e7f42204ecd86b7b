package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/BradenHooton/portal/internal/models"
	"github.com/BradenHooton/portal/internal/storage"
	pkgauth "github.com/BradenHooton/portal/pkg/auth"
	pkglogger "github.com/BradenHooton/portal/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	pkgauth.BcryptCost = bcrypt.MinCost
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(newTestLogger())
}

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	FindByIDFunc       func(ctx context.Context, id string) (*models.User, error)
	FindByUsernameFunc func(ctx context.Context, username string) (*models.User, error)
	FindByEmailFunc    func(ctx context.Context, email string) (*models.User, error)
	ListAllFunc        func(ctx context.Context) ([]*models.User, error)
	SaveFunc           func(ctx context.Context, user *models.User) (*models.User, error)
	DeleteByIDFunc     func(ctx context.Context, id string) error
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.FindByUsernameFunc != nil {
		return m.FindByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) ListAll(ctx context.Context) ([]*models.User, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Save(ctx context.Context, user *models.User) (*models.User, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, user)
	}
	return user, nil
}

func (m *MockUserRepository) DeleteByID(ctx context.Context, id string) error {
	if m.DeleteByIDFunc != nil {
		return m.DeleteByIDFunc(ctx, id)
	}
	return nil
}

// memoryUserRepository is an in-memory UserRepository with the same unique
// constraints as the users table
type memoryUserRepository struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{users: make(map[string]models.User)}
}

func (r *memoryUserRepository) find(match func(models.User) bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *memoryUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.ID == id })
}

func (r *memoryUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Username == username })
}

func (r *memoryUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email })
}

func (r *memoryUserRepository) ListAll(ctx context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (r *memoryUserRepository) Save(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	for id, u := range r.users {
		if id == user.ID {
			continue
		}
		if u.Username == user.Username {
			return nil, models.ErrDuplicateUsername
		}
		if u.Email == user.Email {
			return nil, models.ErrDuplicateEmail
		}
	}
	r.users[user.ID] = *cloneUser(*user)
	return cloneUser(*user), nil
}

func (r *memoryUserRepository) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memoryUserRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func cloneUser(u models.User) *models.User {
	u.Authorities = append([]string{}, u.Authorities...)
	return &u
}

// recordingEmailSender captures sent passwords
type recordingEmailSender struct {
	mu        sync.Mutex
	passwords map[string]string
	err       error
}

func newRecordingEmailSender() *recordingEmailSender {
	return &recordingEmailSender{passwords: make(map[string]string)}
}

func (s *recordingEmailSender) SendNewPassword(ctx context.Context, firstName, password, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.passwords[email] = password
	return nil
}

func (s *recordingEmailSender) passwordFor(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passwords[email]
}

// fakeImageStore records saved images in memory
type fakeImageStore struct {
	saved   map[string]string
	removed []string
	saveErr error
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{saved: make(map[string]string)}
}

func (f *fakeImageStore) DefaultURL(username string) string {
	return "http://localhost:8080/user/image/profile/" + username
}

func (f *fakeImageStore) Save(ctx context.Context, username string, upload storage.Upload) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	data, err := io.ReadAll(upload.Reader)
	if err != nil {
		return "", err
	}
	f.saved[username] = string(data)
	return "http://localhost:8080/user/image/" + username + "/" + username + ".jpg", nil
}

func (f *fakeImageStore) Remove(username string) error {
	f.removed = append(f.removed, username)
	delete(f.saved, username)
	return nil
}

// recordingEvicter records evicted principals
type recordingEvicter struct {
	evicted []string
}

func (e *recordingEvicter) Evict(principal string) {
	e.evicted = append(e.evicted, principal)
}

// MockAuthenticator implements Authenticator for testing
type MockAuthenticator struct {
	AuthenticateFunc func(ctx context.Context, username, password string) (*models.User, error)
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	return m.AuthenticateFunc(ctx, username, password)
}
