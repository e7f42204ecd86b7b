package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/portal/internal/models"
	"github.com/BradenHooton/portal/internal/storage"
	pkgauth "github.com/BradenHooton/portal/pkg/auth"
	pkglogger "github.com/BradenHooton/portal/pkg/logger"
)

// UserRepository defines the interface for user data access.
// Lookups return models.ErrNotFound when nothing matches.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ListAll(ctx context.Context) ([]*models.User, error)
	Save(ctx context.Context, user *models.User) (*models.User, error)
	DeleteByID(ctx context.Context, id string) error
}

// ProfileImageStore persists uploaded profile images
type ProfileImageStore interface {
	DefaultURL(username string) string
	Save(ctx context.Context, username string, upload storage.Upload) (string, error)
	Remove(username string) error
}

// AttemptEvicter clears failed-login counters
type AttemptEvicter interface {
	Evict(principal string)
}

// RegisterRequest is a self-service sign-up
type RegisterRequest struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
}

// UserRequest is an administrative create or update
type UserRequest struct {
	FirstName   string
	LastName    string
	Username    string
	Email       string
	Role        string
	IsNotLocked bool
	IsActive    bool
}

// UserService handles user business logic
type UserService struct {
	repo        UserRepository
	images      ProfileImageStore
	email       EmailSender
	attempts    AttemptEvicter
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, images ProfileImageStore, email EmailSender, attempts AttemptEvicter, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *UserService {
	return &UserService{
		repo:        repo,
		images:      images,
		email:       email,
		attempts:    attempts,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// Register creates an active ROLE_USER account with a generated password and
// emails the password to the new user
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if _, err := s.validateNewUsernameAndEmail(ctx, "", req.Username, req.Email); err != nil {
		return nil, err
	}

	user, password, err := s.newUser(req.FirstName, req.LastName, req.Username, req.Email, models.RoleUser)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Save(ctx, user)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.email.SendNewPassword(ctx, created.FirstName, password, created.Email); err != nil {
		s.rollbackCreate(ctx, created)
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("username", created.Username))
	s.auditLogger.LogAccountAction(ctx, pkglogger.EventRegister, created.Username, created.Username, "", nil)

	return created, nil
}

// AddUser creates an account on behalf of an administrator
func (s *UserService) AddUser(ctx context.Context, actor string, req UserRequest, image *storage.Upload) (*models.User, error) {
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	if _, err := s.validateNewUsernameAndEmail(ctx, "", req.Username, req.Email); err != nil {
		return nil, err
	}

	user, password, err := s.newUser(req.FirstName, req.LastName, req.Username, req.Email, role)
	if err != nil {
		return nil, err
	}
	user.Active = req.IsActive
	user.Locked = !req.IsNotLocked

	created, err := s.repo.Save(ctx, user)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if image != nil {
		withImage, err := s.saveProfileImage(ctx, created, *image)
		if err != nil {
			s.rollbackCreate(ctx, created)
			return nil, err
		}
		created = withImage
	}

	if err := s.email.SendNewPassword(ctx, created.FirstName, password, created.Email); err != nil {
		s.rollbackCreate(ctx, created)
		return nil, err
	}

	s.logger.InfoContext(ctx, "user created", slog.String("username", created.Username), slog.String("role", created.Role))
	s.auditLogger.LogAccountAction(ctx, pkglogger.EventUserCreated, actor, created.Username, "", map[string]string{"role": created.Role})

	return created, nil
}

// UpdateUser applies an administrative update to the user currently named currentUsername.
// Clearing the lock flag also clears the failed-login counter.
func (s *UserService) UpdateUser(ctx context.Context, actor, currentUsername string, req UserRequest, image *storage.Upload) (*models.User, error) {
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	user, err := s.validateNewUsernameAndEmail(ctx, currentUsername, req.Username, req.Email)
	if err != nil {
		return nil, err
	}

	wasLocked := user.Locked
	if req.Username != user.Username && user.ProfileImageURL == s.images.DefaultURL(user.Username) {
		user.ProfileImageURL = s.images.DefaultURL(req.Username)
	}

	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.Username = req.Username
	user.Email = req.Email
	user.Active = req.IsActive
	user.Locked = !req.IsNotLocked
	user.Role = role
	user.Authorities = models.RoleAuthorities(role)

	updated, err := s.repo.Save(ctx, user)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to update user", slog.String("username", currentUsername), slog.Any("error", err))
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if wasLocked && !updated.Locked {
		s.attempts.Evict(currentUsername)
		s.attempts.Evict(updated.Username)
		s.auditLogger.LogAccountAction(ctx, pkglogger.EventAccountUnlock, actor, updated.Username, "", nil)
	}

	if image != nil {
		withImage, err := s.saveProfileImage(ctx, updated, *image)
		if err != nil {
			return nil, err
		}
		updated = withImage
	}

	s.logger.InfoContext(ctx, "user updated", slog.String("username", updated.Username))
	s.auditLogger.LogAccountAction(ctx, pkglogger.EventUserUpdated, actor, updated.Username, "", map[string]string{
		"previous_username": currentUsername,
		"role":              updated.Role,
	})

	return updated, nil
}

// UnlockUser clears the lock flag and the failed-login counter
func (s *UserService) UnlockUser(ctx context.Context, actor, username string) (*models.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if user.Locked {
		user.Locked = false
		if user, err = s.repo.Save(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to unlock user: %w", err)
		}
	}
	s.attempts.Evict(user.Username)

	s.logger.InfoContext(ctx, "user unlocked", slog.String("username", user.Username))
	s.auditLogger.LogAccountAction(ctx, pkglogger.EventAccountUnlock, actor, user.Username, "", nil)

	return user, nil
}

func (s *UserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.repo.FindByUsername(ctx, username)
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.FindByEmail(ctx, email)
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.repo.ListAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list users", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// DeleteUser removes the account, its profile images and its failed-login counter
func (s *UserService) DeleteUser(ctx context.Context, actor, id string) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return err
	}

	if err := s.images.Remove(user.Username); err != nil {
		s.logger.WarnContext(ctx, "failed to remove profile images", slog.String("username", user.Username), slog.Any("error", err))
	}
	s.attempts.Evict(user.Username)

	s.logger.InfoContext(ctx, "user deleted", slog.String("username", user.Username))
	s.auditLogger.LogAccountAction(ctx, pkglogger.EventUserDeleted, actor, user.Username, "", map[string]string{"id": id})

	return nil
}

// ResetPassword replaces the password of the account registered to email and
// mails the new one
func (s *UserService) ResetPassword(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrEmailNotFound
		}
		return err
	}

	password, err := pkgauth.GeneratePassword()
	if err != nil {
		return err
	}
	previousHash := user.PasswordHash
	if user.PasswordHash, err = pkgauth.HashPassword(password); err != nil {
		return err
	}

	if _, err := s.repo.Save(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to save reset password", slog.String("username", user.Username), slog.Any("error", err))
		return fmt.Errorf("failed to reset password: %w", err)
	}

	// The old password stays valid unless the new one reached the user
	if err := s.email.SendNewPassword(ctx, user.FirstName, password, user.Email); err != nil {
		user.PasswordHash = previousHash
		if _, restoreErr := s.repo.Save(context.WithoutCancel(ctx), user); restoreErr != nil {
			s.logger.ErrorContext(ctx, "failed to restore password after delivery failure",
				slog.String("username", user.Username), slog.Any("error", restoreErr))
		}
		return err
	}

	s.logger.InfoContext(ctx, "password reset", slog.String("username", user.Username))
	s.auditLogger.LogAccountAction(ctx, pkglogger.EventPasswordReset, "", user.Username, "", nil)

	return nil
}

// UpdateProfileImage stores a new profile image for username
func (s *UserService) UpdateProfileImage(ctx context.Context, actor, username string, image storage.Upload) (*models.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	updated, err := s.saveProfileImage(ctx, user, image)
	if err != nil {
		return nil, err
	}

	s.auditLogger.LogAccountAction(ctx, pkglogger.EventProfileImage, actor, updated.Username, "", nil)
	return updated, nil
}

func (s *UserService) newUser(firstName, lastName, username, email, role string) (*models.User, string, error) {
	password, err := pkgauth.GeneratePassword()
	if err != nil {
		return nil, "", err
	}
	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	userID, err := pkgauth.GenerateUserID()
	if err != nil {
		return nil, "", err
	}

	return &models.User{
		UserID:          userID,
		FirstName:       firstName,
		LastName:        lastName,
		Username:        username,
		Email:           email,
		PasswordHash:    hash,
		ProfileImageURL: s.images.DefaultURL(username),
		JoinDate:        s.now().UTC(),
		Role:            role,
		Authorities:     models.RoleAuthorities(role),
		Active:          true,
	}, password, nil
}

func (s *UserService) saveProfileImage(ctx context.Context, user *models.User, image storage.Upload) (*models.User, error) {
	url, err := s.images.Save(ctx, user.Username, image)
	if err != nil {
		return nil, err
	}

	user.ProfileImageURL = url
	saved, err := s.repo.Save(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to save profile image url: %w", err)
	}
	return saved, nil
}

// rollbackCreate removes a user whose creation could not be completed
func (s *UserService) rollbackCreate(ctx context.Context, user *models.User) {
	if err := s.repo.DeleteByID(context.WithoutCancel(ctx), user.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to roll back user creation",
			slog.String("username", user.Username), slog.Any("error", err))
	}
	if err := s.images.Remove(user.Username); err != nil {
		s.logger.WarnContext(ctx, "failed to remove profile images", slog.String("username", user.Username), slog.Any("error", err))
	}
}

// validateNewUsernameAndEmail checks that username and email are free. With a
// non-empty currentUsername the current user may keep its own values, and is returned.
func (s *UserService) validateNewUsernameAndEmail(ctx context.Context, currentUsername, newUsername, newEmail string) (*models.User, error) {
	var current *models.User
	if strings.TrimSpace(currentUsername) != "" {
		user, err := s.repo.FindByUsername(ctx, currentUsername)
		if err != nil {
			return nil, err
		}
		current = user
	}

	byUsername, err := s.lookup(ctx, s.repo.FindByUsername, newUsername)
	if err != nil {
		return nil, err
	}
	if byUsername != nil && (current == nil || byUsername.ID != current.ID) {
		return nil, models.ErrDuplicateUsername
	}

	byEmail, err := s.lookup(ctx, s.repo.FindByEmail, newEmail)
	if err != nil {
		return nil, err
	}
	if byEmail != nil && (current == nil || byEmail.ID != current.ID) {
		return nil, models.ErrDuplicateEmail
	}

	return current, nil
}

// lookup treats ErrNotFound as an absent user
func (s *UserService) lookup(ctx context.Context, find func(context.Context, string) (*models.User, error), key string) (*models.User, error) {
	user, err := find(ctx, key)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	return user, err
}
