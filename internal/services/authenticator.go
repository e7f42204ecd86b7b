package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/portal/internal/auth"
	"github.com/BradenHooton/portal/internal/models"
	pkgauth "github.com/BradenHooton/portal/pkg/auth"
)

// Authenticator checks a username and password pair.
// It returns ErrBadCredentials, ErrAccountDisabled or ErrAccountLocked on rejection.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

// PasswordAuthenticator verifies bcrypt password hashes stored in the user repository
type PasswordAuthenticator struct {
	repo   UserRepository
	timing *auth.TimingDelay
	logger *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewPasswordAuthenticator(repo UserRepository, timing *auth.TimingDelay, logger *slog.Logger) *PasswordAuthenticator {
	return &PasswordAuthenticator{
		repo:   repo,
		timing: timing,
		logger: logger,
	}
}

func (a *PasswordAuthenticator) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	start := time.Now()

	user, err := a.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Spend the same bcrypt time as a real comparison
			_ = pkgauth.ComparePassword(a.dummy(), password)
			a.timing.WaitFrom(ctx, start, false)
			return nil, models.ErrBadCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	// Lock and enabled checks run before the password check
	if user.Locked {
		a.timing.WaitFrom(ctx, start, false)
		return nil, models.ErrAccountLocked
	}
	if !user.Active {
		a.timing.WaitFrom(ctx, start, false)
		return nil, models.ErrAccountDisabled
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		a.timing.WaitFrom(ctx, start, false)
		return nil, models.ErrBadCredentials
	}

	a.timing.WaitFrom(ctx, start, true)
	return user, nil
}

func (a *PasswordAuthenticator) dummy() string {
	a.dummyOnce.Do(func() {
		hash, err := pkgauth.HashPassword("timing-equalization-placeholder")
		if err != nil {
			a.logger.Error("failed to prepare dummy hash", slog.Any("error", err))
			return
		}
		a.dummyHash = hash
	})
	return a.dummyHash
}
