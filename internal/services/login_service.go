package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/portal/internal/auth"
	"github.com/BradenHooton/portal/internal/models"
	pkglogger "github.com/BradenHooton/portal/pkg/logger"
)

// AttemptTracker counts failed logins per username
type AttemptTracker interface {
	RecordFailure(principal string)
	Evict(principal string)
	Exceeded(principal string) bool
}

// TokenIssuer signs bearer tokens
type TokenIssuer interface {
	Issue(subject string, authorities []string) (string, error)
}

// LoginRequest carries credentials plus client details for the audit trail
type LoginRequest struct {
	Username  string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginResult is returned on successful authentication
type LoginResult struct {
	Token string
	User  *models.User
}

// LoginService orchestrates credential checks, lockout and token issuance
type LoginService struct {
	authenticator Authenticator
	repo          UserRepository
	attempts      AttemptTracker
	tokens        TokenIssuer
	logger        *slog.Logger
	auditLogger   *pkglogger.AuditLogger
	now           func() time.Time
}

func NewLoginService(authenticator Authenticator, repo UserRepository, attempts AttemptTracker, tokens TokenIssuer, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *LoginService {
	return &LoginService{
		authenticator: authenticator,
		repo:          repo,
		attempts:      attempts,
		tokens:        tokens,
		logger:        logger,
		auditLogger:   auditLogger,
		now:           time.Now,
	}
}

// Login authenticates the request and returns a signed token with the user's profile.
// Credential errors are returned unchanged so callers can map them with errors.Is.
func (s *LoginService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	user, err := s.authenticator.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrBadCredentials):
			s.attempts.RecordFailure(req.Username)
		case errors.Is(err, models.ErrAccountLocked):
			s.applyAttemptBookkeeping(req.Username, auth.DecideLock(true, s.attempts.Exceeded(req.Username)))
		case errors.Is(err, models.ErrAccountDisabled):
		default:
			s.logger.ErrorContext(ctx, "authentication failed", slog.Any("error", err))
		}
		s.auditLogger.LogLogin(ctx, req.Username, req.IPAddress, req.UserAgent, err)
		return nil, err
	}

	decision := auth.DecideLock(user.Locked, s.attempts.Exceeded(user.Username))
	s.applyAttemptBookkeeping(user.Username, decision)

	if decision.Locked {
		user.Locked = true
		if _, err := s.repo.Save(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to persist account lock: %w", err)
		}
		s.logger.WarnContext(ctx, "account locked after repeated failed logins", slog.String("username", user.Username))
		s.auditLogger.LogAccountAction(ctx, pkglogger.EventAccountLocked, "", user.Username, req.IPAddress, nil)
		s.auditLogger.LogLogin(ctx, user.Username, req.IPAddress, req.UserAgent, models.ErrAccountLocked)
		return nil, models.ErrAccountLocked
	}

	now := s.now().UTC()
	user.LastLoginDateDisplay = user.LastLoginDate
	user.LastLoginDate = &now

	saved, err := s.repo.Save(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	s.attempts.Evict(saved.Username)

	token, err := s.tokens.Issue(saved.Username, saved.Authorities)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("username", saved.Username))
	s.auditLogger.LogLogin(ctx, saved.Username, req.IPAddress, req.UserAgent, nil)

	return &LoginResult{Token: token, User: saved}, nil
}

func (s *LoginService) applyAttemptBookkeeping(username string, decision auth.LockDecision) {
	if decision.EvictAttempts {
		s.attempts.Evict(username)
	}
}
