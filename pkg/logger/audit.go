package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types
const (
	EventLogin         = "login"
	EventRegister      = "register"
	EventAccountLocked = "account_locked"
	EventAccountUnlock = "account_unlock"
	EventUserCreated   = "user_created"
	EventUserUpdated   = "user_updated"
	EventUserDeleted   = "user_deleted"
	EventPasswordReset = "password_reset"
	EventProfileImage  = "profile_image_updated"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	Username      string
	Actor         string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
		now:    time.Now,
	}
}

// Log records event. Failures are logged at warn level.
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) {
	if al == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("audit_type", "account"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	}

	if event.Username != "" {
		attrs = append(attrs, slog.String("username", event.Username))
	}
	if event.Actor != "" {
		attrs = append(attrs, slog.String("actor", event.Actor))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogLogin logs an authentication attempt
func (al *AuditLogger) LogLogin(ctx context.Context, username, ipAddress, userAgent string, err error) {
	event := AuditEvent{
		EventType: EventLogin,
		Username:  username,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Success:   err == nil,
	}
	if err != nil {
		event.FailureReason = err.Error()
	}
	al.Log(ctx, event)
}

// LogAccountAction logs an administrative or self-service action on an account
func (al *AuditLogger) LogAccountAction(ctx context.Context, eventType, actor, username, ipAddress string, metadata map[string]string) {
	al.Log(ctx, AuditEvent{
		EventType: eventType,
		Actor:     actor,
		Username:  username,
		IPAddress: ipAddress,
		Success:   true,
		Metadata:  metadata,
	})
}
