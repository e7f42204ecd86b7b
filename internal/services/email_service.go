package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/portal/internal/models"
	pkglogger "github.com/BradenHooton/portal/pkg/logger"
	"github.com/avast/retry-go"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

const newPasswordSubject = "User Management Portal - New Password"

// EmailSender delivers account emails
type EmailSender interface {
	SendNewPassword(ctx context.Context, firstName, password, email string) error
}

// sesAPI is the part of the SES client used here
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESEmailSender sends emails using AWS SES, retrying transient failures
type SESEmailSender struct {
	client      sesAPI
	fromAddress string
	attempts    uint
	retryDelay  time.Duration
	sendTimeout time.Duration // per attempt, zero means none
	logger      *slog.Logger
}

// NewSESEmailSender creates an SES sender using the default AWS credential chain
func NewSESEmailSender(ctx context.Context, region, fromAddress string, sendTimeout time.Duration, logger *slog.Logger) (*SESEmailSender, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	sender := newSESEmailSender(ses.NewFromConfig(cfg), fromAddress, logger)
	sender.sendTimeout = sendTimeout
	return sender, nil
}

func newSESEmailSender(client sesAPI, fromAddress string, logger *slog.Logger) *SESEmailSender {
	return &SESEmailSender{
		client:      client,
		fromAddress: fromAddress,
		attempts:    3,
		retryDelay:  500 * time.Millisecond,
		logger:      logger,
	}
}

// SendNewPassword emails a generated password to a user
func (s *SESEmailSender) SendNewPassword(ctx context.Context, firstName, password, email string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(newPasswordSubject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(newPasswordBody(firstName, password)),
				},
			},
		},
	}

	var messageID string
	err := retry.Do(
		func() error {
			attemptCtx := ctx
			if s.sendTimeout > 0 {
				var cancel context.CancelFunc
				attemptCtx, cancel = context.WithTimeout(ctx, s.sendTimeout)
				defer cancel()
			}

			result, err := s.client.SendEmail(attemptCtx, input)
			if err != nil {
				return err
			}
			messageID = aws.ToString(result.MessageId)
			return nil
		},
		retry.Attempts(s.attempts),
		retry.Delay(s.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("retrying email delivery",
				slog.Uint64("attempt", uint64(n+1)),
				slog.String("email", pkglogger.SanitizedEmail(email)),
				slog.Any("error", err))
		}),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		s.logger.Error("failed to send new password email via SES",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return fmt.Errorf("%w: %v", models.ErrDelivery, err)
	}

	s.logger.Info("new password email sent",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("message_id", messageID))

	return nil
}

func newPasswordBody(firstName, password string) string {
	return fmt.Sprintf("Hello %s,\n\nYour new account password is: %s\n\nThe Support Team\n", firstName, password)
}

// LogEmailSender is used when no sender address is configured.
// It records that an email would have been sent; the password is never logged.
type LogEmailSender struct {
	logger *slog.Logger
}

func NewLogEmailSender(logger *slog.Logger) *LogEmailSender {
	return &LogEmailSender{logger: logger}
}

func (s *LogEmailSender) SendNewPassword(ctx context.Context, firstName, password, email string) error {
	s.logger.WarnContext(ctx, "email delivery disabled, new password email not sent",
		slog.String("email", pkglogger.SanitizedEmail(email)))
	return nil
}
