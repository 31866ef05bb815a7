package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pkglogger "github.com/BradenHooton/rebelbudget/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// LockoutNotifier tells an account owner that their account was locked
type LockoutNotifier interface {
	NotifyAccountLocked(ctx context.Context, email string, until time.Time) error
}

// NoopNotifier discards notifications. Used when no sender address is configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifyAccountLocked(context.Context, string, time.Time) error { return nil }

// sesSender is the part of the SES client the notifier uses
type sesSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier sends lockout notices through AWS SES
type SESNotifier struct {
	client      sesSender
	fromAddress string
	logger      *slog.Logger
}

// NewSESNotifier loads the default AWS credential chain for region
func NewSESNotifier(ctx context.Context, region, fromAddress string, logger *slog.Logger) (*SESNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newSESNotifier(ses.NewFromConfig(cfg), fromAddress, logger), nil
}

func newSESNotifier(client sesSender, fromAddress string, logger *slog.Logger) *SESNotifier {
	return &SESNotifier{client: client, fromAddress: fromAddress, logger: logger}
}

// NotifyAccountLocked sends the lockout notice
func (s *SESNotifier) NotifyAccountLocked(ctx context.Context, email string, until time.Time) error {
	unlockAt := until.UTC().Format("15:04 MST on Jan 2, 2006")

	textBody := fmt.Sprintf(`Your RebelBudget account was temporarily locked

We saw several failed sign-in attempts on your account, so we locked it until %s.

If this was you, wait until then and try again. If it was not you, someone may know
your email address; consider changing your password once you can sign in.

This is an automated message. Please do not reply.
`, unlockAt)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <h2>Your account was temporarily locked</h2>
  <p>We saw several failed sign-in attempts on your account, so we locked it until <strong>%s</strong>.</p>
  <p>If this was you, wait until then and try again. If it was not you, someone may know your
  email address; consider changing your password once you can sign in.</p>
  <p style="color: #666; font-size: 12px;">This is an automated message. Please do not reply.</p>
</body>
</html>
`, unlockAt)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String("Your account was temporarily locked")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
				Text: &types.Content{Data: aws.String(textBody)},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send lockout email: %w", err)
	}

	s.logger.Info("lockout email sent",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("message_id", aws.ToString(result.MessageId)))
	return nil
}
