// Package email provides outbound account email delivery. The SMTP
// integration lives at the deployment boundary; LogSender is the
// development implementation that records instead of sending.
package email

import (
	"context"

	"github.com/JosipBeDa/alchemy/pkg/logger"
)

// LogSender writes outbound mail to the log. Tokens are never logged.
type LogSender struct{}

// NewLogSender creates a log-only sender.
func NewLogSender() *LogSender {
	return &LogSender{}
}

// SendVerification logs a verification email.
func (s *LogSender) SendVerification(ctx context.Context, email, token string) error {
	logger.Info(ctx, "verification email queued", "email", email)
	return nil
}

// SendPasswordReset logs a password reset email.
func (s *LogSender) SendPasswordReset(ctx context.Context, email, token string) error {
	logger.Info(ctx, "password reset email queued", "email", email)
	return nil
}

// SendFreezeNotice logs an account freeze notice.
func (s *LogSender) SendFreezeNotice(ctx context.Context, email string) error {
	logger.Info(ctx, "freeze notice queued", "email", email)
	return nil
}
