package notification

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogEmailSender logs instead of delivering. Development wiring until the
// SMTP relay credentials land in the deployment environment.
type LogEmailSender struct {
	Logger *slog.Logger
}

func (s LogEmailSender) Send(ctx context.Context, to, subject, _ string) SendResult {
	s.Logger.InfoContext(ctx, "email (log sender)", "to", to, "subject", subject)
	return SendResult{Success: true, MessageID: uuid.NewString()}
}

// LogSMSSender logs instead of delivering.
type LogSMSSender struct {
	Logger *slog.Logger
}

func (s LogSMSSender) Send(ctx context.Context, to, message string) SendResult {
	s.Logger.InfoContext(ctx, "sms (log sender)", "to", to, "message", message)
	return SendResult{Success: true, MessageID: uuid.NewString()}
}
