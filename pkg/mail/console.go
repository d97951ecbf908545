package mail

import (
	"context"

	"go.uber.org/zap"
)

// ConsoleMailer writes messages to the application log instead of
// delivering them. Used in development and tests.
type ConsoleMailer struct {
	logger *zap.Logger
}

// NewConsoleMailer constructs a log-only mailer.
func NewConsoleMailer(logger *zap.Logger) *ConsoleMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleMailer{logger: logger}
}

// Send logs the message and reports success.
func (m *ConsoleMailer) Send(ctx context.Context, msg Message) error {
	m.logger.Sugar().Infow("mail (console)",
		"to", msg.ToAddress,
		"subject", msg.Subject,
		"body", msg.TextBody,
	)
	return nil
}
