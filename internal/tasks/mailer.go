package tasks

import (
	"context"
	"log/slog"
)

// Mail is a fully rendered outbound message.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers account mail. SMTP transport lives behind this interface;
// the default implementation just records the send.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// LogMailer writes outbound mail to the log instead of delivering it. Used in
// development and wherever no SMTP relay is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, mail Mail) error {
	m.logger.Info("outbound mail",
		"to", mail.To,
		"subject", mail.Subject,
		"body", mail.Body,
	)
	return nil
}

var _ Mailer = (*LogMailer)(nil)
