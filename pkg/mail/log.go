package mail

import (
	"context"

	"github.com/storefront-go/storefront/pkg/logger"
)

// LogSender writes messages to the log instead of delivering them.
// Selected with MAIL_DRIVER=log for local development.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg *Message) error {
	if err := msg.Err(); err != nil {
		return err
	}
	names := make([]string, 0, len(msg.attachments))
	for _, a := range msg.attachments {
		names = append(names, a.Name)
	}
	logger.WithCtx(ctx).Info("mail: not sent (log driver)",
		"to", msg.to,
		"bcc", msg.bcc,
		"subject", msg.subject,
		"attachments", names,
	)
	return nil
}

// New returns the sender selected by cfg.Driver.
func New(driver string, smtp *SMTPSender) Sender {
	if driver == "smtp" && smtp != nil {
		return smtp
	}
	return LogSender{}
}
