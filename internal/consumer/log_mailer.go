package consumer

import (
	"context"

	"storefront/pkg/log"
)

// LogMailer records deliveries in the log instead of sending email. Used in
// development and as the default until an SMTP relay is configured.
type LogMailer struct{}

// Send logs the delivery
func (LogMailer) Send(ctx context.Context, to, subject, body string) error {
	log.WithFields(map[string]interface{}{
		"to":      to,
		"subject": subject,
	}).Info("Newsletter delivered (log mailer)")
	return nil
}
