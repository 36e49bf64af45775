package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/ip-fomin/LaborX-backend/internal/platform/config"
)

// SMTPDispatcher delivers messages over SMTP. gomail handles STARTTLS and
// authentication negotiation.
type SMTPDispatcher struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPDispatcher(cfg config.SMTPConfig) *SMTPDispatcher {
	return &SMTPDispatcher{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass),
		from:   cfg.From,
	}
}

// Send delivers the message synchronously. gomail has no context support, so
// cancellation is checked before dialing; an in-flight send runs to
// completion.
func (d *SMTPDispatcher) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	if err := d.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	return nil
}
