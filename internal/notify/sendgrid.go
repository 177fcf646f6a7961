package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridSender delivers through the SendGrid v3 API.
type SendGridSender struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendGridSender creates a sender for the given API key and from address.
func NewSendGridSender(apiKey, fromName, fromAddress string) *SendGridSender {
	return &SendGridSender{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromAddress),
	}
}

// Send implements Sender.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	email := mail.NewSingleEmail(s.from, msg.Subject, mail.NewEmail("", msg.To), msg.Text, msg.HTML)
	resp, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
