package utils

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridMailer delivers mail through the SendGrid API, selected with
// MAIL_PROVIDER=SENDGRID.
type SendGridMailer struct {
	client *sendgrid.Client
	from   string
}

func NewSendGridMailer(apiKey, from string) *SendGridMailer {
	return &SendGridMailer{client: sendgrid.NewSendClient(apiKey), from: from}
}

func (m *SendGridMailer) Send(to, subject, htmlBody string) error {
	message := mail.NewSingleEmail(
		mail.NewEmail("LearnHub", m.from),
		subject,
		mail.NewEmail("", to),
		"",
		htmlBody,
	)
	resp, err := m.client.Send(message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned %d", resp.StatusCode)
	}
	return nil
}
