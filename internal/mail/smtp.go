package mail

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// dialer is the subset of *gomail.Dialer used by SMTPSender.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	From     string
	FromName string

	dialer dialer
}

// NewSMTPSender returns a sender that authenticates with user/pass when user
// is non-empty.
func NewSMTPSender(host string, port int, user, pass, from string) *SMTPSender {
	return &SMTPSender{
		From:   from,
		dialer: gomail.NewDialer(host, port, user, pass),
	}
}

// Send dials the relay and delivers m. gomail has no context support, so ctx
// is only checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.To == "" {
		return fmt.Errorf("mail: empty recipient")
	}

	msg := gomail.NewMessage()
	if s.FromName != "" {
		msg.SetAddressHeader("From", s.From, s.FromName)
	} else {
		msg.SetHeader("From", s.From)
	}
	if m.ToName != "" {
		msg.SetAddressHeader("To", m.To, m.ToName)
	} else {
		msg.SetHeader("To", m.To)
	}
	msg.SetHeader("Subject", m.Subject)
	contentType := "text/plain"
	if m.HTML {
		contentType = "text/html"
	}
	msg.SetBody(contentType, m.Body)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("mail: smtp send: %w", err)
	}
	return nil
}
