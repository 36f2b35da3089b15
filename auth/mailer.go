package auth

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// LogMailer writes the message to the log instead of delivering it.
// Useful for local development and the "test" activation mode.
type LogMailer struct {
	Logger Logger
}

func (m LogMailer) Send(_ context.Context, to, subject, body string) error {
	logger := m.Logger
	if logger == nil {
		logger = defLogger{}
	}
	logger.Info("mail (not delivered)", "to", to, "subject", subject, "body", body)
	return nil
}

// SMTPMailer delivers plain-text mail over SMTP.
type SMTPMailer struct {
	Addr string // host:port
	From string
	Auth smtp.Auth // optional
}

func (m SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(m.Addr, m.Auth, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
