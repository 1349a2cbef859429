package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// EmailSender delivers a magic-link email
type EmailSender interface {
	SendMagicLink(ctx context.Context, email, link string) error
}

// SMTPSender sends magic-link emails over SMTP with STARTTLS
type SMTPSender struct {
	Host     string // e.g. "smtp.gmail.com"
	Port     int    // e.g. 587
	Username string
	Password string
	From     string // Defaults to Username
}

func (s *SMTPSender) SendMagicLink(ctx context.Context, email, link string) error {
	from := s.From
	if from == "" {
		from = s.Username
	}

	subject := "Your SAMD Directory login link"
	body := strings.Join([]string{
		"Hello,",
		"",
		"Click the link below to log in to the SAMD Doctor Directory:",
		"",
		link,
		"",
		"This link will expire in 15 minutes.",
		"",
		"If you did not request this, you can ignore this email.",
	}, "\r\n")

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		from, email, subject, body)

	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
	if err := smtp.SendMail(addr, auth, from, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send magic link email: %w", err)
	}
	return nil
}
