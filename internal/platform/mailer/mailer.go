// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

// Package mailer delivers transactional email for the Credo application.
//
// Two implementations are provided:
//   - SMTPMailer sends real mail through a configured SMTP relay.
//   - LogMailer writes the message to the structured log, used in development
//     when no SMTP host is configured.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// # SMTP Mailer

// SMTPMailer sends mail through an SMTP relay using PLAIN authentication.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPMailer creates a mailer backed by an SMTP relay.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

/*
Send delivers a plain-text email to a single recipient.

Parameters:
  - ctx: Context for cancellation. net/smtp does not support contexts natively,
    so cancellation is checked before dialing.
  - to: Recipient address.
  - subject: Message subject line.
  - body: Plain-text message body.

Returns:
  - error: Delivery failure, or ctx.Err() when the context is already done.
*/
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.username, m.password, m.host)

	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("mailer_smtp_send_failed: %w", err)
	}

	return nil
}

// # Log Mailer

// LogMailer writes outbound messages to the structured log instead of
// sending them. Intended for local development.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a mailer that logs messages instead of sending them.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message at INFO level.
func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.logger.InfoContext(ctx, "outbound email (dev mode, not sent)",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}
