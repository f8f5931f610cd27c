// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mail builds and dispatches transactional messages (email verification
and password reset).

Delivery is pluggable through [Sender]. The default [LogSender] writes the
message to the structured logger, which is what development and tests use.
Token-bearing links are withheld from the log unless [WithLinkLogging] is set.
*/
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// # Message Model

// Kind identifies the template a message was built from.
type Kind string

const (
	KindVerification  Kind = "verification"
	KindPasswordReset Kind = "password_reset"
)

// Message is a fully rendered email.
type Message struct {
	Kind     Kind
	To       string
	Subject  string
	TextBody string
	HTMLBody string
	Link     string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, message Message) error
}

// # Mailer

// Mailer renders auth emails and hands them to a [Sender].
type Mailer struct {
	sender   Sender
	baseURL  string
	product  string
	logLinks bool
}

// Option configures a [Mailer].
type Option func(*Mailer)

// WithSender overrides the delivery backend.
func WithSender(sender Sender) Option {
	return func(m *Mailer) {
		m.sender = sender
	}
}

// WithProductName sets the name used in subjects and bodies.
func WithProductName(name string) Option {
	return func(m *Mailer) {
		m.product = name
	}
}

// WithLinkLogging lets the default [LogSender] write verification and reset
// links at debug level. Links carry live tokens; enable outside production only.
func WithLinkLogging(enabled bool) Option {
	return func(m *Mailer) {
		m.logLinks = enabled
	}
}

// NewMailer creates a mailer that links to pages under baseURL.
func NewMailer(baseURL string, logger *slog.Logger, opts ...Option) *Mailer {
	m := &Mailer{
		baseURL: strings.TrimRight(baseURL, "/"),
		product: "Taskflow",
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.sender == nil {
		m.sender = NewLogSender(logger, m.logLinks)
	}
	return m
}

// SendVerification sends the email verification link for token.
func (m *Mailer) SendVerification(ctx context.Context, to, token string) error {
	link := m.link("/verify-email", token)
	subject := fmt.Sprintf("Verify your %s email", m.product)

	text := fmt.Sprintf(`Welcome to %s!

Confirm your email address by opening the link below:

%s

This link expires in 24 hours. If you did not create an account, you can ignore this email.
`, m.product, link)

	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; max-width: 480px; margin: 0 auto; padding: 20px;">
<h2>Welcome to %s</h2>
<p>Confirm your email address by clicking the button below:</p>
<p><a href="%s" style="display: inline-block; padding: 12px 24px; background: #2563eb; color: #fff; text-decoration: none; border-radius: 6px;">Verify email</a></p>
<p style="color: #666; font-size: 14px;">This link expires in 24 hours.</p>
</body>
</html>`, m.product, link)

	return m.send(ctx, Message{Kind: KindVerification, To: to, Subject: subject, TextBody: text, HTMLBody: html, Link: link})
}

// SendPasswordReset sends the password reset link for token.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, token string) error {
	link := m.link("/reset-password", token)
	subject := fmt.Sprintf("Reset your %s password", m.product)

	text := fmt.Sprintf(`Someone asked to reset the password for your %s account.

Choose a new password here:

%s

This link expires in 24 hours and can be used once. If you did not request this, you can ignore this email.
`, m.product, link)

	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; max-width: 480px; margin: 0 auto; padding: 20px;">
<h2>Reset your %s password</h2>
<p><a href="%s" style="display: inline-block; padding: 12px 24px; background: #2563eb; color: #fff; text-decoration: none; border-radius: 6px;">Choose a new password</a></p>
<p style="color: #666; font-size: 14px;">This link expires in 24 hours and can be used once.</p>
</body>
</html>`, m.product, link)

	return m.send(ctx, Message{Kind: KindPasswordReset, To: to, Subject: subject, TextBody: text, HTMLBody: html, Link: link})
}

func (m *Mailer) link(path, token string) string {
	return m.baseURL + path + "?token=" + url.QueryEscape(token)
}

func (m *Mailer) send(ctx context.Context, message Message) error {
	if err := m.sender.Send(ctx, message); err != nil {
		return fmt.Errorf("mail: send %s to %s: %w", message.Kind, message.To, err)
	}
	return nil
}

// # Log Sender

// LogSender "delivers" mail by logging it.
//
// The link carries a live token. It is logged at debug level, and only when
// the sender was built with logLinks.
type LogSender struct {
	logger   *slog.Logger
	logLinks bool
}

// NewLogSender returns a sender that writes to logger.
func NewLogSender(logger *slog.Logger, logLinks bool) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger, logLinks: logLinks}
}

// Send implements [Sender].
func (s *LogSender) Send(ctx context.Context, message Message) error {
	s.logger.InfoContext(ctx, "mail_dispatched",
		slog.String("kind", string(message.Kind)),
		slog.String("to", message.To),
		slog.String("subject", message.Subject),
	)
	if !s.logLinks {
		return nil
	}
	s.logger.DebugContext(ctx, "mail_link",
		slog.String("kind", string(message.Kind)),
		slog.String("link", message.Link),
	)
	return nil
}
