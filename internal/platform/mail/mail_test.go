// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mail_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/taskflow/internal/platform/mail"
)

type captureSender struct {
	messages []mail.Message
	err      error
}

func (c *captureSender) Send(_ context.Context, message mail.Message) error {
	c.messages = append(c.messages, message)
	return c.err
}

/*
TestMailer_Links verifies each message links to the right page with an escaped token.
*/
func TestMailer_Links(t *testing.T) {
	sender := &captureSender{}
	mailer := mail.NewMailer("https://app.taskflow.dev/", nil, mail.WithSender(sender))

	require.NoError(t, mailer.SendVerification(context.Background(), "a@x.com", "tok+en"))
	require.NoError(t, mailer.SendPasswordReset(context.Background(), "a@x.com", "reset"))
	require.Len(t, sender.messages, 2)

	verify := sender.messages[0]
	assert.Equal(t, mail.KindVerification, verify.Kind)
	assert.Equal(t, "https://app.taskflow.dev/verify-email?token=tok%2Ben", verify.Link)
	assert.Contains(t, verify.TextBody, verify.Link)
	assert.Contains(t, verify.HTMLBody, verify.Link)

	reset := sender.messages[1]
	assert.Equal(t, mail.KindPasswordReset, reset.Kind)
	assert.Equal(t, "https://app.taskflow.dev/reset-password?token=reset", reset.Link)
	assert.Equal(t, "a@x.com", reset.To)
}

/*
TestMailer_ProductName verifies the product name option is applied to subjects.
*/
func TestMailer_ProductName(t *testing.T) {
	sender := &captureSender{}
	mailer := mail.NewMailer("http://localhost", nil, mail.WithSender(sender), mail.WithProductName("Acme"))

	require.NoError(t, mailer.SendVerification(context.Background(), "a@x.com", "t"))
	assert.Equal(t, "Verify your Acme email", sender.messages[0].Subject)
}

/*
TestMailer_SenderFailure verifies delivery errors are wrapped and returned.
*/
func TestMailer_SenderFailure(t *testing.T) {
	boom := errors.New("smtp down")
	mailer := mail.NewMailer("http://localhost", nil, mail.WithSender(&captureSender{err: boom}))

	err := mailer.SendPasswordReset(context.Background(), "a@x.com", "t")
	assert.ErrorIs(t, err, boom)
}

/*
TestLogSender_LinkLogging verifies the token-bearing link reaches the log only
at debug level and only when link logging is enabled.
*/
func TestLogSender_LinkLogging(t *testing.T) {
	tests := []struct {
		name     string
		level    slog.Level
		logLinks bool
		wantLink bool
	}{
		{"info level hides link", slog.LevelInfo, true, false},
		{"debug without opt-in hides link", slog.LevelDebug, false, false},
		{"debug with opt-in shows link", slog.LevelDebug, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buffer bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buffer, &slog.HandlerOptions{Level: tt.level}))
			mailer := mail.NewMailer("http://localhost", logger, mail.WithLinkLogging(tt.logLinks))

			require.NoError(t, mailer.SendPasswordReset(context.Background(), "a@x.com", "secret-token"))

			assert.Contains(t, buffer.String(), `"msg":"mail_dispatched"`)
			if tt.wantLink {
				assert.Contains(t, buffer.String(), "secret-token")
			} else {
				assert.NotContains(t, buffer.String(), "secret-token")
			}
		})
	}
}
