package smtp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/lexsync/config"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/testutil"
)

func notifierConfig(server *testutil.TestSMTPServer) *config.NotifierConfig {
	host, port := server.HostPort()
	return &config.NotifierConfig{
		Enabled:     true,
		SMTPHost:    host,
		SMTPPort:    port,
		SMTPUser:    testutil.SMTPUsername,
		SMTPPass:    testutil.SMTPPassword,
		FromAddress: "lexsync@example.com",
		ToAddress:   "ops@example.com, finance@example.com",
	}
}

func TestNotify_SendsPlainTextMail(t *testing.T) {
	server := testutil.NewTestSMTPServer(t)
	notifier := NewSMTPNotifier(notifierConfig(server), logger.NewNopLogger())

	notifier.Notify(context.Background(), "Upload to Lexware API failed", "File: /var/pdfs/a.pdf\nError: HTTP 500")

	messages := server.Backend.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "lexsync@example.com", messages[0].From)
	assert.Equal(t, []string{"ops@example.com", "finance@example.com"}, messages[0].To)

	data := string(messages[0].Data)
	assert.Contains(t, data, "Subject: Upload to Lexware API failed")
	assert.Contains(t, data, "File: /var/pdfs/a.pdf")
	assert.Contains(t, data, "Error: HTTP 500")
}

func TestSend_PlainRelayWithoutStartTLS(t *testing.T) {
	server := testutil.NewTestSMTPServer(t)
	cfg := notifierConfig(server)
	cfg.SMTPUser = ""
	cfg.SMTPPass = ""
	n := NewSMTPNotifier(cfg, logger.NewNopLogger()).(*smtpNotifier)

	require.NoError(t, n.send([]string{"ops@example.com"}, []byte("Subject: s\r\n\r\nbody\r\n")))

	messages := server.Backend.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, []string{"ops@example.com"}, messages[0].To)
	assert.Contains(t, string(messages[0].Data), "body")
}

func TestSend_AuthenticatesWithoutTLS(t *testing.T) {
	server := testutil.NewTestSMTPServer(t)
	n := NewSMTPNotifier(notifierConfig(server), logger.NewNopLogger()).(*smtpNotifier)

	require.NoError(t, n.send([]string{"ops@example.com"}, []byte("Subject: s\r\n\r\nbody\r\n")))
	assert.Len(t, server.Backend.Messages(), 1)
}

func TestSend_BadCredentialsReturnAuthError(t *testing.T) {
	server := testutil.NewTestSMTPServer(t)
	cfg := notifierConfig(server)
	cfg.SMTPPass = "wrong"
	n := NewSMTPNotifier(cfg, logger.NewNopLogger()).(*smtpNotifier)

	err := n.send([]string{"ops@example.com"}, []byte("Subject: s\r\n\r\nbody\r\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp auth")
}

func TestNotify_BadCredentialsAreSwallowed(t *testing.T) {
	server := testutil.NewTestSMTPServer(t)
	cfg := notifierConfig(server)
	cfg.SMTPPass = "wrong"

	assert.NotPanics(t, func() {
		NewSMTPNotifier(cfg, logger.NewNopLogger()).Notify(context.Background(), "s", "m")
	})
	assert.Empty(t, server.Backend.Messages())
}

func TestNotify_Disabled(t *testing.T) {
	server := testutil.NewTestSMTPServer(t)
	cfg := notifierConfig(server)
	cfg.Enabled = false

	NewSMTPNotifier(cfg, logger.NewNopLogger()).Notify(context.Background(), "s", "m")
	assert.Empty(t, server.Backend.Messages())
}

func TestSplitRecipients(t *testing.T) {
	assert.Equal(t, []string{"a@x", "b@y"}, splitRecipients(" a@x ,, b@y "))
	assert.Nil(t, splitRecipients(" "))
	assert.Equal(t, "example.com", domainOf("lexsync@example.com"))
	assert.Equal(t, "localhost", domainOf("lexsync"))
}
