package imap

import (
	"testing"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
)

func TestResolve_EnvelopeFirst(t *testing.T) {
	r := NewFromAddressResolver()
	env := &imap.Envelope{From: []*imap.Address{{PersonalName: "Billing", MailboxName: "Billing", HostName: "ACME.de"}}}

	called := false
	from := r.Resolve(env, func() []byte {
		called = true
		return nil
	})

	assert.Equal(t, "billing@acme.de", from)
	assert.False(t, called)
}

func TestResolve_HeaderFallbackOrder(t *testing.T) {
	r := NewFromAddressResolver()

	headers := []byte("From: undisclosed\r\nReply-To: \"Accounts\" <Accounts@Vendor.example>\r\nSender: bulk@mailer.example\r\n\r\n")
	assert.Equal(t, "accounts@vendor.example", r.Resolve(&imap.Envelope{}, func() []byte { return headers }))

	headers = []byte("Sender: bulk@mailer.example\r\n")
	assert.Equal(t, "bulk@mailer.example", r.Resolve(nil, func() []byte { return headers }))
}

func TestResolve_Unknown(t *testing.T) {
	r := NewFromAddressResolver()

	assert.Equal(t, UnknownSender, r.Resolve(nil, nil))
	assert.Equal(t, UnknownSender, r.Resolve(&imap.Envelope{}, func() []byte { return []byte("From: nobody\r\n\r\n") }))
}
