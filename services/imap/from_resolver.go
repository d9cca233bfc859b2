package imap

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-message/textproto"
)

const UnknownSender = "unknown@example.com"

var (
	emailPattern = regexp.MustCompile(`(?i)[A-Z0-9._%+\-]+@[A-Z0-9.\-]+\.[A-Z]{2,}`)
	senderFields = []string{"From", "Reply-To", "Sender"}
)

// FromAddressResolver picks the sender address of a message, lowercased.
type FromAddressResolver struct{}

func NewFromAddressResolver() *FromAddressResolver {
	return &FromAddressResolver{}
}

// Resolve tries the envelope first and only calls loadHeaders when the envelope has no usable
// address. loadHeaders returns the raw From, Reply-To and Sender header block.
func (r *FromAddressResolver) Resolve(envelope *imap.Envelope, loadHeaders func() []byte) string {
	if from := r.FromEnvelope(envelope); from != "" {
		return from
	}
	if loadHeaders != nil {
		if from := r.FromHeaders(loadHeaders()); from != "" {
			return from
		}
	}
	return UnknownSender
}

func (r *FromAddressResolver) FromEnvelope(envelope *imap.Envelope) string {
	if envelope == nil {
		return ""
	}
	for _, addr := range envelope.From {
		if addr == nil || addr.MailboxName == "" || addr.HostName == "" {
			continue
		}
		if email := normalize(addr.MailboxName + "@" + addr.HostName); email != "" {
			return email
		}
	}
	return ""
}

func (r *FromAddressResolver) FromHeaders(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	if !bytes.HasSuffix(raw, []byte("\r\n\r\n")) && !bytes.HasSuffix(raw, []byte("\n\n")) {
		raw = append(append([]byte{}, raw...), "\r\n\r\n"...)
	}
	header, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return matchFirst(string(raw))
	}
	for _, field := range senderFields {
		if email := matchFirst(header.Get(field)); email != "" {
			return email
		}
	}
	return ""
}

func matchFirst(s string) string {
	for _, candidate := range emailPattern.FindAllString(s, -1) {
		if email := normalize(candidate); email != "" {
			return email
		}
	}
	return ""
}

func normalize(candidate string) string {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return ""
	}
	validation := mailvalidate.ValidateEmailSyntax(candidate)
	if validation.IsValid && validation.CleanEmail != "" {
		return strings.ToLower(validation.CleanEmail)
	}
	if emailPattern.MatchString(candidate) {
		return strings.ToLower(candidate)
	}
	return ""
}
