package testutil

import (
	"encoding/base64"
	"fmt"
	"mime/quotedprintable"
	"strings"
	"time"
)

type TestAttachment struct {
	Filename    string
	ContentType string
	Content     []byte
	// Disposition defaults to "attachment"; "none" omits the header.
	Disposition string
	// Encoding defaults to base64; quoted-printable and 7bit are supported.
	Encoding string
}

type TestMessage struct {
	MessageID   string
	Subject     string
	From        string
	To          string
	Date        time.Time
	Body        string
	Attachments []TestAttachment
}

// Build renders m as an RFC 822 message, multipart/mixed when it has attachments.
func (m TestMessage) Build() []byte {
	var b strings.Builder
	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}
	to := m.To
	if to == "" {
		to = "inbox@example.com"
	}
	if m.MessageID != "" {
		fmt.Fprintf(&b, "Message-ID: <%s>\r\n", m.MessageID)
	}
	fmt.Fprintf(&b, "Date: %s\r\n", date.Format(time.RFC1123Z))
	if m.From != "" {
		fmt.Fprintf(&b, "From: %s\r\n", m.From)
	}
	fmt.Fprintf(&b, "To: %s\r\n", to)
	if m.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	}
	b.WriteString("MIME-Version: 1.0\r\n")

	body := m.Body
	if body == "" {
		body = "Please find the invoice attached."
	}
	if len(m.Attachments) == 0 {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(body + "\r\n")
		return []byte(b.String())
	}

	const boundary = "lexsync-test-boundary"
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", boundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", boundary, body)
	for _, a := range m.Attachments {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		writeAttachment(&b, a)
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

func writeAttachment(b *strings.Builder, a TestAttachment) {
	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	if a.Filename != "" {
		fmt.Fprintf(b, "Content-Type: %s; name=%q\r\n", contentType, a.Filename)
	} else {
		fmt.Fprintf(b, "Content-Type: %s\r\n", contentType)
	}

	switch disposition := a.Disposition; {
	case disposition == "none":
	case a.Filename != "":
		fmt.Fprintf(b, "Content-Disposition: %s; filename=%q\r\n", orDefault(disposition, "attachment"), a.Filename)
	default:
		fmt.Fprintf(b, "Content-Disposition: %s\r\n", orDefault(disposition, "attachment"))
	}

	encoding := orDefault(a.Encoding, "base64")
	fmt.Fprintf(b, "Content-Transfer-Encoding: %s\r\n\r\n", encoding)
	switch encoding {
	case "base64":
		encoded := base64.StdEncoding.EncodeToString(a.Content)
		for len(encoded) > 76 {
			b.WriteString(encoded[:76] + "\r\n")
			encoded = encoded[76:]
		}
		b.WriteString(encoded + "\r\n")
	case "quoted-printable":
		var qp strings.Builder
		w := quotedprintable.NewWriter(&qp)
		_, _ = w.Write(a.Content)
		_ = w.Close()
		b.WriteString(qp.String() + "\r\n")
	default:
		b.Write(a.Content)
		b.WriteString("\r\n")
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// PdfBytes returns a tiny but well formed PDF whose body contains marker.
func PdfBytes(marker string) []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<< /Title (" + marker + ") >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
}
