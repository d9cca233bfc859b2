package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/customeros/lexsync/config"
	"github.com/customeros/lexsync/interfaces"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/tracing"
	"github.com/customeros/lexsync/internal/utils"
)

const implicitTLSPort = 465

type smtpNotifier struct {
	cfg *config.NotifierConfig
	log logger.Logger
	now func() time.Time
}

func NewSMTPNotifier(cfg *config.NotifierConfig, log logger.Logger) interfaces.ErrorNotifier {
	return &smtpNotifier{cfg: cfg, log: log, now: utils.Now}
}

func (n *smtpNotifier) Notify(ctx context.Context, subject, message string) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SMTPNotifier.Notify")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if !n.cfg.Enabled || n.cfg.SMTPHost == "" || n.cfg.ToAddress == "" {
		n.log.Debug("notifier disabled, dropping notification", zap.String("subject", subject))
		return
	}

	recipients := splitRecipients(n.cfg.ToAddress)
	body, err := n.buildMessage(recipients, subject, message)
	if err != nil {
		tracing.TraceErr(span, err)
		n.log.Error("failed to build notification", zap.Error(err))
		return
	}

	if err := n.send(recipients, body); err != nil {
		tracing.TraceErr(span, err)
		n.log.Error("failed to send notification", zap.String("subject", subject), zap.Error(err))
		return
	}
	n.log.Info("notification sent", zap.String("subject", subject), zap.Strings("to", recipients))
}

func (n *smtpNotifier) buildMessage(to []string, subject, text string) ([]byte, error) {
	var h mail.Header
	h.SetDate(n.now())
	h.SetSubject(subject)
	h.SetAddressList("From", []*mail.Address{{Address: n.cfg.FromAddress}})
	addresses := make([]*mail.Address, 0, len(to))
	for _, addr := range to {
		addresses = append(addresses, &mail.Address{Address: addr})
	}
	h.SetAddressList("To", addresses)
	h.Set("Message-Id", fmt.Sprintf("<%s@%s>", utils.GenerateNanoIDWithPrefix("notify", 16), domainOf(n.cfg.FromAddress)))
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	var buf bytes.Buffer
	w, err := message.CreateWriter(&buf, h.Header)
	if err != nil {
		return nil, errors.Wrap(err, "create message writer")
	}
	if _, err := w.Write([]byte(text)); err != nil {
		return nil, errors.Wrap(err, "write body")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "close message writer")
	}
	return buf.Bytes(), nil
}

func (n *smtpNotifier) send(to []string, body []byte) error {
	addr := net.JoinHostPort(n.cfg.SMTPHost, strconv.Itoa(n.cfg.SMTPPort))

	var auth sasl.Client
	if n.cfg.SMTPUser != "" {
		auth = sasl.NewPlainClient("", n.cfg.SMTPUser, n.cfg.SMTPPass)
	}

	if n.cfg.SMTPPort == implicitTLSPort {
		return gosmtp.SendMailTLS(addr, auth, n.cfg.FromAddress, to, bytes.NewReader(body))
	}

	c, err := n.dial(addr)
	if err != nil {
		return err
	}
	defer c.Close()

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return errors.Wrap(err, "smtp auth")
		}
	}
	if err := c.SendMail(n.cfg.FromAddress, to, bytes.NewReader(body)); err != nil {
		return errors.Wrap(err, "smtp send")
	}
	return c.Quit()
}

// dial upgrades to STARTTLS when the server offers it and stays plain otherwise.
func (n *smtpNotifier) dial(addr string) (*gosmtp.Client, error) {
	c, err := gosmtp.Dial(addr)
	if err != nil {
		return nil, errors.Wrap(err, "smtp dial")
	}
	if ok, _ := c.Extension("STARTTLS"); !ok {
		return c, nil
	}
	_ = c.Close()

	c, err = gosmtp.DialStartTLS(addr, &tls.Config{ServerName: n.cfg.SMTPHost})
	if err != nil {
		return nil, errors.Wrap(err, "smtp starttls")
	}
	return c, nil
}

func splitRecipients(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func domainOf(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 && i < len(address)-1 {
		return address[i+1:]
	}
	return "localhost"
}
