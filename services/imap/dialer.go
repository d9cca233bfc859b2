package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/customeros/lexsync/config"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/tracing"
)

const logoutTimeout = 5 * time.Second

// Dialer opens authenticated connections to the configured IMAP account.
type Dialer struct {
	cfg *config.ImapConfig
	log logger.Logger
}

func NewDialer(cfg *config.ImapConfig, log logger.Logger) *Dialer {
	return &Dialer{cfg: cfg, log: log}
}

func (d *Dialer) Address() string {
	return fmt.Sprintf("%s:%d", d.cfg.Host, d.cfg.Port)
}

// Connect dials, upgrades to TLS as configured and logs in.
func (d *Dialer) Connect(ctx context.Context) (*client.Client, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Dialer.Connect")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagComponentImap(span)
	span.SetTag("server", d.cfg.Host)
	span.SetTag("port", d.cfg.Port)
	span.SetTag("encryption", d.cfg.Encryption)

	timeout := d.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	tlsConfig := &tls.Config{
		ServerName:         d.cfg.Host,
		InsecureSkipVerify: !d.cfg.ValidateCert,
	}

	var c *client.Client
	var err error

	addr := d.Address()
	switch strings.ToLower(d.cfg.Encryption) {
	case "ssl", "":
		c, err = client.DialWithDialerTLS(dialer, addr, tlsConfig)
	case "tls", "starttls":
		c, err = client.DialWithDialer(dialer, addr)
		if err == nil {
			if err = c.StartTLS(tlsConfig); err != nil {
				_ = c.Logout()
			}
		}
	case "none":
		c, err = client.DialWithDialer(dialer, addr)
	default:
		err = errors.Errorf("unsupported IMAP encryption %q", d.cfg.Encryption)
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "failed to connect to %s", addr)
	}

	c.Timeout = timeout
	if err = c.Login(d.cfg.Username, d.cfg.Password); err != nil {
		_ = c.Logout()
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "failed to login as %s", d.cfg.Username)
	}
	c.Timeout = 0

	d.log.Debug("connected to IMAP server", zap.String("address", addr))
	return c, nil
}

// Logout closes c and waits at most logoutTimeout for the server.
func Logout(c *client.Client, log logger.Logger) {
	if c == nil {
		return
	}

	c.Timeout = logoutTimeout
	done := make(chan error, 1)
	go func() {
		done <- c.Logout()
	}()

	select {
	case err := <-done:
		if err != nil && err != client.ErrAlreadyLoggedOut {
			log.Warn("IMAP logout failed", zap.Error(err))
		}
	case <-time.After(logoutTimeout):
		log.Warn("IMAP logout timed out")
		_ = c.Terminate()
	}
}
