package lexware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/customeros/lexsync/config"
	"github.com/customeros/lexsync/interfaces"
	lexerrors "github.com/customeros/lexsync/internal/errors"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/tracing"
	"github.com/customeros/lexsync/internal/utils"
)

const (
	tenantHeader    = "X-Lexware-Tenant"
	voucherType     = "voucher"
	fallbackMime    = "application/octet-stream"
	maxErrorBodyLen = 4096
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type ClientOption func(*uploadClient)

func WithHTTPDoer(doer interfaces.HTTPDoer) ClientOption {
	return func(c *uploadClient) {
		c.doer = doer
	}
}

func WithSleeper(sleep Sleeper) ClientOption {
	return func(c *uploadClient) {
		c.sleep = sleep
	}
}

// WithRateLimiter replaces the limiter built from the config. A nil limiter disables limiting.
func WithRateLimiter(limiter *rate.Limiter) ClientOption {
	return func(c *uploadClient) {
		c.limiter = limiter
	}
}

type uploadClient struct {
	cfg       *config.LexwareConfig
	inspector interfaces.FileInspector
	log       logger.Logger
	doer      interfaces.HTTPDoer
	sleep     Sleeper
	limiter   *rate.Limiter
}

func NewUploadClient(cfg *config.LexwareConfig, inspector interfaces.FileInspector, log logger.Logger, opts ...ClientOption) interfaces.UploadClient {
	c := &uploadClient{
		cfg:       cfg,
		inspector: inspector,
		log:       log,
		doer:      &http.Client{Timeout: cfg.HTTPTimeout},
		sleep:     sleepContext,
	}
	if cfg.RatePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *uploadClient) UploadVoucherFile(ctx context.Context, path string) (map[string]any, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "UploadClient.UploadVoucherFile")
	defer span.Finish()
	tracing.TagComponentHttpClient(span)
	span.SetTag("file.path", path)

	check := c.inspector.Validate(path)
	if !check.OK {
		c.log.Error("Preflight failed", zap.String("path", path), zap.String("reason", check.Reason))
		err := &lexerrors.PreflightFailedError{Path: path, Reason: check.Reason}
		tracing.TraceErr(span, err)
		return nil, err
	}

	mime := check.Mime
	if mime == "" {
		mime = fallbackMime
	}
	filename := filepath.Base(path)
	if !utils.HasVoucherExtension(filename) {
		filename += utils.GetFileExtensionFromContentType(mime)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, &lexerrors.GenericError{Err: errors.Wrap(err, "read voucher file")}
	}

	url := strings.TrimRight(c.cfg.BaseURI, "/") + "/" + strings.TrimLeft(c.cfg.UploadEndpoint, "/")
	maxAttempts := c.cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				tracing.TraceErr(span, err)
				return nil, &lexerrors.TransportError{Attempts: attempt - 1, Err: err}
			}
		}

		req, err := c.newRequest(ctx, url, filename, mime, content)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, &lexerrors.GenericError{Err: err}
		}
		tracing.InjectSpanContextIntoHTTPRequest(req, span)

		status, body, err := c.send(req)
		if err != nil {
			c.log.Warn("Lexware request failed",
				zap.Int("attempt", attempt), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
			if attempt >= maxAttempts {
				terr := &lexerrors.TransportError{Attempts: attempt, Err: err}
				tracing.TraceErr(span, terr)
				return nil, terr
			}
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, &lexerrors.TransportError{Attempts: attempt, Err: err}
			}
			continue
		}

		c.log.Info("Lexware upload response",
			zap.String("url", url),
			zap.Int("status", status),
			zap.Int64("size", check.Size),
			zap.String("mime", mime),
			zap.String("file", path),
			zap.Int("attempt", attempt))

		if isTransientStatus(status) && attempt < maxAttempts {
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, &lexerrors.TransportError{Attempts: attempt, Err: err}
			}
			continue
		}

		span.SetTag("http.status_code", status)
		result, err := c.classify(status, body)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		return result, nil
	}
}

func (c *uploadClient) newRequest(ctx context.Context, url, filename, mime string, content []byte) (*http.Request, error) {
	body, contentType, err := multipartBody(filename, mime, content)
	if err != nil {
		return nil, errors.Wrap(err, "build multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.cfg.Tenant != "" {
		req.Header.Set(tenantHeader, c.cfg.Tenant)
	}
	c.log.Debug("multipart request headers",
		zap.String("contentType", contentType), zap.Bool("tenant", c.cfg.Tenant != ""))
	return req, nil
}

func (c *uploadClient) send(req *http.Request) (int, []byte, error) {
	resp, err := c.doer.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.Wrap(err, "read response body")
	}
	return resp.StatusCode, body, nil
}

func (c *uploadClient) classify(status int, body []byte) (map[string]any, error) {
	switch {
	case status == http.StatusNotAcceptable:
		c.log.Error("Lexware 406 Not Acceptable", zap.String("response", string(body)))
		return nil, &lexerrors.HTTPError{Status: status, Body: truncateBody(body)}
	case status == http.StatusConflict:
		c.log.Warn("Lexware 409 Conflict (possible duplicate upload)", zap.String("response", string(body)))
		var result map[string]any
		if err := json.Unmarshal(body, &result); err == nil && result != nil {
			return result, nil
		}
		return nil, &lexerrors.HTTPError{Status: status, Body: truncateBody(body)}
	case status < 200 || status >= 300:
		c.log.Error("Lexware upload failed (non-2xx)", zap.Int("status", status), zap.String("response", string(body)))
		return nil, &lexerrors.HTTPError{Status: status, Body: truncateBody(body)}
	}

	result := map[string]any{}
	if len(bytes.TrimSpace(body)) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &lexerrors.GenericError{Err: errors.Wrapf(err, "decode response (HTTP %d)", status)}
	}
	return result, nil
}

func (c *uploadClient) backoff(ctx context.Context, attempt int) error {
	delay := time.Duration(c.cfg.BaseSleepMs) * time.Millisecond * time.Duration(1<<(attempt-1))
	c.log.Debug("retrying Lexware upload", zap.Int("attempt", attempt), zap.Duration("delay", delay))
	return c.sleep(ctx, delay)
}

// isTransientStatus reports statuses worth another attempt: 408, 429 and 5xx.
func isTransientStatus(status int) bool {
	return status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func multipartBody(filename, mime string, content []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("type", voucherType); err != nil {
		return nil, "", err
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	header.Set("Content-Type", mime)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func truncateBody(body []byte) string {
	return utils.Truncate(string(body), maxErrorBodyLen)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
