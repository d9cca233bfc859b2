package lexware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/lexsync/config"
	lexerrors "github.com/customeros/lexsync/internal/errors"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/services/inspector"
)

var pdfContent = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func newTestClient(baseURI string, maxAttempts int, sleeps *recordedSleeps, opts ...ClientOption) *uploadClient {
	cfg := &config.LexwareConfig{
		BaseURI:        baseURI,
		APIKey:         "secret-key",
		Tenant:         "tenant-1",
		UploadEndpoint: "/v1/files",
		MaxAttempts:    maxAttempts,
		BaseSleepMs:    100,
		HTTPTimeout:    5 * time.Second,
	}
	opts = append([]ClientOption{WithSleeper(sleeps.sleep)}, opts...)
	return NewUploadClient(cfg, inspector.NewFileInspector(0, nil), logger.NewNopLogger(), opts...).(*uploadClient)
}

func TestUploadVoucherFile_Success(t *testing.T) {
	var got struct {
		path, auth, accept, tenant, kind, filename, partType string
		content                                              []byte
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		got.accept = r.Header.Get("Accept")
		got.tenant = r.Header.Get("X-Lexware-Tenant")
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		got.kind = r.FormValue("type")
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		got.filename = header.Filename
		got.partType = header.Header.Get("Content-Type")
		got.content, _ = io.ReadAll(file)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"id":"file-123","voucherId":"voucher-9"}`))
	}))
	defer server.Close()

	sleeps := &recordedSleeps{}
	client := newTestClient(server.URL+"/", 3, sleeps)
	path := writeFile(t, "scan", pdfContent)

	result, err := client.UploadVoucherFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "file-123", result["id"])
	assert.Equal(t, "voucher-9", result["voucherId"])
	assert.Equal(t, "/v1/files", got.path)
	assert.Equal(t, "Bearer secret-key", got.auth)
	assert.Equal(t, "application/json", got.accept)
	assert.Equal(t, "tenant-1", got.tenant)
	assert.Equal(t, "voucher", got.kind)
	assert.Equal(t, "scan.pdf", got.filename)
	assert.Equal(t, "application/pdf", got.partType)
	assert.Equal(t, pdfContent, got.content)
	assert.Empty(t, sleeps.delays)
}

func TestUploadVoucherFile_KeepsVoucherExtension(t *testing.T) {
	var filename string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		filename = header.Filename
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1, &recordedSleeps{})
	result, err := client.UploadVoucherFile(context.Background(), writeFile(t, "Invoice.PDF", pdfContent))
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.Equal(t, "Invoice.PDF", filename)
}

func TestUploadVoucherFile_NotAcceptableIsNotRetried(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = w.Write([]byte(`{"message":"e-invoice not enabled"}`))
	}))
	defer server.Close()

	sleeps := &recordedSleeps{}
	client := newTestClient(server.URL, 3, sleeps)
	_, err := client.UploadVoucherFile(context.Background(), writeFile(t, "a.pdf", pdfContent))

	var httpErr *lexerrors.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotAcceptable, httpErr.Status)
	assert.Contains(t, err.Error(), "406 Not Acceptable")
	assert.Equal(t, int32(1), requests.Load())
	assert.Empty(t, sleeps.delays)
}

func TestUploadVoucherFile_ServerErrorExhaustsAttempts(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("oops"))
	}))
	defer server.Close()

	sleeps := &recordedSleeps{}
	client := newTestClient(server.URL, 2, sleeps)
	_, err := client.UploadVoucherFile(context.Background(), writeFile(t, "a.pdf", pdfContent))

	var httpErr *lexerrors.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.Status)
	assert.Equal(t, "oops", httpErr.Body)
	assert.Equal(t, int32(2), requests.Load())
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, sleeps.delays)
}

func TestUploadVoucherFile_BackoffDoubles(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch requests.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte(`{"id":"late"}`))
		}
	}))
	defer server.Close()

	sleeps := &recordedSleeps{}
	client := newTestClient(server.URL, 3, sleeps)
	result, err := client.UploadVoucherFile(context.Background(), writeFile(t, "a.pdf", pdfContent))

	require.NoError(t, err)
	assert.Equal(t, "late", result["id"])
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sleeps.delays)
}

func TestUploadVoucherFile_ConflictReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"id":"dup"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3, &recordedSleeps{})
	result, err := client.UploadVoucherFile(context.Background(), writeFile(t, "a.pdf", pdfContent))

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "dup"}, result)
}

func TestUploadVoucherFile_ConflictWithoutJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("conflict"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3, &recordedSleeps{})
	_, err := client.UploadVoucherFile(context.Background(), writeFile(t, "a.pdf", pdfContent))

	var httpErr *lexerrors.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusConflict, httpErr.Status)
}

func TestUploadVoucherFile_ClientErrorNotRetried(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3, &recordedSleeps{})
	_, err := client.UploadVoucherFile(context.Background(), writeFile(t, "a.pdf", pdfContent))

	require.Error(t, err)
	assert.True(t, errors.Is(err, lexerrors.ErrUploadFailed))
	assert.Equal(t, "Lexware upload failed: HTTP 400: {\"message\":\"bad\"}", err.Error())
	assert.Equal(t, int32(1), requests.Load())
}

func TestUploadVoucherFile_PreflightFailure(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3, &recordedSleeps{})
	_, err := client.UploadVoucherFile(context.Background(), writeFile(t, "empty.pdf", nil))

	var preflight *lexerrors.PreflightFailedError
	require.ErrorAs(t, err, &preflight)
	assert.Equal(t, "empty_file", preflight.Reason)
	assert.True(t, lexerrors.IsPreflightFailed(err))
	assert.Zero(t, requests.Load())
}

type failingDoer struct {
	calls int
}

func (d *failingDoer) Do(*http.Request) (*http.Response, error) {
	d.calls++
	return nil, errors.New("connection refused")
}

func TestUploadVoucherFile_TransportFailure(t *testing.T) {
	doer := &failingDoer{}
	sleeps := &recordedSleeps{}
	client := newTestClient("http://lexware.invalid", 3, sleeps, WithHTTPDoer(doer))

	_, err := client.UploadVoucherFile(context.Background(), writeFile(t, "a.pdf", pdfContent))

	var transport *lexerrors.TransportError
	require.ErrorAs(t, err, &transport)
	assert.Equal(t, 3, transport.Attempts)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 3, doer.calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sleeps.delays)
}

// flakyDoer fails with a transport error until calls exceeds failures, then returns 200.
type flakyDoer struct {
	failures int
	calls    int
}

func (d *flakyDoer) Do(*http.Request) (*http.Response, error) {
	d.calls++
	if d.calls <= d.failures {
		return nil, errors.New("connection reset by peer")
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(`{"id":"file-3","voucherId":"voucher-3"}`)),
	}, nil
}

func TestUploadVoucherFile_RecoversFromTransportFailures(t *testing.T) {
	doer := &flakyDoer{failures: 2}
	sleeps := &recordedSleeps{}
	client := newTestClient("http://lexware.invalid", 3, sleeps, WithHTTPDoer(doer))

	result, err := client.UploadVoucherFile(context.Background(), writeFile(t, "a.pdf", pdfContent))

	require.NoError(t, err)
	assert.Equal(t, "file-3", result["id"])
	assert.Equal(t, "voucher-3", result["voucherId"])
	assert.Equal(t, 3, doer.calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sleeps.delays)
}

func TestUploadVoucherFile_CancelledDuringBackoff(t *testing.T) {
	doer := &failingDoer{}
	cancelled := func(context.Context, time.Duration) error { return context.Canceled }
	client := newTestClient("http://lexware.invalid", 3, &recordedSleeps{}, WithHTTPDoer(doer), WithSleeper(cancelled))

	_, err := client.UploadVoucherFile(context.Background(), writeFile(t, "a.pdf", pdfContent))

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, doer.calls)
}

func TestIsTransientStatus(t *testing.T) {
	for _, status := range []int{408, 429, 500, 502, 503, 599} {
		assert.True(t, isTransientStatus(status), status)
	}
	for _, status := range []int{200, 400, 404, 406, 409, 600} {
		assert.False(t, isTransientStatus(status), status)
	}
}
