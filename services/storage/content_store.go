package storage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/customeros/lexsync/interfaces"
	lexerrors "github.com/customeros/lexsync/internal/errors"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/tracing"
	"github.com/customeros/lexsync/internal/utils"
)

const (
	maxSafeNameLength = 120
	defaultStoredName = "attachment.pdf"
	prefixLength      = 12
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

type contentStore struct {
	root   string
	mirror interfaces.StorageService
	log    logger.Logger
	now    func() time.Time
}

type ContentStoreOption func(*contentStore)

// WithMirror uploads every stored file to object storage as well.
func WithMirror(mirror interfaces.StorageService) ContentStoreOption {
	return func(s *contentStore) {
		s.mirror = mirror
	}
}

func WithClock(now func() time.Time) ContentStoreOption {
	return func(s *contentStore) {
		s.now = now
	}
}

// NewContentStore fails when root can neither be created nor written to.
func NewContentStore(root string, log logger.Logger, opts ...ContentStoreOption) (interfaces.ContentStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(lexerrors.ErrStorageNotWritable, "resolve %s: %v", root, err)
	}
	s := &contentStore{root: abs, log: log, now: utils.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.ensureRoot(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *contentStore) Store(ctx context.Context, data []byte, originalName string) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ContentStore.Store")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if err := s.ensureRoot(); err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	now := s.now()
	partition := filepath.Join(now.Format("2006"), now.Format("01"))
	dir := filepath.Join(s.root, partition)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrapf(err, "create directory %s", dir)
	}

	name := randomPrefix() + "-" + SafeName(originalName)
	path := filepath.Join(dir, name)
	if err := writeExclusive(path, data); err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrapf(err, "write %s", path)
	}
	span.LogKV("path", path, "size", len(data))

	if s.mirror != nil {
		key := filepath.ToSlash(filepath.Join(partition, name))
		if err := s.mirror.Upload(ctx, key, data, mimetype.Detect(data).String()); err != nil {
			s.log.Warn("object storage mirror failed", zap.String("key", key), zap.Error(err))
		}
	}

	return path, nil
}

func (s *contentStore) ensureRoot() error {
	if err := os.MkdirAll(s.root, 0o750); err != nil {
		return errors.Wrapf(lexerrors.ErrStorageNotWritable, "%s: %v", s.root, err)
	}
	probe, err := os.CreateTemp(s.root, ".probe-*")
	if err != nil {
		return errors.Wrapf(lexerrors.ErrStorageNotWritable, "%s: %v", s.root, err)
	}
	probe.Close()
	_ = os.Remove(probe.Name())
	return nil
}

func writeExclusive(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err = lockFile(f); err != nil {
		return err
	}
	defer unlockFile(f)

	if _, err = f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// SafeName keeps the base name, replaces anything outside [A-Za-z0-9._-] and caps the length.
func SafeName(original string) string {
	base := strings.TrimSpace(original)
	if base != "" {
		base = filepath.Base(strings.ReplaceAll(base, "\\", "/"))
	}
	if base == "." || base == "/" {
		base = ""
	}
	safe := unsafeNameChars.ReplaceAllString(base, "_")
	if len(safe) > maxSafeNameLength {
		safe = safe[:maxSafeNameLength]
	}
	if safe == "" {
		return defaultStoredName
	}
	return safe
}

func randomPrefix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:prefixLength]
}
