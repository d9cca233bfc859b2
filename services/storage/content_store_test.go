package storage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	lexerrors "github.com/customeros/lexsync/internal/errors"
	"github.com/customeros/lexsync/internal/logger"
)

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}

var fixedClock = func() time.Time { return time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC) }

func TestSafeName(t *testing.T) {
	assert.Equal(t, "Rechnung_2024_03.pdf", SafeName("Rechnung 2024_03.pdf"))
	assert.Equal(t, "x.pdf", SafeName("../../etc/x.pdf"))
	assert.Equal(t, "x.pdf", SafeName(`C:\Users\me\x.pdf`))
	assert.Equal(t, "Gr__e.pdf", SafeName("Gr\u00fc\u00dfe.pdf"))
	assert.Equal(t, defaultStoredName, SafeName(""))
	assert.Equal(t, defaultStoredName, SafeName("   "))
	assert.Len(t, SafeName(strings.Repeat("a", 300)+".pdf"), maxSafeNameLength)
}

func TestContentStore_Store(t *testing.T) {
	root := t.TempDir()
	store, err := NewContentStore(root, logger.NewNopLogger(), WithClock(fixedClock))
	require.NoError(t, err)

	path, err := store.Store(context.Background(), []byte("%PDF-1.4 body"), "Invoice March.pdf")
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, filepath.Join(root, "2024", "03"), filepath.Dir(path))
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{12}-Invoice_March\.pdf$`), filepath.Base(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(content))
}

func TestContentStore_SameNameGetsDistinctPaths(t *testing.T) {
	store, err := NewContentStore(t.TempDir(), logger.NewNopLogger())
	require.NoError(t, err)

	first, err := store.Store(context.Background(), []byte("a"), "same.pdf")
	require.NoError(t, err)
	second, err := store.Store(context.Background(), []byte("b"), "same.pdf")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestContentStore_RootIsAFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := NewContentStore(file, logger.NewNopLogger())
	assert.ErrorIs(t, err, lexerrors.ErrStorageNotWritable)
}

func TestContentStore_MirrorUpload(t *testing.T) {
	mirror := new(mockStorage)
	mirror.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "2024/03/") && strings.HasSuffix(key, "-scan.pdf")
	}), []byte("%PDF-1.7\n"), "application/pdf").Return(nil).Once()

	store, err := NewContentStore(t.TempDir(), logger.NewNopLogger(), WithClock(fixedClock), WithMirror(mirror))
	require.NoError(t, err)

	_, err = store.Store(context.Background(), []byte("%PDF-1.7\n"), "scan.pdf")
	require.NoError(t, err)
	mirror.AssertExpectations(t)
}

func TestContentStore_MirrorFailureDoesNotFailStore(t *testing.T) {
	mirror := new(mockStorage)
	mirror.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	store, err := NewContentStore(t.TempDir(), logger.NewNopLogger(), WithMirror(mirror))
	require.NoError(t, err)

	path, err := store.Store(context.Background(), []byte("%PDF-1.7\n"), "scan.pdf")
	require.NoError(t, err)
	assert.FileExists(t, path)
}
