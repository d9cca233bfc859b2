package inspector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/lexsync/dto"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func TestValidate_FileNotFound(t *testing.T) {
	res := NewFileInspector(0, nil).Validate(filepath.Join(t.TempDir(), "missing.pdf"))

	assert.False(t, res.OK)
	assert.Equal(t, dto.ReasonFileNotFound, res.Reason)
	assert.Equal(t, int64(0), res.Size)
}

func TestValidate_EmptyFile(t *testing.T) {
	res := NewFileInspector(0, nil).Validate(writeFile(t, "empty.pdf", nil))

	assert.False(t, res.OK)
	assert.Equal(t, dto.ReasonEmptyFile, res.Reason)
}

func TestValidate_TooLarge(t *testing.T) {
	content := append([]byte("%PDF-1.4\n"), make([]byte, 100)...)
	res := NewFileInspector(int64(len(content)-1), nil).Validate(writeFile(t, "big.pdf", content))

	assert.False(t, res.OK)
	assert.Equal(t, dto.ReasonFileTooLarge, res.Reason)
	assert.Equal(t, int64(len(content)), res.Size)
}

func TestValidate_ExactlyMaxBytesIsAccepted(t *testing.T) {
	content := []byte("%PDF-1.4\n%%EOF\n")
	res := NewFileInspector(int64(len(content)), nil).Validate(writeFile(t, "ok.pdf", content))

	assert.True(t, res.OK)
}

func TestValidate_UnsupportedMime(t *testing.T) {
	res := NewFileInspector(0, nil).Validate(writeFile(t, "image.pdf", pngHeader))

	assert.False(t, res.OK)
	assert.Equal(t, "unsupported_mime_image/png", res.Reason)
	assert.Equal(t, "image/png", res.Mime)
}

func TestValidate_PdfMimeWithoutStrictMagic(t *testing.T) {
	res := NewFileInspector(0, nil).Validate(writeFile(t, "nl.pdf", []byte("\n%PDF-1.4\n%%EOF\n")))

	assert.False(t, res.OK)
	assert.Equal(t, "unsupported_mime_application/pdf", res.Reason)
}

func TestValidate_ValidPdf(t *testing.T) {
	content := []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n%%EOF\n")
	res := NewFileInspector(0, nil).Validate(writeFile(t, "invoice.pdf", content))

	assert.True(t, res.OK)
	assert.Empty(t, res.Reason)
	assert.Equal(t, "application/pdf", res.Mime)
	assert.Equal(t, int64(len(content)), res.Size)
}

func TestValidate_CustomAllowList(t *testing.T) {
	res := NewFileInspector(0, []string{"application/pdf", " IMAGE/PNG "}).Validate(writeFile(t, "image.png", pngHeader))

	assert.True(t, res.OK)
	assert.Equal(t, "image/png", res.Mime)
}
