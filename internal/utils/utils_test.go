package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetFileExtensionFromContentType(t *testing.T) {
	assert.Equal(t, ".pdf", GetFileExtensionFromContentType("application/pdf"))
	assert.Equal(t, ".png", GetFileExtensionFromContentType("image/png"))
	assert.Equal(t, ".jpg", GetFileExtensionFromContentType("image/jpeg"))
	assert.Equal(t, ".xml", GetFileExtensionFromContentType("text/xml"))
	assert.Equal(t, ".xml", GetFileExtensionFromContentType("application/xml"))
	assert.Equal(t, "", GetFileExtensionFromContentType("application/zip"))
}

func TestHasVoucherExtension(t *testing.T) {
	assert.True(t, HasVoucherExtension("invoice.PDF"))
	assert.True(t, HasVoucherExtension("scan.jpeg"))
	assert.False(t, HasVoucherExtension("abc123-invoice"))
	assert.False(t, HasVoucherExtension("archive.pdf.zip"))
}

func TestGenerateNanoIDWithPrefix(t *testing.T) {
	id := GenerateNanoIDWithPrefix("pdf", 12)
	assert.True(t, strings.HasPrefix(id, "pdf_"))
	assert.Len(t, id, len("pdf_")+12)
	assert.NotEqual(t, id, GenerateNanoIDWithPrefix("pdf", 12))
}

func TestSha256Hex(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sha256Hex(nil))
	assert.Len(t, Sha256Hex([]byte("%PDF-1.4")), 64)
}

func TestNormalizeMessageID(t *testing.T) {
	assert.Equal(t, "abc@example.com", NormalizeMessageID(" <abc@example.com> "))
}

func TestTruncateAndContainsFold(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "ab", Truncate("ab", 3))
	assert.True(t, ContainsFold("Rechnung 2024", "RECHNUNG"))
	assert.False(t, ContainsFold("Invoice", "receipt"))
}
