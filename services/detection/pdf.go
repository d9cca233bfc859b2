package detection

import (
	"bytes"
	"strings"

	"github.com/customeros/lexsync/interfaces"
)

var pdfMagic = []byte("%PDF-")

type pdfDetector struct{}

func NewPdfDetector() interfaces.PdfDetector {
	return &pdfDetector{}
}

// IsPdf checks the filename suffix first, then the declared mime, then the content magic.
func (d *pdfDetector) IsPdf(filename, mime *string, content []byte) bool {
	if filename != nil && strings.HasSuffix(strings.ToLower(*filename), ".pdf") {
		return true
	}
	if mime != nil && strings.Contains(strings.ToLower(*mime), "pdf") {
		return true
	}
	return HasPdfMagic(content)
}

func HasPdfMagic(content []byte) bool {
	return bytes.HasPrefix(content, pdfMagic)
}
