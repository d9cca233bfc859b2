package inspector

import (
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/customeros/lexsync/dto"
	"github.com/customeros/lexsync/interfaces"
	"github.com/customeros/lexsync/internal/utils"
	"github.com/customeros/lexsync/services/detection"
)

const (
	DefaultMaxBytes int64 = 20 * 1024 * 1024
	pdfMime               = "application/pdf"
)

type fileInspector struct {
	maxBytes     int64
	allowedMimes []string
}

func NewFileInspector(maxBytes int64, allowedMimes []string) interfaces.FileInspector {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(allowedMimes) == 0 {
		allowedMimes = []string{pdfMime}
	}
	normalized := make([]string, 0, len(allowedMimes))
	for _, m := range allowedMimes {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			normalized = append(normalized, m)
		}
	}
	return &fileInspector{maxBytes: maxBytes, allowedMimes: normalized}
}

func (f *fileInspector) Validate(path string) dto.InspectionResult {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return dto.InspectionResult{Reason: dto.ReasonFileNotFound, Size: 0}
	}

	size := info.Size()
	if size == 0 {
		return dto.InspectionResult{Reason: dto.ReasonEmptyFile, Size: 0}
	}
	if size > f.maxBytes {
		return dto.InspectionResult{Reason: dto.ReasonFileTooLarge, Size: size}
	}

	file, err := os.Open(path)
	if err != nil {
		return dto.InspectionResult{Reason: dto.ReasonFileNotFound, Size: 0}
	}
	defer file.Close()

	detected, err := mimetype.DetectReader(file)
	if err != nil {
		return dto.InspectionResult{Reason: dto.ReasonFileNotFound, Size: size}
	}
	mime := strings.ToLower(strings.SplitN(detected.String(), ";", 2)[0])

	if !utils.IsStringInSlice(mime, f.allowedMimes) {
		return dto.InspectionResult{Reason: dto.ReasonUnsupportedMimePrefix + mime, Mime: mime, Size: size}
	}

	if mime == pdfMime {
		head := make([]byte, 5)
		if _, err := file.ReadAt(head, 0); err != nil && err != io.EOF {
			return dto.InspectionResult{Reason: dto.ReasonUnsupportedMimePrefix + mime, Mime: mime, Size: size}
		}
		if !detection.HasPdfMagic(head) {
			return dto.InspectionResult{Reason: dto.ReasonUnsupportedMimePrefix + mime, Mime: mime, Size: size}
		}
	}

	return dto.InspectionResult{OK: true, Mime: mime, Size: size}
}
