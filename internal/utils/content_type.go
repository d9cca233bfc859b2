package utils

import "strings"

// GetFileExtensionFromContentType maps the voucher mime types the accounting API accepts to a
// file extension including the dot. Unknown types map to "".
func GetFileExtensionFromContentType(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "application/pdf":
		return ".pdf"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "application/xml", "text/xml":
		return ".xml"
	default:
		return ""
	}
}

// HasVoucherExtension reports whether filename already ends in an accepted voucher extension.
func HasVoucherExtension(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range []string{".pdf", ".png", ".jpg", ".jpeg", ".xml"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
