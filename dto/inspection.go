package dto

const (
	ReasonFileNotFound          = "file_not_found"
	ReasonEmptyFile             = "empty_file"
	ReasonFileTooLarge          = "file_too_large"
	ReasonUnsupportedMimePrefix = "unsupported_mime_"
)

type InspectionResult struct {
	OK     bool
	Reason string
	Mime   string
	Size   int64
}
