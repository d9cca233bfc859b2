package dto

type ImportSummary struct {
	Messages         int `json:"messages"`
	Attachments      int `json:"attachments"`
	PdfsPersisted    int `json:"pdfsPersisted"`
	Duplicates       int `json:"duplicates"`
	UploadsSkipped   int `json:"uploadsSkipped"`
	UploadsAttempted int `json:"uploadsAttempted"`
	UploadsSucceeded int `json:"uploadsSucceeded"`
	UploadsFailed    int `json:"uploadsFailed"`
}
