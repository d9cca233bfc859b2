package dto

type Attachment struct {
	Filename *string
	MimeType *string
	Content  []byte
}
