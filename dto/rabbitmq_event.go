package dto

type Event struct {
	Event    EventDetails  `json:"event"`
	Metadata EventMetadata `json:"metadata"`
}

type EventDetails struct {
	Id         string      `json:"id"`
	EntityId   string      `json:"entityId"`
	EntityType string      `json:"entityType"`
	EventType  string      `json:"eventType"`
	Data       interface{} `json:"data"`
}

type EventMetadata struct {
	UberTraceId string `json:"uber-trace-id"`
	AppSource   string `json:"appSource"`
	Timestamp   string `json:"timestamp"`
}

type VoucherUploaded struct {
	PdfID            string  `json:"pdfId"`
	MailID           string  `json:"mailId"`
	FileHash         string  `json:"fileHash"`
	OriginalFilename string  `json:"originalFilename"`
	LexwareFileID    *string `json:"lexwareFileId,omitempty"`
	LexwareVoucherID *string `json:"lexwareVoucherId,omitempty"`
}
