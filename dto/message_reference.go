package dto

import (
	"context"
	"time"
)

// MessageReference is one fetched message. Handle is only used by attachment strategies.
type MessageReference struct {
	UID         uint32
	Subject     string
	FromAddress string
	MessageID   *string
	ReceivedAt  time.Time
	Mailbox     string
	Handle      MessageHandle
}

// MessageHandle is the live, backend specific side of a MessageReference.
type MessageHandle interface {
	// Native returns the configured library adapter, or nil when the backend has none.
	Native() AttachmentSource
	// Raw returns the RFC-822 source of the message.
	Raw(ctx context.Context) ([]byte, error)
}

// NativePart describes one attachment candidate as reported by an AttachmentSource.
type NativePart struct {
	Index    int
	Section  string
	Filename string
	MimeType string
	Encoding string
	Size     int64
}

// AttachmentSource is the capability surface every library adapter implements.
type AttachmentSource interface {
	ListAttachments(ctx context.Context) ([]NativePart, error)
	ForceLoadBody(ctx context.Context, part NativePart) error
	ReadContent(part NativePart) ([]byte, error)
}
