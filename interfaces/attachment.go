package interfaces

import (
	"context"
	"iter"

	"github.com/customeros/lexsync/dto"
)

type AttachmentExtractor interface {
	Extract(ctx context.Context, ref *dto.MessageReference) iter.Seq[dto.Attachment]
}

// AttachmentStrategy is one backend of the extraction chain. It never fails: internal errors
// simply produce no attachments.
type AttachmentStrategy interface {
	Name() string
	Attachments(ctx context.Context, ref *dto.MessageReference) iter.Seq[dto.Attachment]
}

type PdfDetector interface {
	IsPdf(filename, mime *string, content []byte) bool
}
