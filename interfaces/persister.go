package interfaces

import (
	"context"

	"github.com/customeros/lexsync/dto"
	"github.com/customeros/lexsync/internal/models"
)

type MailPersister interface {
	PersistMail(ctx context.Context, ref *dto.MessageReference) (*models.ImportedMail, error)
	// PersistPdf returns the committed record when the content hash is already known.
	PersistPdf(ctx context.Context, mail *models.ImportedMail, attachment dto.Attachment) (*models.ImportedPdf, error)
	// IsStaged reports whether pdf is a new record waiting for the next Flush.
	IsStaged(pdf *models.ImportedPdf) bool
	// Track registers an already committed record so the next Flush saves its changes.
	Track(pdf *models.ImportedPdf)
	Flush(ctx context.Context) error
}
