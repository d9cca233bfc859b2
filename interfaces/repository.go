package interfaces

import (
	"context"

	"github.com/customeros/lexsync/internal/models"
)

type ImportedMailRepository interface {
	GetByMessageID(ctx context.Context, messageID string) (*models.ImportedMail, error)
}

type ImportedPdfRepository interface {
	GetByFileHash(ctx context.Context, hash string) (*models.ImportedPdf, error)
	ListUnsynced(ctx context.Context, limit int) ([]*models.ImportedPdf, error)
}

// UnitOfWork commits a change set atomically.
type UnitOfWork interface {
	Commit(ctx context.Context, changes *models.ChangeSet) error
}
