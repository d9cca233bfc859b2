package interfaces

import (
	"context"

	"github.com/customeros/lexsync/internal/models"
)

type VoucherUploader interface {
	Upload(ctx context.Context, pdf *models.ImportedPdf)
}
