package interfaces

import (
	"context"

	"github.com/customeros/lexsync/dto"
)

type Importer interface {
	RunOnce(ctx context.Context, filter dto.FetchFilter) (*dto.ImportSummary, error)
	Resync(ctx context.Context, limit int) (*dto.ImportSummary, error)
}
