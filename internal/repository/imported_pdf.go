package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/customeros/lexsync/interfaces"
	"github.com/customeros/lexsync/internal/models"
	"github.com/customeros/lexsync/internal/tracing"
)

type importedPdfRepository struct {
	db *gorm.DB
}

func NewImportedPdfRepository(db *gorm.DB) interfaces.ImportedPdfRepository {
	return &importedPdfRepository{db: db}
}

// GetByFileHash returns the committed record for a content hash, or nil.
func (r *importedPdfRepository) GetByFileHash(ctx context.Context, hash string) (*models.ImportedPdf, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "importedPdfRepository.GetByFileHash")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("file_hash", hash)

	var pdf models.ImportedPdf
	if err := r.db.WithContext(ctx).Where("file_hash = ?", hash).First(&pdf).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &pdf, nil
}

// ListUnsynced returns unsynced records, oldest first.
func (r *importedPdfRepository) ListUnsynced(ctx context.Context, limit int) ([]*models.ImportedPdf, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "importedPdfRepository.ListUnsynced")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("limit", limit)

	var pdfs []*models.ImportedPdf
	err := r.db.WithContext(ctx).
		Where("synced = ?", false).
		Order("imported_at ASC, id ASC").
		Limit(limit).
		Find(&pdfs).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return pdfs, nil
}
