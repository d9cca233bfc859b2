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

type importedMailRepository struct {
	db *gorm.DB
}

func NewImportedMailRepository(db *gorm.DB) interfaces.ImportedMailRepository {
	return &importedMailRepository{db: db}
}

func (r *importedMailRepository) GetByMessageID(ctx context.Context, messageID string) (*models.ImportedMail, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "importedMailRepository.GetByMessageID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("message_id", messageID)

	var mail models.ImportedMail
	if err := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&mail).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &mail, nil
}
