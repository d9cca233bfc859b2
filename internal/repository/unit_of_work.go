package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/customeros/lexsync/interfaces"
	"github.com/customeros/lexsync/internal/models"
	"github.com/customeros/lexsync/internal/tracing"
	"github.com/customeros/lexsync/internal/utils"
)

type unitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) interfaces.UnitOfWork {
	return &unitOfWork{db: db}
}

// Commit inserts new mails before new pdfs, then saves dirty pdfs, in one transaction.
func (u *unitOfWork) Commit(ctx context.Context, changes *models.ChangeSet) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "unitOfWork.Commit")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if changes.IsEmpty() {
		return nil
	}
	span.LogKV("mails.new", len(changes.NewMails), "pdfs.new", len(changes.NewPdfs), "pdfs.dirty", len(changes.Dirty))

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, mail := range changes.NewMails {
			if err := tx.Create(mail).Error; err != nil {
				return errors.Wrapf(err, "insert mail %s", mail.ID)
			}
		}
		for _, pdf := range changes.NewPdfs {
			if err := tx.Create(pdf).Error; err != nil {
				return errors.Wrapf(err, "insert pdf %s", pdf.ID)
			}
		}
		for _, pdf := range changes.Dirty {
			pdf.UpdatedAt = utils.Now()
			err := tx.Model(pdf).Select("synced", "lexware_file_id", "lexware_voucher_id", "last_error", "updated_at").Updates(pdf).Error
			if err != nil {
				return errors.Wrapf(err, "update pdf %s", pdf.ID)
			}
		}
		return nil
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}
