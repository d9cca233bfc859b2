package voucher

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"github.com/customeros/lexsync/dto"
	"github.com/customeros/lexsync/interfaces"
	"github.com/customeros/lexsync/internal/errors"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/metrics"
	"github.com/customeros/lexsync/internal/models"
	"github.com/customeros/lexsync/internal/tracing"
	"github.com/customeros/lexsync/internal/utils"
)

const NotificationSubject = "Upload to Lexware API failed"

type voucherUploader struct {
	client    interfaces.UploadClient
	inspector interfaces.FileInspector
	notifier  interfaces.ErrorNotifier
	publisher interfaces.EventPublisher
	log       logger.Logger
	metrics   *metrics.Metrics
}

func NewVoucherUploader(
	client interfaces.UploadClient,
	inspector interfaces.FileInspector,
	notifier interfaces.ErrorNotifier,
	publisher interfaces.EventPublisher,
	log logger.Logger,
	m *metrics.Metrics,
) interfaces.VoucherUploader {
	return &voucherUploader{
		client:    client,
		inspector: inspector,
		notifier:  notifier,
		publisher: publisher,
		log:       log,
		metrics:   m,
	}
}

// Upload records the outcome on pdf and never returns an error.
func (u *voucherUploader) Upload(ctx context.Context, pdf *models.ImportedPdf) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "VoucherUploader.Upload")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, pdf.ID)

	started := time.Now()
	path := pdf.StoredPath

	check := u.inspector.Validate(path)
	u.log.Info("upload preflight",
		zap.String("path", path),
		zap.Bool("ok", check.OK),
		zap.String("mime", check.Mime),
		zap.Int64("size", check.Size))
	if !check.OK {
		pdf.MarkFailed("preflight: " + check.Reason)
		span.LogKV("preflight", check.Reason)
		u.metrics.Upload(metrics.UploadPreflightFailed, started)
		return
	}

	result, err := u.client.UploadVoucherFile(ctx, path)
	if err != nil {
		tracing.TraceErr(span, err)
		pdf.MarkFailed(err.Error())
		if errors.IsPreflightFailed(err) {
			u.metrics.Upload(metrics.UploadPreflightFailed, started)
			return
		}
		u.metrics.Upload(metrics.UploadFailed, started)
		u.log.Error("Lexware upload failed",
			zap.String("file", path),
			zap.Error(err),
			zap.String("class", fmt.Sprintf("%T", err)))
		u.notifier.Notify(ctx, NotificationSubject, fmt.Sprintf("File: %s\nError: %s", path, err.Error()))
		return
	}

	pdf.MarkSynced(stringField(result, "id"), stringField(result, "voucherId"))
	u.metrics.Upload(metrics.UploadSucceeded, started)
	u.log.Info("voucher uploaded", zap.String("pdfId", pdf.ID), zap.Any("response", result))

	u.publish(ctx, pdf)
}

func (u *voucherUploader) publish(ctx context.Context, pdf *models.ImportedPdf) {
	if u.publisher == nil {
		return
	}
	err := u.publisher.PublishVoucherUploaded(ctx, dto.VoucherUploaded{
		PdfID:            pdf.ID,
		MailID:           pdf.MailID,
		FileHash:         pdf.FileHash,
		OriginalFilename: pdf.OriginalFilename,
		LexwareFileID:    pdf.LexwareFileID,
		LexwareVoucherID: pdf.LexwareVoucherID,
	})
	if err != nil {
		u.log.Warn("failed to publish voucher event", zap.String("pdfId", pdf.ID), zap.Error(err))
	}
}

func stringField(result map[string]any, key string) *string {
	value, ok := result[key]
	if !ok || value == nil {
		return nil
	}
	s, ok := value.(string)
	if !ok {
		s = fmt.Sprint(value)
	}
	return utils.StringPtrOrNil(s)
}
