package importer

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/customeros/lexsync/dto"
	"github.com/customeros/lexsync/interfaces"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/metrics"
	"github.com/customeros/lexsync/internal/models"
	"github.com/customeros/lexsync/internal/tracing"
)

const DefaultResyncLimit = 100

type Dependencies struct {
	Fetcher   interfaces.MessageFetcher
	Extractor interfaces.AttachmentExtractor
	Detector  interfaces.PdfDetector
	Persister interfaces.MailPersister
	Uploader  interfaces.VoucherUploader
	Pdfs      interfaces.ImportedPdfRepository
}

type importer struct {
	deps    Dependencies
	log     logger.Logger
	metrics *metrics.Metrics
}

func NewImporter(deps Dependencies, log logger.Logger, m *metrics.Metrics) interfaces.Importer {
	return &importer{deps: deps, log: log, metrics: m}
}

// RunOnce processes every message the fetcher yields, one at a time. Upload failures are
// recorded on the pdf records; fetch and persistence failures abort the cycle.
func (i *importer) RunOnce(ctx context.Context, filter dto.FetchFilter) (summary *dto.ImportSummary, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Importer.RunOnce")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.LogObjectAsJson(span, "filter", filter)

	started := time.Now()
	defer func() {
		i.metrics.Cycle(err, started)
	}()

	summary = &dto.ImportSummary{}
	for ref, fetchErr := range i.deps.Fetcher.Fetch(ctx, filter) {
		if fetchErr != nil {
			tracing.TraceErr(span, fetchErr)
			return summary, errors.Wrap(fetchErr, "fetch messages")
		}
		summary.Messages++
		i.metrics.MessageFetched()

		if err := i.processMessage(ctx, ref, summary); err != nil {
			tracing.TraceErr(span, err)
			return summary, err
		}
	}

	tracing.LogObjectAsJson(span, "summary", summary)
	i.log.Info("import cycle finished", zap.Any("summary", summary), zap.Duration("took", time.Since(started)))
	return summary, nil
}

func (i *importer) processMessage(ctx context.Context, ref *dto.MessageReference, summary *dto.ImportSummary) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Importer.processMessage")
	defer span.Finish()
	span.SetTag("imap.uid", ref.UID)
	tracing.TagMailbox(span, ref.Mailbox)

	log := i.log.With(zap.Uint32("uid", ref.UID), zap.String("subject", ref.Subject))
	log.Info("processing message", zap.String("from", ref.FromAddress))

	mail, err := i.deps.Persister.PersistMail(ctx, ref)
	if err != nil {
		return errors.Wrapf(err, "persist mail uid %d", ref.UID)
	}

	var collected []*models.ImportedPdf
	seen := make(map[*models.ImportedPdf]bool)
	for attachment := range i.deps.Extractor.Extract(ctx, ref) {
		summary.Attachments++
		if !i.deps.Detector.IsPdf(attachment.Filename, attachment.MimeType, attachment.Content) {
			log.Debug("skipping non pdf attachment", zap.Stringp("filename", attachment.Filename))
			continue
		}

		pdf, err := i.deps.Persister.PersistPdf(ctx, mail, attachment)
		if err != nil {
			return errors.Wrapf(err, "persist pdf of uid %d", ref.UID)
		}
		if seen[pdf] {
			summary.Duplicates++
			continue
		}
		seen[pdf] = true
		if i.deps.Persister.IsStaged(pdf) {
			summary.PdfsPersisted++
		} else {
			summary.Duplicates++
		}
		collected = append(collected, pdf)
	}

	if err := i.deps.Persister.Flush(ctx); err != nil {
		return errors.Wrap(err, "flush after persisting")
	}

	for _, pdf := range collected {
		if pdf.Synced {
			summary.UploadsSkipped++
			log.Debug("pdf already synced", zap.String("pdfId", pdf.ID))
			continue
		}
		i.deps.Persister.Track(pdf)
		i.upload(ctx, pdf, summary)
	}

	if err := i.deps.Persister.Flush(ctx); err != nil {
		return errors.Wrap(err, "flush after uploading")
	}
	return nil
}

// Resync uploads committed pdfs that are not synced yet, oldest first.
func (i *importer) Resync(ctx context.Context, limit int) (summary *dto.ImportSummary, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Importer.Resync")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if limit <= 0 {
		limit = DefaultResyncLimit
	}
	span.SetTag("limit", limit)

	started := time.Now()
	defer func() {
		i.metrics.Cycle(err, started)
	}()

	summary = &dto.ImportSummary{}
	pdfs, err := i.deps.Pdfs.ListUnsynced(ctx, limit)
	if err != nil {
		tracing.TraceErr(span, err)
		return summary, errors.Wrap(err, "list unsynced pdfs")
	}

	for _, pdf := range pdfs {
		if err := ctx.Err(); err != nil {
			break
		}
		i.deps.Persister.Track(pdf)
		i.upload(ctx, pdf, summary)
	}

	if err := i.deps.Persister.Flush(ctx); err != nil {
		tracing.TraceErr(span, err)
		return summary, errors.Wrap(err, "flush resync results")
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	i.log.Info("resync finished", zap.Any("summary", summary))
	return summary, nil
}

func (i *importer) upload(ctx context.Context, pdf *models.ImportedPdf, summary *dto.ImportSummary) {
	summary.UploadsAttempted++
	i.deps.Uploader.Upload(ctx, pdf)
	if pdf.Synced {
		summary.UploadsSucceeded++
		return
	}
	summary.UploadsFailed++
	i.log.Warn("pdf not synced", zap.String("pdfId", pdf.ID), zap.Stringp("lastError", pdf.LastError))
}
