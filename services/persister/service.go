package persister

import (
	"context"
	"sync"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/customeros/lexsync/dto"
	"github.com/customeros/lexsync/interfaces"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/metrics"
	"github.com/customeros/lexsync/internal/models"
	"github.com/customeros/lexsync/internal/tracing"
	"github.com/customeros/lexsync/internal/utils"
)

const (
	defaultFilename = "attachment.pdf"
	defaultMime     = "application/pdf"
	idSize          = 16
)

// syncState is the mutable part of an ImportedPdf, used to find records that changed.
type syncState struct {
	synced    bool
	fileID    string
	voucherID string
	lastError string
}

func stateOf(p *models.ImportedPdf) syncState {
	return syncState{
		synced:    p.Synced,
		fileID:    utils.GetOrDefault(p.LexwareFileID, ""),
		voucherID: utils.GetOrDefault(p.LexwareVoucherID, ""),
		lastError: utils.GetOrDefault(p.LastError, ""),
	}
}

type trackedPdf struct {
	pdf      *models.ImportedPdf
	snapshot syncState
}

type mailPersister struct {
	mails interfaces.ImportedMailRepository
	pdfs  interfaces.ImportedPdfRepository
	uow   interfaces.UnitOfWork
	store interfaces.ContentStore
	log   logger.Logger

	metrics *metrics.Metrics

	mu         sync.Mutex
	newMails   []*models.ImportedMail
	newPdfs    []*models.ImportedPdf
	mailsByMsg map[string]*models.ImportedMail
	pdfsByHash map[string]*models.ImportedPdf
	tracked    map[string]*trackedPdf
	trackOrder []string
}

func NewMailPersister(
	mails interfaces.ImportedMailRepository,
	pdfs interfaces.ImportedPdfRepository,
	uow interfaces.UnitOfWork,
	store interfaces.ContentStore,
	log logger.Logger,
	m *metrics.Metrics,
) interfaces.MailPersister {
	return &mailPersister{
		mails:      mails,
		pdfs:       pdfs,
		uow:        uow,
		store:      store,
		log:        log,
		metrics:    m,
		mailsByMsg: make(map[string]*models.ImportedMail),
		pdfsByHash: make(map[string]*models.ImportedPdf),
		tracked:    make(map[string]*trackedPdf),
	}
}

func (p *mailPersister) PersistMail(ctx context.Context, ref *dto.MessageReference) (*models.ImportedMail, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailPersister.PersistMail")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	p.mu.Lock()
	defer p.mu.Unlock()

	var messageID *string
	if ref.MessageID != nil && *ref.MessageID != "" {
		messageID = utils.ToPtr(utils.Truncate(*ref.MessageID, 255))

		if staged, ok := p.mailsByMsg[*messageID]; ok {
			return staged, nil
		}
		existing, err := p.mails.GetByMessageID(ctx, *messageID)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, errors.Wrap(err, "lookup mail by message id")
		}
		if existing != nil {
			span.LogKV("reused", existing.ID)
			return existing, nil
		}
	}

	mail := &models.ImportedMail{
		ID:          utils.GenerateNanoIDWithPrefix("mail", idSize),
		Subject:     utils.Truncate(ref.Subject, 512),
		FromAddress: utils.Truncate(ref.FromAddress, 255),
		MessageID:   messageID,
		ReceivedAt:  ref.ReceivedAt,
	}
	p.newMails = append(p.newMails, mail)
	if messageID != nil {
		p.mailsByMsg[*messageID] = mail
	}
	tracing.TagEntity(span, mail.ID)
	return mail, nil
}

func (p *mailPersister) PersistPdf(ctx context.Context, mail *models.ImportedMail, attachment dto.Attachment) (*models.ImportedPdf, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailPersister.PersistPdf")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	p.mu.Lock()
	defer p.mu.Unlock()

	hash := utils.Sha256Hex(attachment.Content)
	span.SetTag("file.hash", hash)

	if staged, ok := p.pdfsByHash[hash]; ok {
		p.metrics.PdfPersisted(true)
		return staged, nil
	}

	existing, err := p.pdfs.GetByFileHash(ctx, hash)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "lookup pdf by hash")
	}
	if existing != nil {
		p.log.Debug("duplicate pdf", zap.String("pdfId", existing.ID), zap.String("hash", hash))
		p.metrics.PdfPersisted(true)
		p.trackLocked(existing)
		return existing, nil
	}

	filename := utils.Truncate(utils.GetOrDefault(attachment.Filename, defaultFilename), 255)
	if filename == "" {
		filename = defaultFilename
	}

	storedPath, err := p.store.Store(ctx, attachment.Content, filename)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "store pdf")
	}

	mime := utils.Truncate(utils.GetOrDefault(attachment.MimeType, defaultMime), 100)
	if mime == "" {
		mime = defaultMime
	}

	pdf := &models.ImportedPdf{
		ID:               utils.GenerateNanoIDWithPrefix("pdf", idSize),
		MailID:           mail.ID,
		OriginalFilename: filename,
		StoredPath:       storedPath,
		Size:             int64(len(attachment.Content)),
		Mime:             mime,
		FileHash:         hash,
		Synced:           false,
	}
	p.newPdfs = append(p.newPdfs, pdf)
	p.pdfsByHash[hash] = pdf
	p.metrics.PdfPersisted(false)
	tracing.TagEntity(span, pdf.ID)
	return pdf, nil
}

func (p *mailPersister) IsStaged(pdf *models.ImportedPdf) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	staged, ok := p.pdfsByHash[pdf.FileHash]
	return ok && staged == pdf
}

func (p *mailPersister) Track(pdf *models.ImportedPdf) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if staged, ok := p.pdfsByHash[pdf.FileHash]; ok && staged == pdf {
		return
	}
	p.trackLocked(pdf)
}

func (p *mailPersister) trackLocked(pdf *models.ImportedPdf) {
	if t, ok := p.tracked[pdf.ID]; ok {
		if t.pdf != pdf {
			t.pdf = pdf
			t.snapshot = stateOf(pdf)
		}
		return
	}
	p.tracked[pdf.ID] = &trackedPdf{pdf: pdf, snapshot: stateOf(pdf)}
	p.trackOrder = append(p.trackOrder, pdf.ID)
}

// Flush commits staged inserts and changed tracked records in one transaction. Every record is
// released afterwards; callers Track the ones they intend to change again.
func (p *mailPersister) Flush(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailPersister.Flush")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	p.mu.Lock()
	defer p.mu.Unlock()

	changes := &models.ChangeSet{NewMails: p.newMails, NewPdfs: p.newPdfs}
	for _, id := range p.trackOrder {
		t := p.tracked[id]
		if stateOf(t.pdf) != t.snapshot {
			changes.Dirty = append(changes.Dirty, t.pdf)
		}
	}

	if !changes.IsEmpty() {
		if err := p.uow.Commit(ctx, changes); err != nil {
			tracing.TraceErr(span, err)
			return errors.Wrap(err, "flush")
		}
		span.LogKV("mails.new", len(changes.NewMails), "pdfs.new", len(changes.NewPdfs), "pdfs.dirty", len(changes.Dirty))
	}

	p.newMails = nil
	p.newPdfs = nil
	p.mailsByMsg = make(map[string]*models.ImportedMail)
	p.pdfsByHash = make(map[string]*models.ImportedPdf)
	p.tracked = make(map[string]*trackedPdf)
	p.trackOrder = nil
	return nil
}
