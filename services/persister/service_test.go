package persister

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/lexsync/dto"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/models"
	"github.com/customeros/lexsync/internal/testutil"
	"github.com/customeros/lexsync/internal/utils"
)

type memoryStore struct {
	stored []string
}

func (s *memoryStore) Store(_ context.Context, data []byte, originalName string) (string, error) {
	path := fmt.Sprintf("/var/pdfs/2024/05/%03d-%s", len(s.stored), originalName)
	s.stored = append(s.stored, path)
	return path, nil
}

func newTestPersister(db *testutil.MemoryDB, store *memoryStore) *mailPersister {
	return NewMailPersister(db.MailRepository(), db.PdfRepository(), db.UnitOfWork(), store, logger.NewNopLogger(), nil).(*mailPersister)
}

func testRef(messageID string) *dto.MessageReference {
	ref := &dto.MessageReference{
		UID:         7,
		Subject:     "Invoice 42",
		FromAddress: "billing@vendor.example",
		ReceivedAt:  time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	if messageID != "" {
		ref.MessageID = utils.ToPtr(messageID)
	}
	return ref
}

func pdfAttachment(name, body string) dto.Attachment {
	return dto.Attachment{Filename: utils.ToPtr(name), MimeType: utils.ToPtr("application/pdf"), Content: []byte("%PDF-1.4\n" + body)}
}

func TestPersistPdf_IdempotentAcrossRuns(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewMemoryDB()
	store := &memoryStore{}

	first := newTestPersister(db, store)
	mail, err := first.PersistMail(ctx, testRef("<a@vendor>"))
	require.NoError(t, err)
	pdf, err := first.PersistPdf(ctx, mail, pdfAttachment("invoice.pdf", "one"))
	require.NoError(t, err)
	assert.True(t, first.IsStaged(pdf))
	require.NoError(t, first.Flush(ctx))

	second := newTestPersister(db, store)
	mail2, err := second.PersistMail(ctx, testRef("<a@vendor>"))
	require.NoError(t, err)
	assert.Equal(t, mail.ID, mail2.ID)

	again, err := second.PersistPdf(ctx, mail2, pdfAttachment("renamed.pdf", "one"))
	require.NoError(t, err)
	assert.Equal(t, pdf.ID, again.ID)
	assert.False(t, second.IsStaged(again))
	require.NoError(t, second.Flush(ctx))

	assert.Len(t, db.Mails, 1)
	assert.Len(t, db.Pdfs, 1)
	assert.Len(t, store.stored, 1)
}

func TestPersistPdf_DuplicateWithinBatch(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewMemoryDB()
	store := &memoryStore{}
	p := newTestPersister(db, store)

	m1, err := p.PersistMail(ctx, testRef("<one@vendor>"))
	require.NoError(t, err)
	m2, err := p.PersistMail(ctx, testRef("<two@vendor>"))
	require.NoError(t, err)

	a, err := p.PersistPdf(ctx, m1, pdfAttachment("a.pdf", "same"))
	require.NoError(t, err)
	b, err := p.PersistPdf(ctx, m2, pdfAttachment("b.pdf", "same"))
	require.NoError(t, err)

	assert.Same(t, a, b)
	require.NoError(t, p.Flush(ctx))
	assert.Len(t, db.Pdfs, 1)
	assert.Len(t, db.Mails, 2)
	assert.Len(t, store.stored, 1)
}

func TestPersistMail_SameMessageIDInBatch(t *testing.T) {
	ctx := context.Background()
	p := newTestPersister(testutil.NewMemoryDB(), &memoryStore{})

	a, err := p.PersistMail(ctx, testRef("<dup@vendor>"))
	require.NoError(t, err)
	b, err := p.PersistMail(ctx, testRef("<dup@vendor>"))
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := p.PersistMail(ctx, testRef(""))
	require.NoError(t, err)
	d, err := p.PersistMail(ctx, testRef(""))
	require.NoError(t, err)
	assert.NotEqual(t, c.ID, d.ID)
}

func TestPersistPdf_Defaults(t *testing.T) {
	ctx := context.Background()
	p := newTestPersister(testutil.NewMemoryDB(), &memoryStore{})

	mail, err := p.PersistMail(ctx, testRef(""))
	require.NoError(t, err)
	pdf, err := p.PersistPdf(ctx, mail, dto.Attachment{Content: []byte("%PDF-1.7 body")})
	require.NoError(t, err)

	assert.Equal(t, "attachment.pdf", pdf.OriginalFilename)
	assert.Equal(t, "application/pdf", pdf.Mime)
	assert.Equal(t, int64(13), pdf.Size)
	assert.Equal(t, utils.Sha256Hex([]byte("%PDF-1.7 body")), pdf.FileHash)
	assert.Equal(t, mail.ID, pdf.MailID)
	assert.False(t, pdf.Synced)
	assert.Contains(t, pdf.StoredPath, "attachment.pdf")
}

func TestFlush_SavesTrackedChanges(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewMemoryDB()
	db.Pdfs["pdf_existing"] = &models.ImportedPdf{ID: "pdf_existing", FileHash: "h1", MailID: "mail_x"}
	db.Pdfs["pdf_untouched"] = &models.ImportedPdf{ID: "pdf_untouched", FileHash: "h2", MailID: "mail_x"}
	p := newTestPersister(db, &memoryStore{})

	changed := db.Pdf("pdf_existing")
	untouched := db.Pdf("pdf_untouched")
	p.Track(changed)
	p.Track(untouched)

	changed.MarkSynced(utils.ToPtr("F1"), utils.ToPtr("V1"))
	require.NoError(t, p.Flush(ctx))

	require.Len(t, db.Commits, 1)
	require.Len(t, db.Commits[0].Dirty, 1)
	assert.Equal(t, "pdf_existing", db.Commits[0].Dirty[0].ID)
	assert.True(t, db.Pdfs["pdf_existing"].Synced)

	// nothing changed since
	require.NoError(t, p.Flush(ctx))
	assert.Len(t, db.Commits, 1)
}

func TestFlush_OnlySavesTrackedChanges(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewMemoryDB()
	p := newTestPersister(db, &memoryStore{})

	mail, _ := p.PersistMail(ctx, testRef(""))
	pdf, err := p.PersistPdf(ctx, mail, pdfAttachment("x.pdf", "x"))
	require.NoError(t, err)
	require.NoError(t, p.Flush(ctx))

	pdf.MarkFailed("untracked change")
	require.NoError(t, p.Flush(ctx))
	require.Len(t, db.Commits, 1)

	p.Track(pdf)
	pdf.MarkFailed("upload: 500")
	require.NoError(t, p.Flush(ctx))

	require.Len(t, db.Commits, 2)
	assert.Equal(t, "upload: 500", *db.Pdfs[pdf.ID].LastError)
}

func TestFlush_ErrorKeepsStagedRecords(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewMemoryDB()
	db.Fail = errors.New("connection reset")
	p := newTestPersister(db, &memoryStore{})

	mail, _ := p.PersistMail(ctx, testRef("<r@vendor>"))
	_, err := p.PersistPdf(ctx, mail, pdfAttachment("r.pdf", "r"))
	require.NoError(t, err)

	err = p.Flush(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	db.Fail = nil
	require.NoError(t, p.Flush(ctx))
	assert.Len(t, db.Pdfs, 1)
	assert.Len(t, db.Mails, 1)
}
