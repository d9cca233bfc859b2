package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImportedPdf_MarkSyncedClearsError(t *testing.T) {
	msg := "boom"
	fileID, voucherID := "F123", "V999"
	pdf := &ImportedPdf{LastError: &msg}

	pdf.MarkSynced(&fileID, &voucherID)

	assert.True(t, pdf.Synced)
	assert.Equal(t, "F123", *pdf.LexwareFileID)
	assert.Equal(t, "V999", *pdf.LexwareVoucherID)
	assert.Nil(t, pdf.LastError)
}

func TestImportedPdf_MarkFailed(t *testing.T) {
	pdf := &ImportedPdf{Synced: true}

	pdf.MarkFailed("preflight: empty_file")

	assert.False(t, pdf.Synced)
	assert.Equal(t, "preflight: empty_file", *pdf.LastError)
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "imported_mails", ImportedMail{}.TableName())
	assert.Equal(t, "imported_pdfs", ImportedPdf{}.TableName())
}

func TestChangeSet_IsEmpty(t *testing.T) {
	var nilSet *ChangeSet
	assert.True(t, nilSet.IsEmpty())
	assert.True(t, (&ChangeSet{}).IsEmpty())
	assert.False(t, (&ChangeSet{NewMails: []*ImportedMail{{}}}).IsEmpty())
}
