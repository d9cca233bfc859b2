package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/lexsync/internal/utils"
)

// ImportedPdf is a stored PDF attachment. FileHash (SHA-256 hex) is the dedup key.
type ImportedPdf struct {
	ID               string  `gorm:"type:varchar(50);primaryKey"`
	MailID           string  `gorm:"column:mail_id;type:varchar(50);index;not null"`
	OriginalFilename string  `gorm:"column:original_filename;type:varchar(255);not null"`
	StoredPath       string  `gorm:"column:stored_path;type:varchar(512);not null"`
	Size             int64   `gorm:"column:size;not null;default:0"`
	Mime             string  `gorm:"column:mime;type:varchar(100);not null"`
	FileHash         string  `gorm:"column:file_hash;type:varchar(64);uniqueIndex;not null"`
	Synced           bool    `gorm:"column:synced;not null;default:false"`
	LexwareFileID    *string `gorm:"column:lexware_file_id;type:varchar(100)"`
	LexwareVoucherID *string `gorm:"column:lexware_voucher_id;type:varchar(100)"`
	LastError        *string `gorm:"column:last_error;type:text"`

	Mail *ImportedMail `gorm:"foreignKey:MailID;references:ID;constraint:OnDelete:CASCADE" json:"-"`

	ImportedAt time.Time `gorm:"column:imported_at;type:timestamp;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (ImportedPdf) TableName() string {
	return "imported_pdfs"
}

func (p *ImportedPdf) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = utils.GenerateNanoIDWithPrefix("pdf", 16)
	}
	if p.ImportedAt.IsZero() {
		p.ImportedAt = utils.Now()
	}
	return nil
}

// MarkSynced records a successful upload.
func (p *ImportedPdf) MarkSynced(fileID, voucherID *string) {
	p.Synced = true
	p.LexwareFileID = fileID
	p.LexwareVoucherID = voucherID
	p.LastError = nil
}

// MarkFailed records a failed attempt, keeping any ids from an earlier sync.
func (p *ImportedPdf) MarkFailed(message string) {
	p.Synced = false
	p.LastError = &message
}
