package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/lexsync/internal/utils"
)

// ImportedMail is one fetched message. Rows are never updated after insert.
type ImportedMail struct {
	ID          string    `gorm:"type:varchar(50);primaryKey"`
	Subject     string    `gorm:"type:varchar(512);not null"`
	FromAddress string    `gorm:"column:from_address;type:varchar(255);not null"`
	MessageID   *string   `gorm:"column:message_id;type:varchar(255);uniqueIndex"`
	ReceivedAt  time.Time `gorm:"column:received_at;type:timestamp;not null"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
}

func (ImportedMail) TableName() string {
	return "imported_mails"
}

func (m *ImportedMail) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = utils.GenerateNanoIDWithPrefix("mail", 16)
	}
	m.CreatedAt = utils.Now()
	return nil
}
