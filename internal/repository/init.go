package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/lexsync/config"
	"github.com/customeros/lexsync/interfaces"
	"github.com/customeros/lexsync/internal/models"
)

type Repositories struct {
	ImportedMailRepository interfaces.ImportedMailRepository
	ImportedPdfRepository  interfaces.ImportedPdfRepository
	UnitOfWork             interfaces.UnitOfWork
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		ImportedMailRepository: NewImportedMailRepository(db),
		ImportedPdfRepository:  NewImportedPdfRepository(db),
		UnitOfWork:             NewUnitOfWork(db),
	}
}

func MigrateDB(dbConfig *config.DatabaseConfig, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = db.AutoMigrate(
		&models.ImportedMail{},
		&models.ImportedPdf{},
	)

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
