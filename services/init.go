package services

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/customeros/lexsync/config"
	"github.com/customeros/lexsync/interfaces"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/metrics"
	"github.com/customeros/lexsync/internal/repository"
	"github.com/customeros/lexsync/services/attachment"
	"github.com/customeros/lexsync/services/detection"
	"github.com/customeros/lexsync/services/events"
	"github.com/customeros/lexsync/services/imap"
	"github.com/customeros/lexsync/services/importer"
	"github.com/customeros/lexsync/services/inspector"
	"github.com/customeros/lexsync/services/lexware"
	"github.com/customeros/lexsync/services/persister"
	"github.com/customeros/lexsync/services/smtp"
	"github.com/customeros/lexsync/services/storage"
	"github.com/customeros/lexsync/services/voucher"
)

type Services struct {
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	Fetcher   interfaces.MessageFetcher
	Extractor interfaces.AttachmentExtractor
	Inspector interfaces.FileInspector
	Store     interfaces.ContentStore
	Persister interfaces.MailPersister
	Client    interfaces.UploadClient
	Notifier  interfaces.ErrorNotifier
	Publisher interfaces.EventPublisher
	Uploader  interfaces.VoucherUploader
	Importer  interfaces.Importer
}

func InitServices(cfg *config.Config, db *gorm.DB, log logger.Logger) (*Services, error) {
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	repos := repository.InitRepositories(db)

	var opts []storage.ContentStoreOption
	if cfg.StorageConfig.MirrorEnabled {
		mirror, err := storage.NewR2StorageService(cfg.R2StorageConfig)
		if err != nil {
			return nil, errors.Wrap(err, "init voucher mirror")
		}
		opts = append(opts, storage.WithMirror(mirror))
	}
	store, err := storage.NewContentStore(cfg.StorageConfig.Root, log, opts...)
	if err != nil {
		return nil, err
	}

	fileInspector := inspector.NewFileInspector(cfg.InspectorConfig.MaxBytes, cfg.InspectorConfig.AllowedMimes)
	extractor := attachment.NewChainExtractor(log, m,
		attachment.NewNativeStrategy(log),
		attachment.NewRawMimeStrategy(log),
		attachment.NewImapDirectStrategy(cfg.ImapConfig, log),
	)
	mailPersister := persister.NewMailPersister(
		repos.ImportedMailRepository,
		repos.ImportedPdfRepository,
		repos.UnitOfWork,
		store,
		log,
		m,
	)
	client := lexware.NewUploadClient(cfg.LexwareConfig, fileInspector, log)
	notifier := smtp.NewSMTPNotifier(cfg.NotifierConfig, log)
	publisher := events.NewEventPublisher(cfg.RabbitMQConfig, log)
	uploader := voucher.NewVoucherUploader(client, fileInspector, notifier, publisher, log, m)
	fetcher := imap.NewMessageFetcher(cfg.ImapConfig, log)

	return &Services{
		Registry:  registry,
		Metrics:   m,
		Fetcher:   fetcher,
		Extractor: extractor,
		Inspector: fileInspector,
		Store:     store,
		Persister: mailPersister,
		Client:    client,
		Notifier:  notifier,
		Publisher: publisher,
		Uploader:  uploader,
		Importer: importer.NewImporter(importer.Dependencies{
			Fetcher:   fetcher,
			Extractor: extractor,
			Detector:  detection.NewPdfDetector(),
			Persister: mailPersister,
			Uploader:  uploader,
			Pdfs:      repos.ImportedPdfRepository,
		}, log, m),
	}, nil
}

// Close releases the broker connection.
func (s *Services) Close() error {
	if s.Publisher == nil {
		return nil
	}
	return s.Publisher.Close()
}
