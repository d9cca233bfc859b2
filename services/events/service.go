package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/customeros/lexsync/config"
	"github.com/customeros/lexsync/dto"
	"github.com/customeros/lexsync/interfaces"
	"github.com/customeros/lexsync/internal/logger"
)

// NewEventPublisher connects to RabbitMQ when a URL is configured. Without one, or when the
// broker is unreachable, events are dropped.
func NewEventPublisher(cfg *config.RabbitMQConfig, log logger.Logger) interfaces.EventPublisher {
	if cfg == nil || cfg.URL == "" {
		log.Info("RabbitMQ not configured, voucher events are disabled")
		return NewNoopPublisher(log)
	}

	publisher, err := NewRabbitMQPublisher(cfg.URL, log, DefaultPublisherConfig(cfg.Exchange))
	if err != nil {
		log.Warn("RabbitMQ unavailable, voucher events are disabled", zap.Error(err))
		return NewNoopPublisher(log)
	}
	return publisher
}

type noopPublisher struct {
	log logger.Logger
}

func NewNoopPublisher(log logger.Logger) interfaces.EventPublisher {
	return &noopPublisher{log: log}
}

func (p *noopPublisher) PublishVoucherUploaded(_ context.Context, event dto.VoucherUploaded) error {
	p.log.Debug("dropping voucher event", zap.String("pdfId", event.PdfID))
	return nil
}

func (p *noopPublisher) Close() error {
	return nil
}
