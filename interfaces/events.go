package interfaces

import (
	"context"

	"github.com/customeros/lexsync/dto"
)

type EventPublisher interface {
	PublishVoucherUploaded(ctx context.Context, event dto.VoucherUploaded) error
	Close() error
}
