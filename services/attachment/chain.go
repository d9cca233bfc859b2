package attachment

import (
	"context"
	"iter"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"github.com/customeros/lexsync/dto"
	"github.com/customeros/lexsync/interfaces"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/metrics"
	"github.com/customeros/lexsync/internal/tracing"
)

// MaxAttachmentBytes caps any single extracted attachment.
const MaxAttachmentBytes = 25 * 1024 * 1024

type chainExtractor struct {
	strategies []interfaces.AttachmentStrategy
	log        logger.Logger
	metrics    *metrics.Metrics
}

// NewChainExtractor tries strategies in order and commits to the first one yielding anything.
func NewChainExtractor(log logger.Logger, m *metrics.Metrics, strategies ...interfaces.AttachmentStrategy) interfaces.AttachmentExtractor {
	return &chainExtractor{strategies: strategies, log: log, metrics: m}
}

func (e *chainExtractor) Extract(ctx context.Context, ref *dto.MessageReference) iter.Seq[dto.Attachment] {
	return func(yield func(dto.Attachment) bool) {
		span, ctx := opentracing.StartSpanFromContext(ctx, "AttachmentExtractor.Extract")
		defer span.Finish()
		tracing.SetDefaultServiceSpanTags(ctx, span)
		span.SetTag("uid", ref.UID)

		for _, strategy := range e.strategies {
			committed := false
			for a := range strategy.Attachments(ctx, ref) {
				if !committed {
					committed = true
					span.SetTag("strategy", strategy.Name())
					e.metrics.Strategy(strategy.Name())
					e.log.Debug("attachment strategy committed",
						zap.String("strategy", strategy.Name()), zap.Uint32("uid", ref.UID))
				}
				a.Filename = SanitizeFilename(a.Filename)
				if !yield(a) {
					return
				}
			}
			if committed {
				return
			}
		}
		e.log.Debug("no attachments found", zap.Uint32("uid", ref.UID), zap.String("subject", ref.Subject))
	}
}

func withinCap(content []byte) bool {
	return len(content) > 0 && len(content) <= MaxAttachmentBytes
}

