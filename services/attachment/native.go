package attachment

import (
	"context"
	"iter"

	"go.uber.org/zap"

	"github.com/customeros/lexsync/dto"
	"github.com/customeros/lexsync/interfaces"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/utils"
)

const StrategyNative = "native"

// nativeStrategy reads attachments through the handle's library adapter.
type nativeStrategy struct {
	log logger.Logger
}

func NewNativeStrategy(log logger.Logger) interfaces.AttachmentStrategy {
	return &nativeStrategy{log: log}
}

func (s *nativeStrategy) Name() string {
	return StrategyNative
}

func (s *nativeStrategy) Attachments(ctx context.Context, ref *dto.MessageReference) iter.Seq[dto.Attachment] {
	return func(yield func(dto.Attachment) bool) {
		if ref.Handle == nil {
			return
		}
		source := ref.Handle.Native()
		if source == nil {
			return
		}

		parts, err := source.ListAttachments(ctx)
		if err != nil {
			s.log.Warn("native attachment listing failed", zap.Uint32("uid", ref.UID), zap.Error(err))
			return
		}

		for _, part := range parts {
			if err := source.ForceLoadBody(ctx, part); err != nil {
				s.log.Warn("native body load failed", zap.Uint32("uid", ref.UID), zap.String("section", part.Section), zap.Error(err))
				continue
			}
			content, err := source.ReadContent(part)
			if err != nil {
				s.log.Warn("native content read failed", zap.Uint32("uid", ref.UID), zap.Int("index", part.Index), zap.Error(err))
				continue
			}
			if !withinCap(content) {
				continue
			}
			if !yield(dto.Attachment{
				Filename: utils.StringPtrOrNil(part.Filename),
				MimeType: utils.StringPtrOrNil(part.MimeType),
				Content:  content,
			}) {
				return
			}
		}
	}
}
