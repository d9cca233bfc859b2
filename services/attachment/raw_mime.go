package attachment

import (
	"bytes"
	"context"
	"io"
	"iter"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/customeros/lexsync/dto"
	"github.com/customeros/lexsync/interfaces"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/utils"
)

const StrategyRawMime = "raw_mime"

// rawMimeStrategy parses the RFC 822 source itself with go-message.
type rawMimeStrategy struct {
	log logger.Logger
}

func NewRawMimeStrategy(log logger.Logger) interfaces.AttachmentStrategy {
	return &rawMimeStrategy{log: log}
}

func (s *rawMimeStrategy) Name() string {
	return StrategyRawMime
}

func (s *rawMimeStrategy) Attachments(ctx context.Context, ref *dto.MessageReference) iter.Seq[dto.Attachment] {
	return func(yield func(dto.Attachment) bool) {
		if ref.Handle == nil {
			return
		}
		raw, err := ref.Handle.Raw(ctx)
		if err != nil {
			s.log.Warn("raw source unavailable", zap.Uint32("uid", ref.UID), zap.Error(err))
			return
		}

		entity, err := message.Read(bytes.NewReader(raw))
		if err != nil && !isRecoverable(err) {
			s.log.Warn("raw mime parse failed", zap.Uint32("uid", ref.UID), zap.Error(err))
			return
		}
		s.walk(entity, ref.UID, yield)
	}
}

// walk returns false once the consumer stopped.
func (s *rawMimeStrategy) walk(entity *message.Entity, uid uint32, yield func(dto.Attachment) bool) bool {
	if mr := entity.MultipartReader(); mr != nil {
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return true
			}
			if err != nil && !isRecoverable(err) {
				s.log.Warn("raw mime part failed", zap.Uint32("uid", uid), zap.Error(err))
				return true
			}
			if !s.walk(part, uid, yield) {
				return false
			}
		}
	}

	disposition, dispositionParams, _ := entity.Header.ContentDisposition()
	mimeType, typeParams, _ := entity.Header.ContentType()

	header := mail.AttachmentHeader{Header: entity.Header}
	filename, err := header.Filename()
	if err != nil || filename == "" {
		filename = dispositionParams["filename"]
		if filename == "" {
			filename = typeParams["name"]
		}
	}

	disposition = strings.ToLower(disposition)
	if disposition != "attachment" && disposition != "inline" && filename == "" {
		return true
	}

	content, err := io.ReadAll(io.LimitReader(entity.Body, MaxAttachmentBytes+1))
	if err != nil {
		s.log.Warn("raw mime body read failed", zap.Uint32("uid", uid), zap.Error(err))
		return true
	}
	if !withinCap(content) {
		return true
	}
	return yield(dto.Attachment{
		Filename: utils.StringPtrOrNil(filename),
		MimeType: utils.StringPtrOrNil(mimeType),
		Content:  content,
	})
}

func isRecoverable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}
