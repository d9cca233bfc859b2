package imap

import (
	"bytes"
	"context"

	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"

	"github.com/customeros/lexsync/dto"
)

// enmimeSource parses the full message with enmime once and serves parts from memory.
type enmimeSource struct {
	h     *messageHandle
	parts []*enmime.Part
	ready bool
}

func newEnmimeSource(h *messageHandle) *enmimeSource {
	return &enmimeSource{h: h}
}

func (s *enmimeSource) ListAttachments(ctx context.Context) ([]dto.NativePart, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	result := make([]dto.NativePart, 0, len(s.parts))
	for i, p := range s.parts {
		result = append(result, dto.NativePart{
			Index:    i,
			Filename: p.FileName,
			MimeType: p.ContentType,
			Size:     int64(len(p.Content)),
		})
	}
	return result, nil
}

func (s *enmimeSource) ForceLoadBody(ctx context.Context, _ dto.NativePart) error {
	return s.load(ctx)
}

func (s *enmimeSource) ReadContent(part dto.NativePart) ([]byte, error) {
	if part.Index < 0 || part.Index >= len(s.parts) {
		return nil, errors.Errorf("no enmime part at index %d", part.Index)
	}
	return s.parts[part.Index].Content, nil
}

func (s *enmimeSource) load(ctx context.Context) error {
	if s.ready {
		return nil
	}
	raw, err := s.h.Raw(ctx)
	if err != nil {
		return err
	}
	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return errors.Wrap(err, "enmime parse")
	}

	parts := make([]*enmime.Part, 0, len(envelope.Attachments)+len(envelope.Inlines))
	parts = append(parts, envelope.Attachments...)
	parts = append(parts, envelope.Inlines...)
	for _, p := range envelope.OtherParts {
		if p.FileName != "" {
			parts = append(parts, p)
		}
	}
	s.parts = parts
	s.ready = true
	return nil
}
