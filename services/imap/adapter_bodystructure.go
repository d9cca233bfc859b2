package imap

import (
	"context"

	"github.com/pkg/errors"

	"github.com/customeros/lexsync/dto"
)

// bodyStructureSource lists parts from BODYSTRUCTURE and fetches each section on demand.
type bodyStructureSource struct {
	h      *messageHandle
	bodies map[string][]byte
}

func newBodyStructureSource(h *messageHandle) *bodyStructureSource {
	return &bodyStructureSource{h: h, bodies: make(map[string][]byte)}
}

func (s *bodyStructureSource) ListAttachments(_ context.Context) ([]dto.NativePart, error) {
	bs, err := s.h.bodyStructure()
	if err != nil {
		return nil, err
	}
	return AttachmentParts(bs), nil
}

func (s *bodyStructureSource) ForceLoadBody(_ context.Context, part dto.NativePart) error {
	if _, ok := s.bodies[part.Section]; ok {
		return nil
	}
	data, err := FetchSection(s.h.c, s.h.uid, part.Section)
	if err != nil {
		return err
	}
	decoded, err := DecodeTransferEncoding(part.Encoding, data)
	if err != nil {
		return err
	}
	s.bodies[part.Section] = decoded
	return nil
}

func (s *bodyStructureSource) ReadContent(part dto.NativePart) ([]byte, error) {
	body, ok := s.bodies[part.Section]
	if !ok {
		return nil, errors.Errorf("body of section %s not loaded", part.Section)
	}
	return body, nil
}
