package imap

import (
	"context"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/lexsync/dto"
	lexerrors "github.com/customeros/lexsync/internal/errors"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/tracing"
)

const (
	AdapterEnmime        = "enmime"
	AdapterBodyStructure = "bodystructure"
)

// messageHandle is only valid while the fetch connection that produced it is open.
type messageHandle struct {
	c         *client.Client
	uid       uint32
	structure *imap.BodyStructure
	adapter   string
	log       logger.Logger

	raw    []byte
	native dto.AttachmentSource
}

func newMessageHandle(c *client.Client, msg *imap.Message, adapter string, log logger.Logger) *messageHandle {
	return &messageHandle{
		c:         c,
		uid:       msg.Uid,
		structure: msg.BodyStructure,
		adapter:   strings.ToLower(adapter),
		log:       log,
	}
}

func (h *messageHandle) Native() dto.AttachmentSource {
	if h.native == nil {
		switch h.adapter {
		case AdapterBodyStructure:
			h.native = newBodyStructureSource(h)
		default:
			h.native = newEnmimeSource(h)
		}
	}
	return h.native
}

func (h *messageHandle) Raw(ctx context.Context) ([]byte, error) {
	if h.raw != nil {
		return h.raw, nil
	}

	span, ctx := opentracing.StartSpanFromContext(ctx, "messageHandle.Raw")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagComponentImap(span)
	span.SetTag("uid", h.uid)

	raw, err := FetchSection(h.c, h.uid, "")
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(lexerrors.ErrRawSourceUnavailable, "UID %d: %v", h.uid, err)
	}
	if len(raw) == 0 {
		return nil, errors.Wrapf(lexerrors.ErrRawSourceUnavailable, "UID %d: empty source", h.uid)
	}
	h.raw = raw
	return raw, nil
}

func (h *messageHandle) bodyStructure() (*imap.BodyStructure, error) {
	if h.structure != nil {
		return h.structure, nil
	}
	msg, err := FetchOne(h.c, h.uid, []imap.FetchItem{imap.FetchBodyStructure})
	if err != nil {
		return nil, err
	}
	if msg == nil || msg.BodyStructure == nil {
		return nil, errors.Errorf("no BODYSTRUCTURE for UID %d", h.uid)
	}
	h.structure = msg.BodyStructure
	return h.structure, nil
}
