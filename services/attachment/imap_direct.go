package attachment

import (
	"context"
	"iter"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"github.com/customeros/lexsync/config"
	"github.com/customeros/lexsync/dto"
	"github.com/customeros/lexsync/interfaces"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/tracing"
	"github.com/customeros/lexsync/internal/utils"
	imapsvc "github.com/customeros/lexsync/services/imap"
)

const (
	StrategyImapDirect = "imap_direct"
	subjectLookback    = 60 * 24 * time.Hour
	noSubject          = "(no subject)"
)

// imapDirectStrategy opens its own read only connection and walks BODYSTRUCTURE.
type imapDirectStrategy struct {
	cfg    *config.ImapConfig
	dialer *imapsvc.Dialer
	log    logger.Logger
	now    func() time.Time
}

func NewImapDirectStrategy(cfg *config.ImapConfig, log logger.Logger) interfaces.AttachmentStrategy {
	return &imapDirectStrategy{
		cfg:    cfg,
		dialer: imapsvc.NewDialer(cfg, log),
		log:    log,
		now:    utils.Now,
	}
}

func (s *imapDirectStrategy) Name() string {
	return StrategyImapDirect
}

func (s *imapDirectStrategy) Attachments(ctx context.Context, ref *dto.MessageReference) iter.Seq[dto.Attachment] {
	return func(yield func(dto.Attachment) bool) {
		span, ctx := opentracing.StartSpanFromContext(ctx, "ImapDirectStrategy.Attachments")
		defer span.Finish()
		tracing.SetDefaultServiceSpanTags(ctx, span)
		tracing.TagComponentImap(span)

		c, err := s.dialer.Connect(ctx)
		if err != nil {
			tracing.TraceErr(span, err)
			s.log.Warn("imap direct connect failed", zap.Error(err))
			return
		}
		defer imapsvc.Logout(c, s.log)

		mailbox := ref.Mailbox
		if mailbox == "" {
			mailbox = s.cfg.Mailbox
		}
		if _, err := c.Select(mailbox, true); err != nil {
			tracing.TraceErr(span, err)
			s.log.Warn("imap direct examine failed", zap.String("mailbox", mailbox), zap.Error(err))
			return
		}

		uid := s.resolve(c, ref)
		if uid == 0 {
			s.log.Warn("imap direct could not resolve message",
				zap.String("subject", ref.Subject), zap.String("from", ref.FromAddress))
			return
		}
		span.SetTag("uid", uid)

		msg, err := imapsvc.FetchOne(c, uid, []imap.FetchItem{imap.FetchBodyStructure})
		if err != nil || msg == nil || msg.BodyStructure == nil {
			s.log.Warn("imap direct BODYSTRUCTURE fetch failed", zap.Uint32("uid", uid), zap.Error(err))
			return
		}

		for _, part := range imapsvc.AttachmentParts(msg.BodyStructure) {
			data, err := imapsvc.FetchSection(c, uid, part.Section)
			if err != nil {
				s.log.Warn("imap direct section fetch failed", zap.Uint32("uid", uid), zap.String("section", part.Section), zap.Error(err))
				continue
			}
			content, err := imapsvc.DecodeTransferEncoding(part.Encoding, data)
			if err != nil {
				s.log.Warn("imap direct decode failed", zap.Uint32("uid", uid), zap.String("section", part.Section), zap.Error(err))
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

// resolve returns the UID of ref on c, or 0. Searches go from most to least specific.
func (s *imapDirectStrategy) resolve(c *client.Client, ref *dto.MessageReference) uint32 {
	if ref.UID != 0 {
		return ref.UID
	}
	for _, criteria := range s.searches(ref) {
		uids, err := c.UidSearch(criteria)
		if err != nil {
			s.log.Warn("imap direct search failed", zap.Error(err))
			continue
		}
		if len(uids) > 0 {
			sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })
			return uids[0]
		}
	}
	return 0
}

func (s *imapDirectStrategy) searches(ref *dto.MessageReference) []*imap.SearchCriteria {
	var searches []*imap.SearchCriteria

	if ref.MessageID != nil && *ref.MessageID != "" {
		criteria := imap.NewSearchCriteria()
		criteria.Header.Add("Message-ID", *ref.MessageID)
		searches = append(searches, criteria)
	}

	subject := strings.TrimSpace(ref.Subject)
	if subject != "" && subject != noSubject {
		criteria := onDate(ref.ReceivedAt)
		criteria.Header.Add("Subject", subject)
		searches = append(searches, criteria)

		criteria = imap.NewSearchCriteria()
		criteria.Since = dayStart(s.now().Add(-subjectLookback))
		criteria.Header.Add("Subject", subject)
		searches = append(searches, criteria)
	}

	from := strings.TrimSpace(ref.FromAddress)
	if from != "" && from != imapsvc.UnknownSender {
		criteria := onDate(ref.ReceivedAt)
		criteria.Header.Add("From", from)
		searches = append(searches, criteria)
	}

	return searches
}

func onDate(t time.Time) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	criteria.Since = dayStart(t)
	criteria.Before = criteria.Since.AddDate(0, 0, 1)
	return criteria
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
