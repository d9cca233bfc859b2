package imap

import (
	"context"
	"iter"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/customeros/lexsync/config"
	"github.com/customeros/lexsync/dto"
	"github.com/customeros/lexsync/interfaces"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/tracing"
	"github.com/customeros/lexsync/internal/utils"
)

const noSubject = "(no subject)"

var messageItems = []imap.FetchItem{
	imap.FetchEnvelope,
	imap.FetchBodyStructure,
	imap.FetchUid,
	imap.FetchInternalDate,
	imap.FetchFlags,
}

type messageFetcher struct {
	cfg      *config.ImapConfig
	dialer   *Dialer
	resolver *FromAddressResolver
	log      logger.Logger
	now      func() time.Time
}

func NewMessageFetcher(cfg *config.ImapConfig, log logger.Logger) interfaces.MessageFetcher {
	return &messageFetcher{
		cfg:      cfg,
		dialer:   NewDialer(cfg, log),
		resolver: NewFromAddressResolver(),
		log:      log,
		now:      utils.Now,
	}
}

func (f *messageFetcher) Fetch(ctx context.Context, filter dto.FetchFilter) iter.Seq2[*dto.MessageReference, error] {
	return func(yield func(*dto.MessageReference, error) bool) {
		span, ctx := opentracing.StartSpanFromContext(ctx, "MessageFetcher.Fetch")
		defer span.Finish()
		tracing.SetDefaultServiceSpanTags(ctx, span)
		tracing.TagComponentImap(span)
		tracing.LogObjectAsJson(span, "filter", filter)

		mailbox := filter.Mailbox
		if mailbox == "" {
			mailbox = f.cfg.Mailbox
		}
		if mailbox == "" {
			yield(nil, errors.New("no mailbox configured"))
			return
		}
		tracing.TagMailbox(span, mailbox)

		c, err := f.dialer.Connect(ctx)
		if err != nil {
			tracing.TraceErr(span, err)
			yield(nil, err)
			return
		}
		defer Logout(c, f.log)

		exists, err := mailboxExists(c, mailbox)
		if err != nil {
			tracing.TraceErr(span, err)
			yield(nil, errors.Wrapf(err, "list mailbox %s", mailbox))
			return
		}
		if !exists {
			f.log.Warn("mailbox not found, nothing to fetch", zap.String("mailbox", mailbox))
			return
		}

		if _, err = c.Select(mailbox, true); err != nil {
			tracing.TraceErr(span, err)
			yield(nil, errors.Wrapf(err, "select mailbox %s", mailbox))
			return
		}

		uids, err := c.UidSearch(f.criteria(filter))
		if err != nil {
			tracing.TraceErr(span, err)
			yield(nil, errors.Wrap(err, "uid search"))
			return
		}
		sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })
		span.LogKV("candidates", len(uids))

		limit := filter.EffectiveLimit()
		emitted := 0
		for _, uid := range uids {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			msg, err := FetchOne(c, uid, messageItems)
			if err != nil {
				tracing.TraceErr(span, err)
				yield(nil, err)
				return
			}
			if msg == nil {
				continue
			}

			ref := f.toReference(c, msg, mailbox)
			if !matchesFilter(ref, filter) {
				continue
			}
			if !yield(ref, nil) {
				return
			}
			emitted++
			if emitted >= limit {
				return
			}
		}
	}
}

func (f *messageFetcher) criteria(filter dto.FetchFilter) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	since := filter.EffectiveSince(f.now())
	criteria.Since = time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, time.UTC)

	onlyUnseen := filter.OnlyUnseen
	if onlyUnseen == nil && strings.EqualFold(f.cfg.DefaultSearch, "UNSEEN") {
		onlyUnseen = utils.ToPtr(true)
	}
	if onlyUnseen != nil {
		if *onlyUnseen {
			criteria.WithoutFlags = []string{imap.SeenFlag}
		} else {
			criteria.WithFlags = []string{imap.SeenFlag}
		}
	}
	return criteria
}

func (f *messageFetcher) toReference(c *client.Client, msg *imap.Message, mailbox string) *dto.MessageReference {
	env := msg.Envelope
	if env == nil {
		env = &imap.Envelope{}
	}

	subject := strings.TrimSpace(env.Subject)
	if subject == "" {
		subject = noSubject
	}

	receivedAt := env.Date
	if receivedAt.IsZero() {
		receivedAt = msg.InternalDate
	}
	if receivedAt.IsZero() {
		receivedAt = f.now()
	}

	from := f.resolver.Resolve(env, func() []byte {
		return f.senderHeaders(c, msg.Uid)
	})

	var messageID *string
	if id := utils.NormalizeMessageID(env.MessageId); id != "" {
		messageID = &id
	}

	return &dto.MessageReference{
		UID:         msg.Uid,
		Subject:     subject,
		FromAddress: from,
		MessageID:   messageID,
		ReceivedAt:  receivedAt.UTC(),
		Mailbox:     mailbox,
		Handle:      newMessageHandle(c, msg, f.cfg.NativeAdapter, f.log),
	}
}

func (f *messageFetcher) senderHeaders(c *client.Client, uid uint32) []byte {
	section := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{
			Specifier: imap.HeaderSpecifier,
			Fields:    senderFields,
		},
		Peek: true,
	}
	msg, err := FetchOne(c, uid, []imap.FetchItem{section.FetchItem()})
	if err != nil || msg == nil {
		f.log.Warn("could not fetch sender headers", zap.Uint32("uid", uid), zap.Error(err))
		return nil
	}
	raw, err := firstBody(msg)
	if err != nil {
		return nil
	}
	return raw
}

func matchesFilter(ref *dto.MessageReference, filter dto.FetchFilter) bool {
	if filter.FromContains != "" && !utils.ContainsFold(ref.FromAddress, filter.FromContains) {
		return false
	}
	if filter.SubjectContains != "" && !utils.ContainsFold(ref.Subject, filter.SubjectContains) {
		return false
	}
	return true
}

func mailboxExists(c *client.Client, name string) (bool, error) {
	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.List("", name, mailboxes)
	}()

	found := false
	for m := range mailboxes {
		if strings.EqualFold(m.Name, name) {
			found = true
		}
	}
	if err := <-done; err != nil {
		return false, err
	}
	return found, nil
}
