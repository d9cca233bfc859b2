package cmd

import (
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/customeros/lexsync/dto"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/utils"
)

const sinceLayout = "2006-01-02"

// filterFromFlags ignores an unparseable --since so the default window applies.
func filterFromFlags(c *cli.Context, log logger.Logger) dto.FetchFilter {
	filter := dto.FetchFilter{
		Limit:           c.Int("limit"),
		FromContains:    strings.TrimSpace(c.String("from")),
		SubjectContains: strings.TrimSpace(c.String("subject-contains")),
		Mailbox:         strings.TrimSpace(c.String("mailbox")),
	}

	if raw := strings.TrimSpace(c.String("since")); raw != "" {
		since, err := time.ParseInLocation(sinceLayout, raw, time.UTC)
		if err != nil {
			log.Warnf("Ignoring invalid --since %q, expected YYYY-MM-DD", raw)
		} else {
			filter.Since = &since
		}
	}

	unseen, seen := c.Bool("unseen"), c.Bool("seen")
	switch {
	case unseen && seen:
		log.Warn("Both --unseen and --seen given, using --unseen")
		filter.OnlyUnseen = utils.ToPtr(true)
	case unseen:
		filter.OnlyUnseen = utils.ToPtr(true)
	case seen:
		filter.OnlyUnseen = utils.ToPtr(false)
	}

	return filter
}
