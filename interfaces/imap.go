package interfaces

import (
	"context"
	"iter"

	"github.com/customeros/lexsync/dto"
)

type MessageFetcher interface {
	// Fetch yields matching messages newest first. The sequence stops after the first error.
	Fetch(ctx context.Context, filter dto.FetchFilter) iter.Seq2[*dto.MessageReference, error]
}
