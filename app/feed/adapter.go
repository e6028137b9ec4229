package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/lysyi3m/rune-reader/app/fetcher"
)

// Fetcher is the network capability adapters depend on.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
	FetchJSON(ctx context.Context, url string, v any) error
	FetchBounded(ctx context.Context, url string, maxBytes int64) (*fetcher.Page, error)
	SizeProber
}

var _ Fetcher = (*fetcher.Client)(nil)

// Adapter turns one kind of source into a descriptor and article drafts.
// Fetch performs all network I/O for the payload; Parse works on a frozen
// payload and only touches the network for thumbnail size probes.
type Adapter interface {
	Kind() Kind
	Fetch(ctx context.Context, src Source) (*Payload, error)
	Parse(ctx context.Context, src Source, payload *Payload) (*Result, error)
}

type RegistryOptions struct {
	MaxPageBytes int64
	MessageLimit int
	Now          func() time.Time
}

type Registry struct {
	syndication *SyndicationAdapter
	listing     *ListingAdapter
	flow        *FlowAdapter
	messages    *MessagesAdapter
}

func NewRegistry(f Fetcher, opts RegistryOptions) *Registry {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Registry{
		syndication: NewSyndicationAdapter(f, NewThumbnailResolver(f), now),
		listing:     NewListingAdapter(f),
		flow:        NewFlowAdapter(f),
		messages:    NewMessagesAdapter(f, opts.MaxPageBytes, opts.MessageLimit, now),
	}
}

func (r *Registry) AdapterFor(kind Kind) (Adapter, error) {
	switch kind {
	case KindSyndication:
		return r.syndication, nil
	case KindListing:
		return r.listing, nil
	case KindFlow:
		return r.flow, nil
	case KindMessages:
		return r.messages, nil
	default:
		return nil, fmt.Errorf("no adapter for %s", kind)
	}
}

// Ingest fetches and parses src in one step.
func Ingest(ctx context.Context, a Adapter, src Source) (*Result, error) {
	payload, err := a.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	return a.Parse(ctx, src, payload)
}

func skipItem(result *Result, index int, err error) {
	result.Skipped = append(result.Skipped, fmt.Errorf("item %d: %w", index, err))
}
