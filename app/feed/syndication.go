package feed

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

type SyndicationAdapter struct {
	fetcher    Fetcher
	thumbnails *ThumbnailResolver
	now        func() time.Time
}

func NewSyndicationAdapter(f Fetcher, thumbnails *ThumbnailResolver, now func() time.Time) *SyndicationAdapter {
	return &SyndicationAdapter{
		fetcher:    f,
		thumbnails: thumbnails,
		now:        now,
	}
}

func (a *SyndicationAdapter) Kind() Kind {
	return KindSyndication
}

func (a *SyndicationAdapter) Fetch(ctx context.Context, src Source) (*Payload, error) {
	body, err := a.fetcher.FetchText(ctx, src.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	return &Payload{Body: []byte(body)}, nil
}

func (a *SyndicationAdapter) Parse(ctx context.Context, src Source, payload *Payload) (*Result, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(payload.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w: %v", ErrMalformedPayload, err)
	}

	result := &Result{
		Descriptor: Descriptor{
			Title:    src.Title,
			Subtitle: strings.TrimSpace(parsed.Description),
			SiteURL:  parsed.Link,
			FeedURL:  src.Endpoint,
		},
		Drafts: make([]Draft, 0, len(parsed.Items)),
	}

	for i, item := range parsed.Items {
		draft, err := a.normalizeItem(ctx, item)
		if err != nil {
			skipItem(result, i, err)
			continue
		}
		result.Drafts = append(result.Drafts, draft)
	}

	return result, nil
}

func (a *SyndicationAdapter) normalizeItem(ctx context.Context, item *gofeed.Item) (Draft, error) {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return Draft{}, fmt.Errorf("%w: title", ErrMissingRequiredField)
	}

	publishedAt := a.now()
	if raw := strings.TrimSpace(item.Published); raw != "" {
		parsed, err := syndicationDates.Parse(raw)
		if err != nil {
			return Draft{}, err
		}
		publishedAt = parsed
	}

	return Draft{
		Title:        title,
		Body:         PlainText(item.Description),
		URL:          item.Link,
		PublishedAt:  publishedAt,
		ThumbnailURL: a.thumbnails.Resolve(ctx, item.Description, item.Content),
	}, nil
}
