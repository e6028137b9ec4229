package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type listingPayload struct {
	Results *[]listingEntry `json:"results"`
}

type listingEntry struct {
	Title   string  `json:"title"`
	Desc    *string `json:"desc"`
	Pubdate string  `json:"pubdate"`
	Slug    string  `json:"slug"`
	Pic     *struct {
		Origin string `json:"origin"`
	} `json:"pic"`
}

// ListingAdapter reads a JSON endpoint returning {"results": [...]}.
// Article links are the configured site URL joined with each entry slug.
type ListingAdapter struct {
	fetcher Fetcher
}

func NewListingAdapter(f Fetcher) *ListingAdapter {
	return &ListingAdapter{fetcher: f}
}

func (a *ListingAdapter) Kind() Kind {
	return KindListing
}

func (a *ListingAdapter) Fetch(ctx context.Context, src Source) (*Payload, error) {
	var raw json.RawMessage
	if err := a.fetcher.FetchJSON(ctx, src.Endpoint, &raw); err != nil {
		return nil, fmt.Errorf("failed to fetch listing: %w", err)
	}
	return &Payload{Body: raw}, nil
}

func (a *ListingAdapter) Parse(ctx context.Context, src Source, payload *Payload) (*Result, error) {
	var data listingPayload
	if err := json.Unmarshal(payload.Body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w: %v", ErrMalformedPayload, err)
	}
	if data.Results == nil {
		return nil, fmt.Errorf("%w: results", ErrMissingRequiredField)
	}

	result := &Result{
		Descriptor: Descriptor{
			Title:   src.Title,
			SiteURL: src.SiteURL,
			FeedURL: src.Endpoint,
		},
		Drafts: make([]Draft, 0, len(*data.Results)),
	}

	for i, entry := range *data.Results {
		title := strings.TrimSpace(entry.Title)
		if title == "" {
			skipItem(result, i, fmt.Errorf("%w: title", ErrMissingRequiredField))
			continue
		}

		publishedAt, err := listingDates.Parse(entry.Pubdate)
		if err != nil {
			skipItem(result, i, err)
			continue
		}

		draft := Draft{
			Title:       title,
			URL:         src.SiteURL + entry.Slug,
			PublishedAt: publishedAt,
		}
		if entry.Desc != nil {
			draft.Body = PlainText(*entry.Desc)
		}
		if entry.Pic != nil {
			draft.ThumbnailURL = entry.Pic.Origin
		}

		result.Drafts = append(result.Drafts, draft)
	}

	return result, nil
}
