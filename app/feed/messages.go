package feed

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/lysyi3m/rune-reader/app/fetcher"
)

const (
	DefaultMessageLimit = 100
	UntitledMessage     = "Untitled"

	messageSelector     = ".tgme_widget_message"
	messageTextSelector = ".tgme_widget_message_text"
	messageDateSelector = ".tgme_widget_message_date"
)

// MessagesAdapter scrapes the public web view of a message channel. Each
// message block becomes one draft.
type MessagesAdapter struct {
	fetcher      Fetcher
	maxPageBytes int64
	limit        int
	now          func() time.Time
}

func NewMessagesAdapter(f Fetcher, maxPageBytes int64, limit int, now func() time.Time) *MessagesAdapter {
	if maxPageBytes <= 0 {
		maxPageBytes = fetcher.DefaultMaxPageBytes
	}
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	return &MessagesAdapter{
		fetcher:      f,
		maxPageBytes: maxPageBytes,
		limit:        limit,
		now:          now,
	}
}

func (a *MessagesAdapter) Kind() Kind {
	return KindMessages
}

func (a *MessagesAdapter) Fetch(ctx context.Context, src Source) (*Payload, error) {
	webURL, err := MessageStreamURL(src.Endpoint)
	if err != nil {
		return nil, err
	}

	page, err := a.fetcher.FetchBounded(ctx, webURL, a.maxPageBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message stream: %w", err)
	}

	return &Payload{Body: page.Body, TooLarge: page.TooLarge}, nil
}

func (a *MessagesAdapter) Parse(ctx context.Context, src Source, payload *Payload) (*Result, error) {
	result := &Result{
		Descriptor: Descriptor{
			Title:   src.Title,
			SiteURL: src.Endpoint,
			FeedURL: src.Endpoint,
		},
		TooLarge: payload.TooLarge,
	}

	if payload.TooLarge || len(payload.Body) == 0 {
		return result, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message stream: %w: %v", ErrMalformedPayload, err)
	}

	// A block without text (a bare photo or a forwarded media group) inherits
	// the title of the block before it. Both then share a slug, so the later
	// block resolves to the article already stored for the earlier one.
	title := ""

	doc.Find(messageSelector).EachWithBreak(func(i int, block *goquery.Selection) bool {
		if i >= a.limit {
			return false
		}

		draft := Draft{PublishedAt: a.now()}

		if text := block.Find(messageTextSelector).First(); text.Length() > 0 {
			inner, _ := text.Html()
			title = FirstSentence(inner)
			if title == "" {
				title = UntitledMessage
			}
			draft.Body = PlainText(inner)
		}
		draft.Title = title
		if draft.Title == "" {
			draft.Title = UntitledMessage
		}

		if date := block.Find(messageDateSelector).First(); date.Length() > 0 {
			draft.URL = date.AttrOr("href", "")
			if raw, ok := date.Find("time").First().Attr("datetime"); ok {
				publishedAt, err := messageDates.Parse(raw)
				if err != nil {
					skipItem(result, i, err)
					return true
				}
				draft.PublishedAt = publishedAt
			}
		}

		if markup, err := goquery.OuterHtml(block); err == nil {
			draft.ThumbnailURL = BackgroundImageURL(markup)
		}

		result.Drafts = append(result.Drafts, draft)
		return true
	})

	return result, nil
}
