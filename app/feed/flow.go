package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const flowScriptSelector = `script[type="application/json"][data-id="flow-page"]`

type flowPayload struct {
	Description string      `json:"description"`
	Cards       *[]flowCard `json:"cards"`
}

type flowCard struct {
	Article *flowArticle `json:"article"`
	Media   *flowMedia   `json:"media"`
}

type flowArticle struct {
	Title         string `json:"title"`
	Path          string `json:"path"`
	Excerpt       string `json:"excerpt"`
	DatePublished string `json:"date_published"`
}

type flowMedia struct {
	BackgroundImage *flowImage `json:"backgroundImage"`
	Image           *flowImage `json:"image"`
}

type flowImage struct {
	Files struct {
		Original struct {
			Filepath string `json:"filepath"`
		} `json:"original"`
	} `json:"files"`
}

func (m *flowMedia) thumbnail() string {
	if m == nil {
		return ""
	}
	if m.BackgroundImage != nil && m.BackgroundImage.Files.Original.Filepath != "" {
		return m.BackgroundImage.Files.Original.Filepath
	}
	if m.Image != nil {
		return m.Image.Files.Original.Filepath
	}
	return ""
}

// FlowAdapter reads an HTML page that embeds its article cards as JSON in
// a script element.
type FlowAdapter struct {
	fetcher Fetcher
}

func NewFlowAdapter(f Fetcher) *FlowAdapter {
	return &FlowAdapter{fetcher: f}
}

func (a *FlowAdapter) Kind() Kind {
	return KindFlow
}

func (a *FlowAdapter) Fetch(ctx context.Context, src Source) (*Payload, error) {
	body, err := a.fetcher.FetchText(ctx, src.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	return &Payload{Body: []byte(body)}, nil
}

func (a *FlowAdapter) Parse(ctx context.Context, src Source, payload *Payload) (*Result, error) {
	data, err := extractFlowPayload(payload.Body)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Descriptor: Descriptor{
			Title:    src.Title,
			Subtitle: data.Description,
			SiteURL:  src.Endpoint,
			FeedURL:  src.Endpoint,
		},
		Drafts: make([]Draft, 0, len(*data.Cards)),
	}

	base := strings.TrimSuffix(src.Endpoint, "/")

	for i, card := range *data.Cards {
		if card.Article == nil {
			skipItem(result, i, fmt.Errorf("%w: article", ErrMissingRequiredField))
			continue
		}

		title := strings.TrimSpace(card.Article.Title)
		if title == "" {
			skipItem(result, i, fmt.Errorf("%w: title", ErrMissingRequiredField))
			continue
		}

		publishedAt, err := flowDates.Parse(card.Article.DatePublished)
		if err != nil {
			skipItem(result, i, err)
			continue
		}

		result.Drafts = append(result.Drafts, Draft{
			Title:        title,
			Body:         PlainText(card.Article.Excerpt),
			URL:          base + card.Article.Path,
			PublishedAt:  publishedAt,
			ThumbnailURL: card.Media.thumbnail(),
		})
	}

	return result, nil
}

func extractFlowPayload(page []byte) (*flowPayload, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w: %v", ErrMalformedPayload, err)
	}

	script := doc.Find(flowScriptSelector).First()
	if script.Length() == 0 {
		return nil, fmt.Errorf("%w: flow-page script", ErrMissingRequiredField)
	}

	var data flowPayload
	if err := json.Unmarshal([]byte(script.Text()), &data); err != nil {
		return nil, fmt.Errorf("failed to decode flow-page script: %w: %v", ErrMalformedPayload, err)
	}
	if data.Cards == nil {
		return nil, fmt.Errorf("%w: cards", ErrMissingRequiredField)
	}

	return &data, nil
}
