package feed

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies how a source is fetched and parsed.
type Kind int

const (
	KindSyndication Kind = iota + 1 // RSS/Atom
	KindListing                     // JSON article listing
	KindFlow                        // HTML page with embedded JSON card flow
	KindMessages                    // public message stream web page
)

var kindNames = map[Kind]string{
	KindSyndication: "syndication",
	KindListing:     "listing",
	KindFlow:        "flow",
	KindMessages:    "messages",
}

var kindAliases = map[string]Kind{
	"syndication": KindSyndication,
	"rss":         KindSyndication,
	"atom":        KindSyndication,
	"listing":     KindListing,
	"json-api-a":  KindListing,
	"kanobu":      KindListing,
	"flow":        KindFlow,
	"json-api-b":  KindFlow,
	"tj":          KindFlow,
	"messages":    KindMessages,
	"html-scrape": KindMessages,
	"telegram":    KindMessages,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func ParseKind(s string) (Kind, error) {
	if k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("unknown source type %q", s)
}

// Configuration types

type Board struct {
	Title   string
	Slug    string
	Sources []Source
}

type Source struct {
	Kind       Kind
	Endpoint   string
	Title      string
	SiteURL    string
	BoardSlug  string
	BoardTitle string
}

func (s Source) Name() string {
	return s.BoardSlug + "/" + Slugify(s.Title)
}

type rawBoardsFile struct {
	Boards []rawBoard `yaml:"boards"`
}

type rawBoard struct {
	Title string      `yaml:"title"`
	Slug  string      `yaml:"slug"`
	Feeds []rawSource `yaml:"feeds"`
}

type rawSource struct {
	Type    string `yaml:"type"`
	URL     string `yaml:"url"`
	Title   string `yaml:"title"`
	SiteURL string `yaml:"site_url"`
}

// Ingestion types

// Descriptor is the source-level metadata an adapter extracts.
type Descriptor struct {
	Title    string
	Subtitle string
	SiteURL  string
	FeedURL  string
}

// Draft is one normalized article, not yet persisted.
type Draft struct {
	Title        string
	Body         string
	URL          string
	PublishedAt  time.Time
	ThumbnailURL string
}

func (d Draft) Slug() string {
	return Slugify(d.Title)
}

// Payload is the raw body fetched for one source.
type Payload struct {
	Body     []byte
	TooLarge bool
}

type Result struct {
	Descriptor Descriptor
	Drafts     []Draft
	Skipped    []error
	TooLarge   bool
}
