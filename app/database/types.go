package database

import (
	"time"
)

type Board struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Slug      string    `db:"slug"`
	CreatedAt time.Time `db:"created_at"`
}

type Feed struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Slug      string    `db:"slug"`
	Subtitle  string    `db:"subtitle"`
	SiteURL   string    `db:"site_url"` // homepage of the source
	FeedURL   string    `db:"feed_url"` // natural key
	BoardID   int64     `db:"board_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type Article struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	Slug        string    `db:"slug"` // natural key, derived from title
	Description string    `db:"description"`
	URL         string    `db:"url"`
	PublishedAt time.Time `db:"published_at"`
	Thumbnail   string    `db:"thumbnail"`
	IsRead      bool      `db:"is_read"`
	FeedID      int64     `db:"feed_id"`
	CreatedAt   time.Time `db:"created_at"`
}

type FeedInput struct {
	Title    string
	Slug     string
	Subtitle string
	SiteURL  string
	FeedURL  string
}

type ArticleInput struct {
	Title        string
	Slug         string
	Body         string
	URL          string
	PublishedAt  time.Time
	ThumbnailURL string
}
