package database

import (
	"context"
)

type BoardRepository interface {
	UpsertBoard(ctx context.Context, title, slug string) (*Board, error)
	GetBoardCount(ctx context.Context) (int, error)
}

type FeedRepository interface {
	// UpsertFeed is keyed on FeedURL. The bool reports whether a new row
	// was created; an existing row is returned as stored.
	UpsertFeed(ctx context.Context, in FeedInput, board *Board) (*Feed, bool, error)
	GetFeedByURL(ctx context.Context, feedURL string) (*Feed, error)
	GetFeedCount(ctx context.Context) (int, error)
}

type ArticleRepository interface {
	// UpsertArticle is keyed on Slug. An existing article is returned
	// unchanged with created=false.
	UpsertArticle(ctx context.Context, in ArticleInput, feed *Feed) (*Article, bool, error)
	GetArticleBySlug(ctx context.Context, slug string) (*Article, error)
	GetArticleCount(ctx context.Context) (int, error)
	GetArticleCountByFeed(ctx context.Context, feedID int64) (int, error)
}
