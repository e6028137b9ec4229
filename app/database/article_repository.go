package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var _ ArticleRepository = (*ArticleRepo)(nil)

const articleColumns = `id, title, slug, description, url, published_at, thumbnail, is_read, feed_id, created_at`

// ArticleRepo handles database operations for articles
type ArticleRepo struct {
	db *DB
}

func NewArticleRepository(db *DB) *ArticleRepo {
	return &ArticleRepo{db: db}
}

func (r *ArticleRepo) UpsertArticle(ctx context.Context, in ArticleInput, feed *Feed) (*Article, bool, error) {
	if feed == nil {
		return nil, false, errors.New("failed to upsert article: feed is required")
	}
	if in.Slug == "" {
		return nil, false, errors.New("failed to upsert article: slug is required")
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO articles (title, slug, description, url, published_at, thumbnail, is_read, feed_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT (slug) DO NOTHING
	`, in.Title, in.Slug, in.Body, in.URL, in.PublishedAt.UTC(), in.ThumbnailURL, feed.ID, time.Now().UTC())
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert article: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read insert result: %w", err)
	}

	article, err := r.GetArticleBySlug(ctx, in.Slug)
	if err != nil {
		return nil, false, err
	}
	if article == nil {
		return nil, false, fmt.Errorf("article %q vanished after upsert", in.Slug)
	}

	return article, inserted == 1, nil
}

func (r *ArticleRepo) GetArticleBySlug(ctx context.Context, slug string) (*Article, error) {
	var article Article
	err := r.db.GetContext(ctx, &article, `SELECT `+articleColumns+` FROM articles WHERE slug = ?`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article by slug: %w", err)
	}
	return &article, nil
}

func (r *ArticleRepo) GetArticleCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM articles"); err != nil {
		return 0, fmt.Errorf("failed to get article count: %w", err)
	}
	return count, nil
}

func (r *ArticleRepo) GetArticleCountByFeed(ctx context.Context, feedID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM articles WHERE feed_id = ?", feedID); err != nil {
		return 0, fmt.Errorf("failed to get article count: %w", err)
	}
	return count, nil
}
