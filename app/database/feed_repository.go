package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var _ FeedRepository = (*FeedRepo)(nil)

const feedColumns = `id, title, slug, subtitle, site_url, feed_url, board_id, created_at, updated_at`

// FeedRepo handles database operations for feeds
type FeedRepo struct {
	db *DB
}

func NewFeedRepository(db *DB) *FeedRepo {
	return &FeedRepo{db: db}
}

func (r *FeedRepo) UpsertFeed(ctx context.Context, in FeedInput, board *Board) (*Feed, bool, error) {
	if board == nil {
		return nil, false, errors.New("failed to upsert feed: board is required")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO feeds (title, slug, subtitle, site_url, feed_url, board_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (feed_url) DO NOTHING
	`, in.Title, in.Slug, in.Subtitle, in.SiteURL, in.FeedURL, board.ID, now, now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert feed: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read insert result: %w", err)
	}
	created := inserted == 1

	if !created {
		// Existing feeds are reused as stored; only the sync time moves.
		_, err = tx.ExecContext(ctx, `UPDATE feeds SET updated_at = ? WHERE feed_url = ?`, now, in.FeedURL)
		if err != nil {
			return nil, false, fmt.Errorf("failed to update feed: %w", err)
		}
	}

	var feed Feed
	if err := tx.GetContext(ctx, &feed, `SELECT `+feedColumns+` FROM feeds WHERE feed_url = ?`, in.FeedURL); err != nil {
		return nil, false, fmt.Errorf("failed to get feed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit feed upsert: %w", err)
	}

	return &feed, created, nil
}

func (r *FeedRepo) GetFeedByURL(ctx context.Context, feedURL string) (*Feed, error) {
	var feed Feed
	err := r.db.GetContext(ctx, &feed, `SELECT `+feedColumns+` FROM feeds WHERE feed_url = ?`, feedURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed by URL: %w", err)
	}
	return &feed, nil
}

func (r *FeedRepo) GetFeedCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM feeds"); err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}
