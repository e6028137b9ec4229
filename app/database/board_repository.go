package database

import (
	"context"
	"fmt"
	"time"
)

var _ BoardRepository = (*BoardRepo)(nil)

type BoardRepo struct {
	db *DB
}

func NewBoardRepository(db *DB) *BoardRepo {
	return &BoardRepo{db: db}
}

// UpsertBoard creates the board for slug or refreshes the title of the
// existing one.
func (r *BoardRepo) UpsertBoard(ctx context.Context, title, slug string) (*Board, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO boards (title, slug, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET title = excluded.title
	`, title, slug, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to upsert board: %w", err)
	}

	var board Board
	err = r.db.GetContext(ctx, &board, `
		SELECT id, title, slug, created_at FROM boards WHERE slug = ?
	`, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to get board: %w", err)
	}

	return &board, nil
}

func (r *BoardRepo) GetBoardCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM boards"); err != nil {
		return 0, fmt.Errorf("failed to get board count: %w", err)
	}
	return count, nil
}
