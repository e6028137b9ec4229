package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rune-reader/app/database"
	"github.com/lysyi3m/rune-reader/app/feed"
)

// SyncBoardsTask stores every configured board so that sources can be
// attached to it.
type SyncBoardsTask struct {
	Task
	boards    []feed.Board
	boardRepo database.BoardRepository
	stored    map[string]*database.Board
}

func NewSyncBoardsTask(boards []feed.Board, boardRepo database.BoardRepository) *SyncBoardsTask {
	return &SyncBoardsTask{
		Task:      NewTask(TaskTypeSyncBoards, "boards"),
		boards:    boards,
		boardRepo: boardRepo,
		stored:    make(map[string]*database.Board, len(boards)),
	}
}

// Execute upserts each board. A board that fails to store is logged and
// left out of Stored; the others are still synced.
func (t *SyncBoardsTask) Execute(ctx context.Context) error {
	failed := 0

	for _, b := range t.boards {
		if err := ctx.Err(); err != nil {
			return err
		}

		board, err := t.boardRepo.UpsertBoard(ctx, b.Title, b.Slug)
		if err != nil {
			slog.Error("Failed to sync board", "board", b.Slug, "error", err)
			failed++
			continue
		}
		t.stored[b.Slug] = board
	}

	slog.Info("Task completed",
		"type", "SyncBoards",
		"duration", t.GetDuration(),
		"boards", len(t.stored),
		"failed", failed)

	if failed > 0 {
		return fmt.Errorf("failed to sync %d of %d boards", failed, len(t.boards))
	}
	return nil
}

// Stored returns the persisted boards keyed by slug.
func (t *SyncBoardsTask) Stored() map[string]*database.Board {
	return t.stored
}
