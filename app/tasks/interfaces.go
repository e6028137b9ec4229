package tasks

import (
	"context"

	"github.com/lysyi3m/rune-reader/app/feed"
)

// TaskSchedulerInterface is what the entry point and the HTTP trigger
// surface need from the scheduler.
//
//	scheduler := NewScheduler(catalog, adapters, boardRepo, feedRepo, articleRepo, opts)
//	scheduler.Start()
//	defer scheduler.Stop()
//	report, err := scheduler.RunOnce(ctx)
type TaskSchedulerInterface interface {
	Start()
	Stop()
	RunOnce(ctx context.Context) (*RunReport, error)
	Trigger() (string, error)
	LastReport() *RunReport
	Running() bool
}

// AdapterProvider resolves the adapter for a source kind.
type AdapterProvider interface {
	AdapterFor(kind feed.Kind) (feed.Adapter, error)
}

// BoardCatalog supplies the configured boards and can reload them.
type BoardCatalog interface {
	Run() error
	GetBoards() []feed.Board
}

var (
	_ AdapterProvider = (*feed.Registry)(nil)
	_ BoardCatalog    = (*feed.ConfigCache)(nil)
)
