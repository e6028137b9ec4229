package api

import (
	"github.com/lysyi3m/rune-reader/app/database"
	"github.com/lysyi3m/rune-reader/app/feed"
	"github.com/lysyi3m/rune-reader/app/tasks"
)

// Catalog is the read side of the board catalog shown by /health.
type Catalog interface {
	GetSourceCount() int
	Problems() []error
}

var _ Catalog = (*feed.ConfigCache)(nil)

type Handler struct {
	boardRepo   database.BoardRepository
	feedRepo    database.FeedRepository
	articleRepo database.ArticleRepository
	catalog     Catalog
	scheduler   tasks.TaskSchedulerInterface
}

type runSummary struct {
	ID         string `json:"id"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	Duration   string `json:"duration"`
	Boards     int    `json:"boards"`
	Sources    int    `json:"sources"`
	Done       int    `json:"done"`
	Failed     int    `json:"failed"`
	Created    int    `json:"created"`
}
