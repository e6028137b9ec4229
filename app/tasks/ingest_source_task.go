package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lysyi3m/rune-reader/app/database"
	"github.com/lysyi3m/rune-reader/app/feed"
	"github.com/lysyi3m/rune-reader/app/fetcher"
)

// IngestSourceTask runs one source through
// pending -> fetching -> parsing -> upserting -> done. Fetch and parse
// errors end the source in failed; a failed article write is counted and
// the remaining drafts are still stored.
type IngestSourceTask struct {
	Task
	Source      feed.Source
	board       *database.Board
	adapters    AdapterProvider
	feedRepo    database.FeedRepository
	articleRepo database.ArticleRepository
	sink        feed.DiagnosticSink

	mu  sync.Mutex
	run SourceRun
}

func NewIngestSourceTask(src feed.Source, board *database.Board, adapters AdapterProvider,
	feedRepo database.FeedRepository, articleRepo database.ArticleRepository, sink feed.DiagnosticSink) *IngestSourceTask {
	return &IngestSourceTask{
		Task:        NewTask(TaskTypeIngestSource, src.Name()),
		Source:      src,
		board:       board,
		adapters:    adapters,
		feedRepo:    feedRepo,
		articleRepo: articleRepo,
		sink:        sink,
		run: SourceRun{
			Source: src.Name(),
			Kind:   src.Kind.String(),
			State:  StatePending,
		},
	}
}

func (t *IngestSourceTask) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return t.fail(err)
	}

	if t.board == nil {
		return t.fail(fmt.Errorf("board %q is not stored", t.Source.BoardSlug))
	}

	adapter, err := t.adapters.AdapterFor(t.Source.Kind)
	if err != nil {
		return t.fail(err)
	}

	t.setState(StateFetching)
	payload, err := adapter.Fetch(ctx, t.Source)
	if err != nil {
		return t.fail(fmt.Errorf("failed to fetch source: %w", err))
	}
	if t.sink != nil {
		t.sink.Dump(t.Source, payload)
	}

	t.setState(StateParsing)
	result, err := adapter.Parse(ctx, t.Source, payload)
	if err != nil {
		return t.fail(fmt.Errorf("failed to parse source: %w", err))
	}

	for _, skipped := range result.Skipped {
		slog.Warn("Item skipped", "source", t.SourceName, "error", skipped)
	}

	t.setState(StateUpserting)
	storedFeed, err := t.storeDescriptor(ctx, result.Descriptor)
	if err != nil {
		return t.fail(err)
	}

	created, existing, writeErrors := t.storeDrafts(ctx, storedFeed, result.Drafts)

	t.mu.Lock()
	t.run.State = StateDone
	t.run.Created = created
	t.run.Existing = existing
	t.run.Skipped = len(result.Skipped)
	t.run.WriteErrors = writeErrors
	t.run.TooLarge = result.TooLarge
	t.run.Duration = t.GetDuration()
	t.mu.Unlock()

	slog.Info("Task completed",
		"type", "IngestSource",
		"source", t.SourceName,
		"kind", t.Source.Kind.String(),
		"duration", t.GetDuration(),
		"total", len(result.Drafts),
		"new", created,
		"existing", existing,
		"skipped", len(result.Skipped),
		"too_large", result.TooLarge)

	return nil
}

func (t *IngestSourceTask) storeDescriptor(ctx context.Context, d feed.Descriptor) (*database.Feed, error) {
	title := d.Title
	if title == "" {
		title = t.Source.Title
	}

	storedFeed, created, err := t.feedRepo.UpsertFeed(ctx, database.FeedInput{
		Title:    title,
		Slug:     feed.Slugify(title),
		Subtitle: d.Subtitle,
		SiteURL:  d.SiteURL,
		FeedURL:  d.FeedURL,
	}, t.board)
	if err != nil {
		return nil, fmt.Errorf("failed to store feed: %w", err)
	}
	if created {
		slog.Debug("Feed created", "source", t.SourceName, "feed_url", d.FeedURL)
	}

	return storedFeed, nil
}

func (t *IngestSourceTask) storeDrafts(ctx context.Context, storedFeed *database.Feed, drafts []feed.Draft) (created, existing, writeErrors int) {
	for _, draft := range drafts {
		_, isNew, err := t.articleRepo.UpsertArticle(ctx, database.ArticleInput{
			Title:        draft.Title,
			Slug:         draft.Slug(),
			Body:         draft.Body,
			URL:          draft.URL,
			PublishedAt:  draft.PublishedAt,
			ThumbnailURL: draft.ThumbnailURL,
		}, storedFeed)
		if err != nil {
			slog.Warn("Failed to store article", "source", t.SourceName, "title", draft.Title, "error", err)
			writeErrors++
			continue
		}

		if isNew {
			created++
		} else {
			existing++
		}
	}
	return created, existing, writeErrors
}

func (t *IngestSourceTask) setState(state State) {
	t.mu.Lock()
	t.run.State = state
	t.mu.Unlock()
}

// fail moves the source to failed, remembering the state it failed in.
// A failure after the task already finished is ignored.
func (t *IngestSourceTask) fail(err error) error {
	t.mu.Lock()
	if t.run.State.Terminal() {
		t.mu.Unlock()
		return err
	}
	failedIn := t.run.State
	t.run.FailedIn = failedIn
	t.run.State = StateFailed
	t.run.Error = err.Error()
	t.run.Duration = t.GetDuration()
	t.mu.Unlock()

	attrs := []any{"source", t.SourceName, "kind", t.Source.Kind.String(), "state", string(failedIn), "error", err}
	if status := fetcher.StatusOf(err); status != 0 {
		attrs = append(attrs, "status", status)
	}
	slog.Error("Source failed", attrs...)

	return err
}

// Run returns a snapshot of the source's progress.
func (t *IngestSourceTask) Run() SourceRun {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.run
}
