package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/rune-reader/app/feed"
	"github.com/lysyi3m/rune-reader/app/fetcher"
)

var testSource = feed.Source{
	Kind:       feed.KindSyndication,
	Endpoint:   "https://example.com/rss",
	Title:      "Example News",
	BoardSlug:  "news",
	BoardTitle: "News",
}

func twoDraftResult() *feed.Result {
	published := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	return &feed.Result{
		Descriptor: feed.Descriptor{
			Title:    "Example News",
			Subtitle: "All the news",
			SiteURL:  "https://example.com",
			FeedURL:  "https://example.com/rss",
		},
		Drafts: []feed.Draft{
			{Title: "First story", Body: "One", URL: "https://example.com/1", PublishedAt: published},
			{Title: "Second story", Body: "Two", URL: "https://example.com/2", PublishedAt: published},
		},
		Skipped: []error{fmt.Errorf("item 2: %w", feed.ErrMissingRequiredField)},
	}
}

func newTestIngestTask(adapter *fakeAdapter, store *memStore, sink feed.DiagnosticSink) *IngestSourceTask {
	board, _ := store.UpsertBoard(context.Background(), "News", "news")
	task := NewIngestSourceTask(testSource, board, fakeProvider{adapter: adapter}, store, store, sink)
	task.Start()
	return task
}

func TestIngestSourceTaskStoresDrafts(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.results[testSource.Endpoint] = twoDraftResult()
	store := newMemStore()

	task := newTestIngestTask(adapter, store, nil)
	require.NoError(t, task.Execute(context.Background()))

	run := task.Run()
	assert.Equal(t, StateDone, run.State)
	assert.Equal(t, "news/example-news", run.Source)
	assert.Equal(t, "syndication", run.Kind)
	assert.Equal(t, 2, run.Created)
	assert.Equal(t, 0, run.Existing)
	assert.Equal(t, 1, run.Skipped)
	assert.Empty(t, run.Error)

	stored, err := store.GetFeedByURL(context.Background(), "https://example.com/rss")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "All the news", stored.Subtitle)
	assert.Equal(t, "example-news", stored.Slug)

	article, err := store.GetArticleBySlug(context.Background(), "first-story")
	require.NoError(t, err)
	require.NotNil(t, article)
	assert.Equal(t, stored.ID, article.FeedID)
	assert.Equal(t, "https://example.com/1", article.URL)
}

func TestIngestSourceTaskSecondRunFindsExisting(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.results[testSource.Endpoint] = twoDraftResult()
	store := newMemStore()

	require.NoError(t, newTestIngestTask(adapter, store, nil).Execute(context.Background()))

	again := newTestIngestTask(adapter, store, nil)
	require.NoError(t, again.Execute(context.Background()))

	run := again.Run()
	assert.Equal(t, StateDone, run.State)
	assert.Equal(t, 0, run.Created)
	assert.Equal(t, 2, run.Existing)

	count, _ := store.GetArticleCount(context.Background())
	assert.Equal(t, 2, count)
	feeds, _ := store.GetFeedCount(context.Background())
	assert.Equal(t, 1, feeds)
}

func TestIngestSourceTaskFetchFailure(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.fetchErr[testSource.Endpoint] = &fetcher.FetchError{URL: testSource.Endpoint, StatusCode: 503}
	store := newMemStore()

	task := newTestIngestTask(adapter, store, nil)
	err := task.Execute(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, fetcher.ErrNetworkFailure))
	assert.Equal(t, 503, fetcher.StatusOf(err))

	run := task.Run()
	assert.Equal(t, StateFailed, run.State)
	assert.Equal(t, StateFetching, run.FailedIn)
	assert.Contains(t, run.Error, "HTTP 503")

	feeds, _ := store.GetFeedCount(context.Background())
	assert.Equal(t, 0, feeds)
}

func TestIngestSourceTaskParseFailure(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.parseErr[testSource.Endpoint] = fmt.Errorf("no channel: %w", feed.ErrMalformedPayload)
	store := newMemStore()

	task := newTestIngestTask(adapter, store, nil)
	err := task.Execute(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, feed.ErrMalformedPayload))

	run := task.Run()
	assert.Equal(t, StateFailed, run.State)
	assert.Equal(t, StateParsing, run.FailedIn)
}

func TestIngestSourceTaskTooLargePayload(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.results[testSource.Endpoint] = &feed.Result{
		Descriptor: feed.Descriptor{Title: "Example News", FeedURL: testSource.Endpoint},
		TooLarge:   true,
	}
	store := newMemStore()

	task := newTestIngestTask(adapter, store, nil)
	require.NoError(t, task.Execute(context.Background()))

	run := task.Run()
	assert.Equal(t, StateDone, run.State)
	assert.True(t, run.TooLarge)
	assert.Equal(t, 0, run.Created)

	feeds, _ := store.GetFeedCount(context.Background())
	assert.Equal(t, 1, feeds)
}

func TestIngestSourceTaskMissingBoard(t *testing.T) {
	adapter := newFakeAdapter()
	store := newMemStore()

	task := NewIngestSourceTask(testSource, nil, fakeProvider{adapter: adapter}, store, store, nil)
	task.Start()
	require.Error(t, task.Execute(context.Background()))

	run := task.Run()
	assert.Equal(t, StateFailed, run.State)
	assert.Equal(t, StatePending, run.FailedIn)
	assert.Equal(t, int32(0), adapter.fetched.Load())
}

func TestIngestSourceTaskFeedWriteFailure(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.results[testSource.Endpoint] = twoDraftResult()
	store := newMemStore()
	store.failFeedURL = testSource.Endpoint

	task := newTestIngestTask(adapter, store, nil)
	require.ErrorIs(t, task.Execute(context.Background()), errStore)

	run := task.Run()
	assert.Equal(t, StateFailed, run.State)
	assert.Equal(t, StateUpserting, run.FailedIn)
}

func TestIngestSourceTaskArticleWriteFailureIsCounted(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.results[testSource.Endpoint] = twoDraftResult()
	store := newMemStore()
	store.failArticles["first-story"] = true

	task := newTestIngestTask(adapter, store, nil)
	require.NoError(t, task.Execute(context.Background()))

	run := task.Run()
	assert.Equal(t, StateDone, run.State)
	assert.Equal(t, 1, run.Created)
	assert.Equal(t, 1, run.WriteErrors)
}

func TestIngestSourceTaskDumpsPayload(t *testing.T) {
	adapter := newFakeAdapter()
	store := newMemStore()
	sink := &fakeSink{}

	task := newTestIngestTask(adapter, store, sink)
	require.NoError(t, task.Execute(context.Background()))

	assert.Equal(t, []string{"news/example-news=payload:https://example.com/rss"}, sink.dumps)
}

func TestIngestSourceTaskCancelledContext(t *testing.T) {
	adapter := newFakeAdapter()
	store := newMemStore()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task := newTestIngestTask(adapter, store, nil)
	require.ErrorIs(t, task.Execute(ctx), context.Canceled)
	assert.Equal(t, StateFailed, task.Run().State)
	assert.Equal(t, int32(0), adapter.fetched.Load())
}

func TestSyncBoardsTaskStoresBoards(t *testing.T) {
	store := newMemStore()
	store.failBoard = "broken"

	task := NewSyncBoardsTask([]feed.Board{
		{Title: "News", Slug: "news"},
		{Title: "Broken", Slug: "broken"},
		{Title: "Games", Slug: "games"},
	}, store)
	task.Start()

	err := task.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3")

	stored := task.Stored()
	assert.Len(t, stored, 2)
	assert.Contains(t, stored, "news")
	assert.Contains(t, stored, "games")
	assert.NotContains(t, stored, "broken")
	assert.Equal(t, TaskTypeSyncBoards, task.GetType())
	assert.NotEmpty(t, task.GetID())
}

func TestNewTaskAssignsUniqueIDs(t *testing.T) {
	a := NewTask(TaskTypeIngestSource, "news/a")
	b := NewTask(TaskTypeIngestSource, "news/a")

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, time.Duration(0), a.GetDuration())

	a.Start()
	assert.NotNil(t, a.StartedAt)
}
