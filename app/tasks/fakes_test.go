package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lysyi3m/rune-reader/app/database"
	"github.com/lysyi3m/rune-reader/app/feed"
)

// fakeAdapter serves canned results keyed by source endpoint.
type fakeAdapter struct {
	results  map[string]*feed.Result
	fetchErr map[string]error
	parseErr map[string]error
	delay    time.Duration
	block    chan struct{}
	entered  chan struct{}

	active    atomic.Int32
	maxActive atomic.Int32
	fetched   atomic.Int32
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		results:  map[string]*feed.Result{},
		fetchErr: map[string]error{},
		parseErr: map[string]error{},
	}
}

func (a *fakeAdapter) Kind() feed.Kind {
	return feed.KindSyndication
}

func (a *fakeAdapter) Fetch(ctx context.Context, src feed.Source) (*feed.Payload, error) {
	a.fetched.Add(1)
	n := a.active.Add(1)
	defer a.active.Add(-1)
	for {
		peak := a.maxActive.Load()
		if n <= peak || a.maxActive.CompareAndSwap(peak, n) {
			break
		}
	}

	if a.entered != nil {
		select {
		case a.entered <- struct{}{}:
		default:
		}
	}
	if a.block != nil {
		select {
		case <-a.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.delay > 0 {
		time.Sleep(a.delay)
	}

	if err := a.fetchErr[src.Endpoint]; err != nil {
		return nil, err
	}
	return &feed.Payload{Body: []byte("payload:" + src.Endpoint)}, nil
}

func (a *fakeAdapter) Parse(ctx context.Context, src feed.Source, payload *feed.Payload) (*feed.Result, error) {
	if err := a.parseErr[src.Endpoint]; err != nil {
		return nil, err
	}
	if result, ok := a.results[src.Endpoint]; ok {
		return result, nil
	}
	return &feed.Result{Descriptor: feed.Descriptor{Title: src.Title, FeedURL: src.Endpoint}}, nil
}

type fakeProvider struct {
	adapter feed.Adapter
}

func (p fakeProvider) AdapterFor(kind feed.Kind) (feed.Adapter, error) {
	if kind == feed.KindMessages {
		return nil, fmt.Errorf("no adapter for %s", kind)
	}
	return p.adapter, nil
}

type fakeCatalog struct {
	boards []feed.Board
	err    error
	runs   atomic.Int32
}

func (c *fakeCatalog) Run() error {
	c.runs.Add(1)
	return c.err
}

func (c *fakeCatalog) GetBoards() []feed.Board {
	return c.boards
}

type fakeSink struct {
	mu    sync.Mutex
	dumps []string
}

func (s *fakeSink) Dump(src feed.Source, payload *feed.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dumps = append(s.dumps, src.Name()+"="+string(payload.Body))
}

// memStore implements the three repositories in memory.
type memStore struct {
	mu           sync.Mutex
	nextID       int64
	boards       map[string]*database.Board
	feeds        map[string]*database.Feed
	articles     map[string]*database.Article
	failBoard    string
	failFeedURL  string
	failArticles map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		boards:       map[string]*database.Board{},
		feeds:        map[string]*database.Feed{},
		articles:     map[string]*database.Article{},
		failArticles: map[string]bool{},
	}
}

var (
	_ database.BoardRepository   = (*memStore)(nil)
	_ database.FeedRepository    = (*memStore)(nil)
	_ database.ArticleRepository = (*memStore)(nil)
)

var errStore = errors.New("store unavailable")

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) UpsertBoard(ctx context.Context, title, slug string) (*database.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slug == m.failBoard {
		return nil, errStore
	}
	if b, ok := m.boards[slug]; ok {
		b.Title = title
		return b, nil
	}
	b := &database.Board{ID: m.id(), Title: title, Slug: slug}
	m.boards[slug] = b
	return b, nil
}

func (m *memStore) GetBoardCount(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.boards), nil
}

func (m *memStore) UpsertFeed(ctx context.Context, in database.FeedInput, board *database.Board) (*database.Feed, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in.FeedURL == m.failFeedURL {
		return nil, false, errStore
	}
	if f, ok := m.feeds[in.FeedURL]; ok {
		return f, false, nil
	}
	f := &database.Feed{ID: m.id(), Title: in.Title, Slug: in.Slug, Subtitle: in.Subtitle, SiteURL: in.SiteURL, FeedURL: in.FeedURL, BoardID: board.ID}
	m.feeds[in.FeedURL] = f
	return f, true, nil
}

func (m *memStore) GetFeedByURL(ctx context.Context, feedURL string) (*database.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.feeds[feedURL], nil
}

func (m *memStore) GetFeedCount(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.feeds), nil
}

func (m *memStore) UpsertArticle(ctx context.Context, in database.ArticleInput, f *database.Feed) (*database.Article, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failArticles[in.Slug] {
		return nil, false, errStore
	}
	if a, ok := m.articles[in.Slug]; ok {
		return a, false, nil
	}
	a := &database.Article{ID: m.id(), Title: in.Title, Slug: in.Slug, Description: in.Body, URL: in.URL, PublishedAt: in.PublishedAt, Thumbnail: in.ThumbnailURL, FeedID: f.ID}
	m.articles[in.Slug] = a
	return a, true, nil
}

func (m *memStore) GetArticleBySlug(ctx context.Context, slug string) (*database.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.articles[slug], nil
}

func (m *memStore) GetArticleCount(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.articles), nil
}

func (m *memStore) GetArticleCountByFeed(ctx context.Context, feedID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, a := range m.articles {
		if a.FeedID == feedID {
			count++
		}
	}
	return count, nil
}
