package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/lysyi3m/rune-reader/app/database"
	"github.com/lysyi3m/rune-reader/app/feed"
)

var (
	ErrRunInProgress = errors.New("ingestion run already in progress")
	ErrNotStarted    = errors.New("scheduler is not started")
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	DefaultWorkerCount = 5
	taskTimeout        = 5 * time.Minute
	queueSize          = 300
)

type Options struct {
	WorkerCount int
	// CronSpec is a standard five-field cron expression. Empty disables
	// scheduled runs.
	CronSpec   string
	RunOnStart bool
	Sink       feed.DiagnosticSink
}

type queuedTask struct {
	task TaskInterface
	done func()
}

type Scheduler struct {
	catalog     BoardCatalog
	adapters    AdapterProvider
	boardRepo   database.BoardRepository
	feedRepo    database.FeedRepository
	articleRepo database.ArticleRepository
	sink        feed.DiagnosticSink
	workerCount int
	cronSpec    string
	runOnStart  bool
	cron        *cron.Cron
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan queuedTask
	started     atomic.Bool
	running     atomic.Bool
	mu          sync.RWMutex
	last        *RunReport
}

func NewScheduler(catalog BoardCatalog, adapters AdapterProvider, boardRepo database.BoardRepository,
	feedRepo database.FeedRepository, articleRepo database.ArticleRepository, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	workerCount := opts.WorkerCount
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}

	return &Scheduler{
		catalog:     catalog,
		adapters:    adapters,
		boardRepo:   boardRepo,
		feedRepo:    feedRepo,
		articleRepo: articleRepo,
		sink:        opts.Sink,
		workerCount: workerCount,
		cronSpec:    opts.CronSpec,
		runOnStart:  opts.RunOnStart,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan queuedTask, queueSize),
	}
}

// Start launches the worker pool and, when configured, the cron trigger.
func (s *Scheduler) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	if s.cronSpec != "" {
		s.cron = cron.New()
		_, err := s.cron.AddFunc(s.cronSpec, func() {
			if _, err := s.Trigger(); err != nil {
				slog.Warn("Scheduled run skipped", "error", err)
			}
		})
		if err != nil {
			slog.Error("Invalid cron spec, scheduled runs disabled", "cron", s.cronSpec, "error", err)
			s.cron = nil
		} else {
			s.cron.Start()
			slog.Debug("Cron trigger started", "cron", s.cronSpec)
		}
	}

	if s.runOnStart {
		if _, err := s.Trigger(); err != nil {
			slog.Warn("Startup run skipped", "error", err)
		}
	}
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.cancel()
	s.wg.Wait()
}

// RunOnce performs a full ingestion run and waits for it to finish.
func (s *Scheduler) RunOnce(ctx context.Context) (*RunReport, error) {
	if !s.started.Load() {
		return nil, ErrNotStarted
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	return s.run(ctx, uuid.NewString())
}

// Trigger starts a run in the background and returns its ID.
func (s *Scheduler) Trigger() (string, error) {
	if !s.started.Load() {
		return "", ErrNotStarted
	}
	if !s.running.CompareAndSwap(false, true) {
		return "", ErrRunInProgress
	}

	id := uuid.NewString()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		if _, err := s.run(s.ctx, id); err != nil {
			slog.Error("Ingestion run failed", "run", id, "error", err)
		}
	}()

	return id, nil
}

func (s *Scheduler) Running() bool {
	return s.running.Load()
}

func (s *Scheduler) LastReport() *RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *Scheduler) run(ctx context.Context, id string) (*RunReport, error) {
	report := &RunReport{ID: id, StartedAt: time.Now().UTC()}
	slog.Info("Ingestion run started", "run", id)

	if err := s.catalog.Run(); err != nil {
		slog.Warn("Failed to reload board catalog, using the last good one", "error", err)
	}
	boards := s.catalog.GetBoards()
	report.Boards = len(boards)

	syncTask := NewSyncBoardsTask(boards, s.boardRepo)
	syncTask.Start()
	if err := syncTask.Execute(ctx); err != nil {
		slog.Warn("Board sync incomplete", "run", id, "error", err)
	}
	stored := syncTask.Stored()

	var ingestTasks []*IngestSourceTask
	for _, board := range boards {
		for _, src := range board.Sources {
			ingestTasks = append(ingestTasks, NewIngestSourceTask(src, stored[board.Slug], s.adapters, s.feedRepo, s.articleRepo, s.sink))
		}
	}

	var pending sync.WaitGroup
	var runErr error
	for _, task := range ingestTasks {
		pending.Add(1)
		if err := s.submit(ctx, task, pending.Done); err != nil {
			pending.Done()
			runErr = err
			break
		}
	}

	finished := make(chan struct{})
	go func() {
		pending.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-ctx.Done():
		runErr = ctx.Err()
	case <-s.ctx.Done():
		runErr = s.ctx.Err()
	}

	for _, task := range ingestTasks {
		sourceRun := task.Run()
		if !sourceRun.State.Terminal() {
			sourceRun.FailedIn = sourceRun.State
			sourceRun.State = StateFailed
			sourceRun.Error = "run cancelled"
		}
		report.Sources = append(report.Sources, sourceRun)
	}
	report.FinishedAt = time.Now().UTC()
	report.tally()

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	slog.Info("Ingestion run completed",
		"run", id,
		"duration", report.Duration(),
		"boards", report.Boards,
		"sources", len(report.Sources),
		"done", report.Done,
		"failed", report.Failed,
		"new", report.Created)

	if runErr != nil {
		return report, fmt.Errorf("ingestion run interrupted: %w", runErr)
	}
	return report, nil
}

// EnqueueTask queues a task without waiting for room in the queue.
func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- queuedTask{task: task, done: func() {}}:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) submit(ctx context.Context, task TaskInterface, done func()) error {
	select {
	case s.taskQueue <- queuedTask{task: task, done: done}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case queued := <-s.taskQueue:
			s.executeTask(id, queued)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, queued queuedTask) {
	defer queued.done()

	task := queued.task
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		slog.Debug("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "source", task.GetSourceName(), "error", err)
	}
}
