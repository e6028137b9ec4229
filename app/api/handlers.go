package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rune-reader/app/database"
	"github.com/lysyi3m/rune-reader/app/tasks"
)

func NewHandler(catalog Catalog, boardRepo database.BoardRepository, feedRepo database.FeedRepository,
	articleRepo database.ArticleRepository, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		boardRepo:   boardRepo,
		feedRepo:    feedRepo,
		articleRepo: articleRepo,
		catalog:     catalog,
		scheduler:   scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()

	health := map[string]interface{}{
		"timestamp":          time.Now().In(time.Local).Format(time.RFC3339),
		"configured_sources": h.catalog.GetSourceCount(),
		"config_problems":    len(h.catalog.Problems()),
	}

	status := http.StatusOK

	if count, err := h.boardRepo.GetBoardCount(ctx); err == nil {
		health["boards"] = count
	} else {
		slog.Error("Database error", "operation", "count_boards", "error", err)
		status = http.StatusServiceUnavailable
	}

	if count, err := h.feedRepo.GetFeedCount(ctx); err == nil {
		health["feeds"] = count
	} else {
		slog.Error("Database error", "operation", "count_feeds", "error", err)
		status = http.StatusServiceUnavailable
	}

	if count, err := h.articleRepo.GetArticleCount(ctx); err == nil {
		health["articles"] = count
	} else {
		slog.Error("Database error", "operation", "count_articles", "error", err)
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"running":  h.scheduler.Running(),
		"last_run": nil,
	}

	if report := h.scheduler.LastReport(); report != nil {
		stats["last_run"] = summarize(report)
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APITriggerIngest(c *gin.Context) {
	id, err := h.scheduler.Trigger()
	if errors.Is(err, tasks.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Ingestion run already in progress",
			"details": err.Error(),
		})
		return
	}
	if err != nil {
		slog.Error("Error triggering ingestion run", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to start ingestion run",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Ingestion run started",
		"run_id":  id,
	})
}

func (h *Handler) APIGetLastRun(c *gin.Context) {
	report := h.scheduler.LastReport()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No ingestion run has finished yet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary": summarize(report),
		"sources": report.Sources,
	})
}

func summarize(report *tasks.RunReport) runSummary {
	return runSummary{
		ID:         report.ID,
		StartedAt:  report.StartedAt.Format(time.RFC3339),
		FinishedAt: report.FinishedAt.Format(time.RFC3339),
		Duration:   report.Duration().String(),
		Boards:     report.Boards,
		Sources:    len(report.Sources),
		Done:       report.Done,
		Failed:     report.Failed,
		Created:    report.Created,
	}
}
