package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"news_sentiment/internal/domain"
)

type Runner interface {
	Run(ctx context.Context, in domain.QueryInput) (*domain.RunReport, error)
}

type HistoryStore interface {
	Ping(ctx context.Context) error
	History(ctx context.Context, f domain.HistoryFilter) ([]domain.ScoredRecord, error)
	Stats(ctx context.Context, f domain.HistoryFilter) (domain.HistoricalStats, error)
}

// Services is reported by the health endpoint.
type Services struct {
	NewsProvider string
	Classifier   string
	Cache        bool
	Publisher    bool
}

type NewsHandler struct {
	runner   Runner
	history  HistoryStore
	services Services
	logger   *slog.Logger
	now      func() time.Time
}

func NewNewsHandler(runner Runner, history HistoryStore, services Services, logger *slog.Logger) *NewsHandler {
	return &NewsHandler{
		runner:   runner,
		history:  history,
		services: services,
		logger:   logger.With("component", "http"),
		now:      time.Now,
	}
}

func (h *NewsHandler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/news", h.SearchNews)
	api.GET("/news/recent", h.GetRecent)
	api.GET("/news/by-keyword/:keyword", h.GetByKeyword)
	api.GET("/stats", h.GetStats)
	api.GET("/health", h.GetHealth)
}

// SearchNews runs the pipeline for q. A storage failure still returns the computed
// result with storage_failed set.
func (h *NewsHandler) SearchNews(c *gin.Context) {
	days, err := optionalInt(c, "days")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pageSize, err := optionalInt(c, "page_size")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.runner.Run(c.Request.Context(), domain.QueryInput{
		Raw:          c.Query("q"),
		LookbackDays: days,
		MaxResults:   pageSize,
	})
	if err != nil && report == nil {
		h.writeError(c, err)
		return
	}
	if err != nil {
		h.logger.Warn("run returned partial result", "run_id", report.RunID, "error", err)
	}

	c.JSON(http.StatusOK, newRunResponse(report))
}

func (h *NewsHandler) GetRecent(c *gin.Context) {
	records, err := h.history.History(c.Request.Context(), domain.HistoryFilter{Limit: h.queryLimit(c)})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRecordsResponse(records))
}

func (h *NewsHandler) GetByKeyword(c *gin.Context) {
	daysBack := h.queryInt("days_back", 7, c)
	filter := domain.HistoryFilter{
		Keyword: c.Param("keyword"),
		Limit:   h.queryLimit(c),
	}
	if daysBack > 0 {
		filter.From = h.now().AddDate(0, 0, -daysBack)
	}

	records, err := h.history.History(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRecordsResponse(records))
}

func (h *NewsHandler) GetStats(c *gin.Context) {
	daysBack := h.queryInt("days_back", 30, c)
	filter := domain.HistoryFilter{Keyword: c.Query("keyword")}
	if daysBack > 0 {
		filter.From = h.now().AddDate(0, 0, -daysBack)
	}

	stats, err := h.history.Stats(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newStatsResponse(filter.Keyword, daysBack, stats))
}

func (h *NewsHandler) GetHealth(c *gin.Context) {
	services := gin.H{
		"news_provider": h.services.NewsProvider,
		"classifier":    h.services.Classifier,
		"cache":         h.services.Cache,
		"publisher":     h.services.Publisher,
	}

	if err := h.history.Ping(c.Request.Context()); err != nil {
		services["database"] = "disconnected"
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "services": services})
		return
	}

	services["database"] = "connected"
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "services": services})
}

func (h *NewsHandler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrProviderRejected):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrProviderUnavailable), errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// optionalInt returns 0 for a missing parameter so the pipeline applies its default.
func optionalInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid " + name + " parameter")
	}
	return v, nil
}

func (h *NewsHandler) queryInt(name string, defaultValue int, c *gin.Context) int {
	raw := c.Query(name)
	if raw == "" {
		return defaultValue
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		h.logger.Warn("invalid query parameter, using default", "param", name, "value", raw, "error", err)
		return defaultValue
	}
	return v
}

func (h *NewsHandler) queryLimit(c *gin.Context) int {
	const (
		defaultLimit = 10
		maxLimit     = 100
	)

	limit := h.queryInt("limit", defaultLimit, c)
	if limit < 1 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
