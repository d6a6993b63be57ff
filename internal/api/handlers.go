package api

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"molit/server/internal/database"
	"molit/server/internal/scheduler"
	"molit/server/internal/stats"
)

type Handler struct {
	db        *database.Database
	stats     *stats.Service
	scheduler *scheduler.Scheduler
	logger    *logrus.Logger
}

type StatsQuery struct {
	Name string  `form:"name" binding:"required"`
	Area float64 `form:"area"`
}

func NewHandler(db *database.Database, statsService *stats.Service, sched *scheduler.Scheduler, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:        db,
		stats:     statsService,
		scheduler: sched,
		logger:    logger,
	}
}

// GetComplexStats looks up cached statistics by building name and area.
func (h *Handler) GetComplexStats(c *gin.Context) {
	var query StatsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name query parameter is required"})
		return
	}

	result, err := h.stats.Lookup(query.Name, query.Area)
	if err != nil {
		h.logger.WithError(err).Error("Failed to look up complex stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up complex stats"})
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No statistics for that complex and area"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetMarketTrends serves the monthly mean price and trade count series.
func (h *Handler) GetMarketTrends(c *gin.Context) {
	trends, err := h.db.GetMonthlyTrends()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get market trends")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get market trends"})
		return
	}

	c.JSON(http.StatusOK, trends)
}

// GetRecentTrades serves the most recent transactions with building names.
func (h *Handler) GetRecentTrades(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "10")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 10
	}

	trades, err := h.db.GetRecentTrades(limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get recent trades")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get recent trades"})
		return
	}

	c.JSON(http.StatusOK, trades)
}

// GetRunSummary serves the summary of the most recent ingestion run.
func (h *Handler) GetRunSummary(c *gin.Context) {
	summary := h.scheduler.LastSummary()
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No ingestion run has completed yet"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// TriggerIngest runs one ingestion + aggregation pass and returns its
// summary. The scheduler serializes it against any in-flight run.
func (h *Handler) TriggerIngest(c *gin.Context) {
	summary, err := h.scheduler.RunNow()
	if err != nil {
		h.logger.WithError(err).Error("Failed to run ingestion")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run ingestion"})
		return
	}

	c.JSON(http.StatusOK, summary)
}
