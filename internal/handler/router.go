package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Handlers bundles the endpoint handlers for route registration
type Handlers struct {
	Signals  *SignalHandler
	Analysis *AnalysisHandler
	Alerts   *AlertHandler
	Score    *ScoreHandler
	Reports  *ReportHandler
	Pool     *pgxpool.Pool
	Logger   *zap.Logger
}

// Register wires all routes onto the router
func (h *Handlers) Register(r *gin.Engine) {
	r.GET("/health", h.healthCheck)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/signals", h.Signals.RecordSignal)
		v1.GET("/signals", h.Signals.GetSignals)

		v1.POST("/analysis/run", h.Analysis.RunAnalysis)
		v1.GET("/analysis/vitals", h.Analysis.GetVitalTrends)
		v1.GET("/analysis/symptoms", h.Analysis.GetSymptomPatterns)
		v1.GET("/analysis/mood", h.Analysis.GetMoodTrends)
		v1.GET("/analysis/score-trends", h.Analysis.GetScoreTrends)

		v1.GET("/alerts", h.Alerts.GetActiveAlerts)
		v1.GET("/alerts/history", h.Alerts.GetAlertHistory)
		v1.GET("/alerts/:id", h.Alerts.GetAlert)
		v1.POST("/alerts/:id/acknowledge", h.Alerts.AcknowledgeAlert)
		v1.POST("/alerts/:id/dismiss", h.Alerts.DismissAlert)

		v1.GET("/score", h.Score.GetCurrentScore)
		v1.GET("/score/history", h.Score.GetScoreHistory)
		v1.POST("/score/recalculate", h.Score.RecalculateScore)

		v1.POST("/reports/generate", h.Reports.GenerateReport)
		v1.GET("/reports/:id", h.Reports.DownloadReport)
	}
}

// healthCheck reports service and database health
func (h *Handlers) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.Pool.Ping(ctx); err != nil {
		h.Logger.Error("health check failed: database unreachable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "connected",
		"service":  "healthpulse-backend",
		"version":  "1.0.0",
	})
}
