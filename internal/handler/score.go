package handler

import (
	"net/http"

	"github.com/careloop/healthpulse/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ScoreHandler implements the health score endpoints
type ScoreHandler struct {
	service *service.HealthScoreService
	logger  *zap.Logger
}

// NewScoreHandler creates a new ScoreHandler
func NewScoreHandler(service *service.HealthScoreService, logger *zap.Logger) *ScoreHandler {
	return &ScoreHandler{
		service: service,
		logger:  logger,
	}
}

// GetCurrentScore returns the patient's most recent score record
func (h *ScoreHandler) GetCurrentScore(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	score, err := h.service.GetCurrent(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("failed to get current score",
			zap.Error(err),
			zap.String("patient_id", id),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to get current score",
			Details: stringPtr(err.Error()),
		})
		return
	}
	if score == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "No score has been calculated yet",
		})
		return
	}

	c.JSON(http.StatusOK, score)
}

// GetScoreHistory returns score records in a window, oldest first
func (h *ScoreHandler) GetScoreHistory(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	start, end, err := queryDateRange(c, 30)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid date format, expected YYYY-MM-DD",
			Details: stringPtr(err.Error()),
		})
		return
	}

	scores, err := h.service.GetHistory(c.Request.Context(), id, start, end)
	if err != nil {
		h.logger.Error("failed to get score history",
			zap.Error(err),
			zap.String("patient_id", id),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to get score history",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scores": scores,
		"count":  len(scores),
	})
}

// RecalculateScore forces a fresh score computation
func (h *ScoreHandler) RecalculateScore(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	score, err := h.service.Recalculate(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("failed to recalculate score",
			zap.Error(err),
			zap.String("patient_id", id),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to recalculate score",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, score)
}
