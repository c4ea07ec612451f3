package handler

import (
	"net/http"

	"github.com/careloop/healthpulse/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AnalysisHandler implements the analysis endpoints
type AnalysisHandler struct {
	service *service.AnalysisService
	logger  *zap.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler
func NewAnalysisHandler(service *service.AnalysisService, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service: service,
		logger:  logger,
	}
}

// RunAnalysis triggers a full analysis run for the patient
func (h *AnalysisHandler) RunAnalysis(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	result, err := h.service.RunAnalysis(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("analysis run failed",
			zap.Error(err),
			zap.String("patient_id", id),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to run analysis",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetVitalTrends returns the vitals analysis alone
func (h *AnalysisHandler) GetVitalTrends(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	result, err := h.service.AnalyzeVitalTrends(c.Request.Context(), id, queryInt(c, "window_days", 0))
	if err != nil {
		h.logger.Error("failed to analyze vital trends",
			zap.Error(err),
			zap.String("patient_id", id),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to analyze vital trends",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSymptomPatterns returns the symptom analysis alone
func (h *AnalysisHandler) GetSymptomPatterns(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	result, err := h.service.AnalyzeSymptomPatterns(c.Request.Context(), id, queryInt(c, "window_days", 0))
	if err != nil {
		h.logger.Error("failed to analyze symptom patterns",
			zap.Error(err),
			zap.String("patient_id", id),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to analyze symptom patterns",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetMoodTrends returns the mood analysis alone
func (h *AnalysisHandler) GetMoodTrends(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	result, err := h.service.AnalyzeMoodTrends(c.Request.Context(), id, queryInt(c, "window_days", 0))
	if err != nil {
		h.logger.Error("failed to analyze mood trends",
			zap.Error(err),
			zap.String("patient_id", id),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to analyze mood trends",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetScoreTrends returns the score-history analysis alone
func (h *AnalysisHandler) GetScoreTrends(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	result, err := h.service.AnalyzeHealthScoreTrends(c.Request.Context(), id, queryInt(c, "window_days", 0))
	if err != nil {
		h.logger.Error("failed to analyze score trends",
			zap.Error(err),
			zap.String("patient_id", id),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to analyze score trends",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
