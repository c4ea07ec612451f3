package handler

import (
	"net/http"

	"github.com/careloop/healthpulse/internal/service"
	"github.com/careloop/healthpulse/pkg/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SignalHandler implements the signal ingestion endpoints
type SignalHandler struct {
	service *service.SignalService
	logger  *zap.Logger
}

// NewSignalHandler creates a new SignalHandler
func NewSignalHandler(service *service.SignalService, logger *zap.Logger) *SignalHandler {
	return &SignalHandler{
		service: service,
		logger:  logger,
	}
}

// RecordSignal ingests a new signal and triggers a score recalculation
func (h *SignalHandler) RecordSignal(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	var signal model.Signal
	if err := c.ShouldBindJSON(&signal); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	if err := h.service.Record(c.Request.Context(), id, &signal); err != nil {
		h.logger.Error("failed to record signal",
			zap.Error(err),
			zap.String("patient_id", id),
		)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Failed to record signal",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusCreated, signal)
}

// GetSignals lists a patient's active signals for a category within a window
func (h *SignalHandler) GetSignals(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	category := model.SignalCategory(c.Query("category"))
	if category == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Signal category is required",
		})
		return
	}

	start, end, err := queryDateRange(c, 7)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid date format, expected YYYY-MM-DD",
			Details: stringPtr(err.Error()),
		})
		return
	}

	signals, err := h.service.GetSignals(c.Request.Context(), id, category, start, end)
	if err != nil {
		h.logger.Error("failed to get signals",
			zap.Error(err),
			zap.String("patient_id", id),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to get signals",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"signals": signals,
		"count":   len(signals),
	})
}
