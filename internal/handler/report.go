package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/careloop/healthpulse/internal/repository"
	"github.com/careloop/healthpulse/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReportHandler implements the analysis report endpoints
type ReportHandler struct {
	service *service.ReportService
	logger  *zap.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(service *service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger,
	}
}

// generateReportRequest is the body for report generation
type generateReportRequest struct {
	PatientName string `json:"patient_name"`
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date" binding:"required"`
}

// GenerateReport renders the patient's analysis to PDF and stores it
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	var req generateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid start_date, expected YYYY-MM-DD",
			Details: stringPtr(err.Error()),
		})
		return
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid end_date, expected YYYY-MM-DD",
			Details: stringPtr(err.Error()),
		})
		return
	}

	reportID, err := h.service.GenerateReport(c.Request.Context(), id, req.PatientName, startDate, endDate)
	if err != nil {
		h.logger.Error("failed to generate report",
			zap.Error(err),
			zap.String("patient_id", id),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to generate report",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"report_id": reportID,
	})
}

// DownloadReport streams a generated report PDF
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	reportID := c.Param("id")
	pdfBytes, err := h.service.GetReport(c.Request.Context(), reportID, id)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Code:    "NOT_FOUND",
				Message: "Report not found",
			})
			return
		}
		h.logger.Error("failed to download report",
			zap.Error(err),
			zap.String("report_id", reportID),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to download report",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=report-%s.pdf", reportID))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
