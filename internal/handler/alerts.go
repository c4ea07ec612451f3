package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/careloop/healthpulse/internal/repository"
	"github.com/careloop/healthpulse/internal/service"
	"github.com/careloop/healthpulse/pkg/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AlertHandler implements the alert lifecycle endpoints
type AlertHandler struct {
	service *service.AlertService
	logger  *zap.Logger
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(service *service.AlertService, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{
		service: service,
		logger:  logger,
	}
}

// GetActiveAlerts lists the patient's unexpired active alerts
func (h *AlertHandler) GetActiveAlerts(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	filter := repository.ActiveAlertFilter{
		Limit: queryInt(c, "limit", 0),
	}
	if raw := c.Query("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			filter.Types = append(filter.Types, model.AlertType(strings.TrimSpace(t)))
		}
	}
	if raw := c.Query("severity"); raw != "" {
		severity := model.AlertSeverity(raw)
		filter.Severity = &severity
	}

	alerts, total, err := h.service.GetActiveAlerts(c.Request.Context(), id, filter)
	if err != nil {
		h.logger.Error("failed to get active alerts",
			zap.Error(err),
			zap.String("patient_id", id),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to get active alerts",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"total":  total,
	})
}

// GetAlertHistory lists the patient's alerts across all lifecycle states
func (h *AlertHandler) GetAlertHistory(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)

	var status *model.AlertStatus
	if raw := c.Query("status"); raw != "" {
		s := model.AlertStatus(raw)
		status = &s
	}

	alerts, pagination, err := h.service.GetAlertHistory(c.Request.Context(), id, page, limit, status)
	if err != nil {
		h.logger.Error("failed to get alert history",
			zap.Error(err),
			zap.String("patient_id", id),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to get alert history",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts":     alerts,
		"pagination": pagination,
	})
}

// GetAlert returns a single alert owned by the patient
func (h *AlertHandler) GetAlert(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	alert, err := h.service.GetAlert(c.Request.Context(), c.Param("id"), id)
	if err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Code:    "NOT_FOUND",
				Message: "Alert not found",
			})
			return
		}
		h.logger.Error("failed to get alert",
			zap.Error(err),
			zap.String("alert_id", c.Param("id")),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to get alert",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, alert)
}

// AcknowledgeAlert marks an active alert as seen
func (h *AlertHandler) AcknowledgeAlert(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	alert, err := h.service.AcknowledgeAlert(c.Request.Context(), c.Param("id"), id)
	if err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Code:    "NOT_FOUND",
				Message: "Alert not found or not active",
			})
			return
		}
		h.logger.Error("failed to acknowledge alert",
			zap.Error(err),
			zap.String("alert_id", c.Param("id")),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to acknowledge alert",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, alert)
}

// dismissRequest is the optional body for alert dismissal
type dismissRequest struct {
	Feedback *model.AlertFeedback `json:"feedback"`
}

// DismissAlert removes an active alert from the patient's view
func (h *AlertHandler) DismissAlert(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	var req dismissRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Error("invalid request body", zap.Error(err))
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid request body",
				Details: stringPtr(err.Error()),
			})
			return
		}
	}

	alert, err := h.service.DismissAlert(c.Request.Context(), c.Param("id"), id, req.Feedback)
	if err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Code:    "NOT_FOUND",
				Message: "Alert not found or not active",
			})
			return
		}
		h.logger.Error("failed to dismiss alert",
			zap.Error(err),
			zap.String("alert_id", c.Param("id")),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to dismiss alert",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, alert)
}
