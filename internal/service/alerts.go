package service

import (
	"context"
	"fmt"

	"github.com/careloop/healthpulse/internal/audit"
	"github.com/careloop/healthpulse/internal/repository"
	"github.com/careloop/healthpulse/internal/security"
	"github.com/careloop/healthpulse/pkg/model"
	"go.uber.org/zap"
)

// AlertService manages the patient-facing alert lifecycle: listing,
// acknowledgement and dismissal
type AlertService struct {
	repo      AlertStore
	encryptor *security.Encryptor
	auditor   audit.Recorder
	logger    *zap.Logger
}

// NewAlertService creates a new AlertService
func NewAlertService(repo AlertStore, encryptor *security.Encryptor, auditor audit.Recorder, logger *zap.Logger) *AlertService {
	return &AlertService{
		repo:      repo,
		encryptor: encryptor,
		auditor:   auditor,
		logger:    logger,
	}
}

// GetActiveAlerts returns a patient's unexpired active alerts ordered by
// severity then recency
func (s *AlertService) GetActiveAlerts(ctx context.Context, patientID string, filter repository.ActiveAlertFilter) ([]model.HealthAlert, int, error) {
	if patientID == "" {
		return nil, 0, fmt.Errorf("patient ID is required")
	}

	alerts, err := s.repo.GetActive(ctx, patientID, filter)
	if err != nil {
		s.logger.Error("failed to get active alerts",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		return nil, 0, fmt.Errorf("failed to get active alerts: %w", err)
	}

	total, err := s.repo.CountActive(ctx, patientID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count active alerts: %w", err)
	}

	return alerts, total, nil
}

// GetAlertHistory returns a paginated view of a patient's alerts, optionally
// filtered by lifecycle status, newest first
func (s *AlertService) GetAlertHistory(ctx context.Context, patientID string, page, limit int, status *model.AlertStatus) ([]model.HealthAlert, model.Pagination, error) {
	if patientID == "" {
		return nil, model.Pagination{}, fmt.Errorf("patient ID is required")
	}
	if status != nil {
		valid := map[model.AlertStatus]bool{
			model.AlertStatusActive:       true,
			model.AlertStatusAcknowledged: true,
			model.AlertStatusDismissed:    true,
			model.AlertStatusExpired:      true,
		}
		if !valid[*status] {
			return nil, model.Pagination{}, fmt.Errorf("invalid alert status: %s", *status)
		}
	}

	alerts, pagination, err := s.repo.GetHistory(ctx, patientID, page, limit, status)
	if err != nil {
		s.logger.Error("failed to get alert history",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		return nil, model.Pagination{}, fmt.Errorf("failed to get alert history: %w", err)
	}

	for i := range alerts {
		if err := s.decryptFeedback(&alerts[i]); err != nil {
			s.logger.Warn("failed to decrypt alert feedback",
				zap.Error(err),
				zap.String("alert_id", alerts[i].ID),
			)
		}
	}

	return alerts, pagination, nil
}

// GetAlert returns a single alert owned by the patient
func (s *AlertService) GetAlert(ctx context.Context, alertID, patientID string) (*model.HealthAlert, error) {
	if alertID == "" || patientID == "" {
		return nil, fmt.Errorf("alert ID and patient ID are required")
	}

	alert, err := s.repo.GetByID(ctx, alertID, patientID)
	if err != nil {
		return nil, err
	}
	if err := s.decryptFeedback(alert); err != nil {
		s.logger.Warn("failed to decrypt alert feedback",
			zap.Error(err),
			zap.String("alert_id", alert.ID),
		)
	}
	return alert, nil
}

// AcknowledgeAlert marks an active alert as seen by the patient. The alert
// must currently be active; acknowledging a dismissed, expired or already
// acknowledged alert returns ErrAlertNotFound.
func (s *AlertService) AcknowledgeAlert(ctx context.Context, alertID, patientID string) (*model.HealthAlert, error) {
	if alertID == "" || patientID == "" {
		return nil, fmt.Errorf("alert ID and patient ID are required")
	}

	alert, err := s.repo.Transition(ctx, alertID, patientID, model.AlertStatusAcknowledged, nil)
	if err != nil {
		if err == repository.ErrAlertNotFound {
			return nil, err
		}
		s.logger.Error("failed to acknowledge alert",
			zap.Error(err),
			zap.String("alert_id", alertID),
			zap.String("patient_id", patientID),
		)
		return nil, fmt.Errorf("failed to acknowledge alert: %w", err)
	}

	if err := s.auditor.Record(ctx, audit.Entry{
		PatientID:  patientID,
		Action:     audit.ActionAlertAcknowledge,
		Resource:   audit.ResourceHealthAlert,
		ResourceID: alertID,
	}); err != nil {
		s.logger.Warn("failed to record acknowledge audit entry", zap.Error(err))
	}

	s.logger.Info("alert acknowledged",
		zap.String("alert_id", alertID),
		zap.String("patient_id", patientID),
	)

	return alert, nil
}

// DismissAlert removes an active alert from the patient's view, optionally
// capturing feedback. Free-text comments are encrypted before storage. Only
// active alerts can be dismissed; a second dismissal returns ErrAlertNotFound.
func (s *AlertService) DismissAlert(ctx context.Context, alertID, patientID string, feedback *model.AlertFeedback) (*model.HealthAlert, error) {
	if alertID == "" || patientID == "" {
		return nil, fmt.Errorf("alert ID and patient ID are required")
	}

	stored := feedback
	if feedback != nil && feedback.Comment != nil && *feedback.Comment != "" {
		encrypted, err := s.encryptor.Encrypt(*feedback.Comment)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt feedback comment: %w", err)
		}
		stored = &model.AlertFeedback{Helpful: feedback.Helpful, Comment: &encrypted}
	}

	alert, err := s.repo.Transition(ctx, alertID, patientID, model.AlertStatusDismissed, stored)
	if err != nil {
		if err == repository.ErrAlertNotFound {
			return nil, err
		}
		s.logger.Error("failed to dismiss alert",
			zap.Error(err),
			zap.String("alert_id", alertID),
			zap.String("patient_id", patientID),
		)
		return nil, fmt.Errorf("failed to dismiss alert: %w", err)
	}

	// Return the caller's plaintext, not the stored ciphertext.
	alert.Feedback = feedback

	details := map[string]any{"with_feedback": feedback != nil}
	if feedback != nil {
		details["helpful"] = feedback.Helpful
	}
	if err := s.auditor.Record(ctx, audit.Entry{
		PatientID:  patientID,
		Action:     audit.ActionAlertDismiss,
		Resource:   audit.ResourceHealthAlert,
		ResourceID: alertID,
		Details:    details,
	}); err != nil {
		s.logger.Warn("failed to record dismiss audit entry", zap.Error(err))
	}

	s.logger.Info("alert dismissed",
		zap.String("alert_id", alertID),
		zap.String("patient_id", patientID),
		zap.Bool("with_feedback", feedback != nil),
	)

	return alert, nil
}

// decryptFeedback replaces an encrypted feedback comment with its plaintext
func (s *AlertService) decryptFeedback(alert *model.HealthAlert) error {
	if alert == nil || alert.Feedback == nil || alert.Feedback.Comment == nil {
		return nil
	}
	plaintext, err := s.encryptor.Decrypt(*alert.Feedback.Comment)
	if err != nil {
		return err
	}
	alert.Feedback.Comment = &plaintext
	return nil
}
