package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/careloop/healthpulse/pkg/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrAlertNotFound is returned when an alert does not exist, is not owned by
// the requesting patient, or is no longer in a transitionable state
var ErrAlertNotFound = errors.New("Alert not found")

// ActiveAlertFilter narrows active-alert reads
type ActiveAlertFilter struct {
	Limit    int
	Types    []model.AlertType
	Severity *model.AlertSeverity
}

// AlertRepository manages alert lifecycle records. A partial unique index on
// (patient_id, fingerprint) for active rows makes candidate dedup atomic.
type AlertRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewAlertRepository creates a new AlertRepository
func NewAlertRepository(db *pgxpool.Pool, logger *zap.Logger) *AlertRepository {
	return &AlertRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new active alert. Returns false without error when an
// active alert with the same fingerprint already exists for the patient, so
// concurrent evaluation runs cannot double-persist.
func (r *AlertRepository) Create(ctx context.Context, alert *model.HealthAlert) (bool, error) {
	dataPoints, err := json.Marshal(alert.Context.DataPoints)
	if err != nil {
		return false, fmt.Errorf("failed to marshal alert data points: %w", err)
	}

	query := `
		INSERT INTO health_alerts (
			id, patient_id, type, severity, title, message,
			metric, current_value, expected_range, data_points,
			recommendations, fingerprint, status,
			expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		ON CONFLICT (patient_id, fingerprint) WHERE status = 'active' DO NOTHING
	`

	result, err := r.db.Exec(ctx, query,
		alert.ID,
		alert.PatientID,
		alert.Type,
		alert.Severity,
		alert.Title,
		alert.Message,
		alert.Context.Metric,
		alert.Context.CurrentValue,
		alert.Context.ExpectedRange,
		dataPoints,
		alert.Recommendations,
		alert.Fingerprint,
		alert.Status,
		alert.ExpiresAt,
	)

	if err != nil {
		r.logger.Error("failed to create alert",
			zap.Error(err),
			zap.String("patient_id", alert.PatientID),
			zap.String("type", string(alert.Type)),
		)
		return false, fmt.Errorf("failed to create alert: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// HasActiveFingerprint reports whether an unexpired active alert with the
// fingerprint exists for the patient. Used as a cheap pre-filter before the
// atomic insert.
func (r *AlertRepository) HasActiveFingerprint(ctx context.Context, patientID, fingerprint string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM health_alerts
			WHERE patient_id = $1 AND fingerprint = $2
				AND status = 'active' AND expires_at > NOW()
		)
	`

	var exists bool
	err := r.db.QueryRow(ctx, query, patientID, fingerprint).Scan(&exists)
	if err != nil {
		r.logger.Error("failed to check alert fingerprint",
			zap.Error(err),
			zap.String("patient_id", patientID),
			zap.String("fingerprint", fingerprint),
		)
		return false, fmt.Errorf("failed to check alert fingerprint: %w", err)
	}

	return exists, nil
}

// expireOverdue lazily flips overdue active alerts to expired. There is no
// background sweep; expiry happens at read time.
func (r *AlertRepository) expireOverdue(ctx context.Context, patientID string) error {
	query := `
		UPDATE health_alerts
		SET status = 'expired', updated_at = NOW()
		WHERE patient_id = $1 AND status = 'active' AND expires_at <= NOW()
	`

	if _, err := r.db.Exec(ctx, query, patientID); err != nil {
		r.logger.Error("failed to expire overdue alerts",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		return fmt.Errorf("failed to expire overdue alerts: %w", err)
	}
	return nil
}

const alertColumns = `
	id, patient_id, type, severity, title, message,
	metric, current_value, expected_range, data_points,
	recommendations, fingerprint, status,
	feedback_helpful, feedback_comment,
	expires_at, created_at, updated_at
`

// GetActive retrieves unexpired active alerts for a patient, most severe and
// newest first, after lazily expiring overdue rows
func (r *AlertRepository) GetActive(ctx context.Context, patientID string, filter ActiveAlertFilter) ([]model.HealthAlert, error) {
	if err := r.expireOverdue(ctx, patientID); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + alertColumns + `
		FROM health_alerts
		WHERE patient_id = $1 AND status = 'active'
	`
	args := []any{patientID}

	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		args = append(args, types)
		query += fmt.Sprintf(" AND type = ANY($%d)", len(args))
	}
	if filter.Severity != nil {
		args = append(args, string(*filter.Severity))
		query += fmt.Sprintf(" AND severity = $%d", len(args))
	}

	query += `
		ORDER BY
			CASE severity
				WHEN 'critical' THEN 0
				WHEN 'high' THEN 1
				WHEN 'medium' THEN 2
				ELSE 3
			END,
			created_at DESC
	`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to get active alerts", zap.Error(err), zap.String("patient_id", patientID))
		return nil, fmt.Errorf("failed to get active alerts: %w", err)
	}
	defer rows.Close()

	return r.collectAlerts(rows)
}

// CountActive returns the number of unexpired active alerts for a patient
func (r *AlertRepository) CountActive(ctx context.Context, patientID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM health_alerts
		WHERE patient_id = $1 AND status = 'active' AND expires_at > NOW()
	`

	var count int
	if err := r.db.QueryRow(ctx, query, patientID).Scan(&count); err != nil {
		r.logger.Error("failed to count active alerts", zap.Error(err), zap.String("patient_id", patientID))
		return 0, fmt.Errorf("failed to count active alerts: %w", err)
	}
	return count, nil
}

// GetHistory retrieves a page of alerts for a patient, newest first,
// optionally filtered by status
func (r *AlertRepository) GetHistory(ctx context.Context, patientID string, page, limit int, status *model.AlertStatus) ([]model.HealthAlert, model.Pagination, error) {
	if err := r.expireOverdue(ctx, patientID); err != nil {
		return nil, model.Pagination{}, err
	}

	countQuery := `SELECT COUNT(*) FROM health_alerts WHERE patient_id = $1`
	listQuery := `
		SELECT ` + alertColumns + `
		FROM health_alerts
		WHERE patient_id = $1
	`
	countArgs := []any{patientID}
	if status != nil {
		countArgs = append(countArgs, string(*status))
		countQuery += " AND status = $2"
		listQuery += " AND status = $2"
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		r.logger.Error("failed to count alert history", zap.Error(err), zap.String("patient_id", patientID))
		return nil, model.Pagination{}, fmt.Errorf("failed to count alert history: %w", err)
	}

	offset := (page - 1) * limit
	listArgs := append(countArgs, limit, offset)
	listQuery += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(listArgs)-1, len(listArgs))

	rows, err := r.db.Query(ctx, listQuery, listArgs...)
	if err != nil {
		r.logger.Error("failed to get alert history", zap.Error(err), zap.String("patient_id", patientID))
		return nil, model.Pagination{}, fmt.Errorf("failed to get alert history: %w", err)
	}
	defer rows.Close()

	alerts, err := r.collectAlerts(rows)
	if err != nil {
		return nil, model.Pagination{}, err
	}

	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	pagination := model.Pagination{
		Page:       page,
		Limit:      limit,
		TotalItems: total,
		TotalPages: totalPages,
	}

	return alerts, pagination, nil
}

// GetByID retrieves one alert owned by the patient
func (r *AlertRepository) GetByID(ctx context.Context, alertID, patientID string) (*model.HealthAlert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM health_alerts
		WHERE id = $1 AND patient_id = $2
	`

	rows, err := r.db.Query(ctx, query, alertID, patientID)
	if err != nil {
		r.logger.Error("failed to get alert", zap.Error(err), zap.String("alert_id", alertID))
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	defer rows.Close()

	alerts, err := r.collectAlerts(rows)
	if err != nil {
		return nil, err
	}
	if len(alerts) == 0 {
		return nil, ErrAlertNotFound
	}
	return &alerts[0], nil
}

// Transition moves an active alert to acknowledged or dismissed and returns
// the updated record. Returns ErrAlertNotFound when the alert is absent, not
// owned by the patient, or no longer active; terminal states stay terminal.
func (r *AlertRepository) Transition(ctx context.Context, alertID, patientID string, status model.AlertStatus, feedback *model.AlertFeedback) (*model.HealthAlert, error) {
	var helpful *bool
	var comment *string
	if feedback != nil {
		helpful = &feedback.Helpful
		comment = feedback.Comment
	}

	query := `
		UPDATE health_alerts
		SET status = $1, feedback_helpful = $2, feedback_comment = $3, updated_at = NOW()
		WHERE id = $4 AND patient_id = $5 AND status = 'active'
		RETURNING ` + alertColumns

	rows, err := r.db.Query(ctx, query, status, helpful, comment, alertID, patientID)
	if err != nil {
		r.logger.Error("failed to transition alert",
			zap.Error(err),
			zap.String("alert_id", alertID),
			zap.String("status", string(status)),
		)
		return nil, fmt.Errorf("failed to transition alert: %w", err)
	}
	defer rows.Close()

	alerts, err := r.collectAlerts(rows)
	if err != nil {
		return nil, err
	}
	if len(alerts) == 0 {
		return nil, ErrAlertNotFound
	}
	return &alerts[0], nil
}

// collectAlerts scans all alert rows from a result set
func (r *AlertRepository) collectAlerts(rows pgx.Rows) ([]model.HealthAlert, error) {
	var alerts []model.HealthAlert
	for rows.Next() {
		var alert model.HealthAlert
		var dataPoints []byte
		var feedbackHelpful *bool
		var feedbackComment *string
		err := rows.Scan(
			&alert.ID,
			&alert.PatientID,
			&alert.Type,
			&alert.Severity,
			&alert.Title,
			&alert.Message,
			&alert.Context.Metric,
			&alert.Context.CurrentValue,
			&alert.Context.ExpectedRange,
			&dataPoints,
			&alert.Recommendations,
			&alert.Fingerprint,
			&alert.Status,
			&feedbackHelpful,
			&feedbackComment,
			&alert.ExpiresAt,
			&alert.CreatedAt,
			&alert.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan alert", zap.Error(err))
			continue
		}
		if len(dataPoints) > 0 {
			if err := json.Unmarshal(dataPoints, &alert.Context.DataPoints); err != nil {
				r.logger.Error("failed to decode alert data points", zap.Error(err), zap.String("alert_id", alert.ID))
			}
		}
		if feedbackHelpful != nil {
			alert.Feedback = &model.AlertFeedback{
				Helpful: *feedbackHelpful,
				Comment: feedbackComment,
			}
		}
		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating alerts", zap.Error(err))
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}
