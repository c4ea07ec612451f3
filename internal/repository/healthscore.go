package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/careloop/healthpulse/pkg/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// HealthScoreRepository manages append-only health score records
type HealthScoreRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewHealthScoreRepository creates a new HealthScoreRepository
func NewHealthScoreRepository(db *pgxpool.Pool, logger *zap.Logger) *HealthScoreRepository {
	return &HealthScoreRepository{
		db:     db,
		logger: logger,
	}
}

// Save persists a new health score record. Records are never updated in
// place; later records supersede earlier ones.
func (r *HealthScoreRepository) Save(ctx context.Context, score *model.HealthScore) error {
	query := `
		INSERT INTO health_scores (
			id, patient_id, score,
			trend_direction, trend_percentage_change,
			symptom_score, mood_score, lifestyle_score, vitals_score, compliance_score,
			summary, insights, period, calculation_method, calculated_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
	`

	_, err := r.db.Exec(ctx, query,
		score.ID,
		score.PatientID,
		score.Score,
		score.Trend.Direction,
		score.Trend.PercentageChange,
		score.Components.SymptomScore,
		score.Components.MoodScore,
		score.Components.LifestyleScore,
		score.Components.VitalsScore,
		score.Components.ComplianceScore,
		score.Summary,
		score.Insights,
		score.Period,
		score.CalculationMethod,
		score.CalculatedAt,
	)

	if err != nil {
		r.logger.Error("failed to save health score",
			zap.Error(err),
			zap.String("patient_id", score.PatientID),
		)
		return fmt.Errorf("failed to save health score: %w", err)
	}

	return nil
}

const healthScoreColumns = `
	id, patient_id, score,
	trend_direction, trend_percentage_change,
	symptom_score, mood_score, lifestyle_score, vitals_score, compliance_score,
	summary, insights, period, calculation_method, calculated_at
`

// GetLatest returns the most recent score record for a patient, or nil when
// the patient has no score history yet
func (r *HealthScoreRepository) GetLatest(ctx context.Context, patientID string) (*model.HealthScore, error) {
	query := `
		SELECT ` + healthScoreColumns + `
		FROM health_scores
		WHERE patient_id = $1
		ORDER BY calculated_at DESC
		LIMIT 1
	`

	var score model.HealthScore
	err := scanHealthScore(r.db.QueryRow(ctx, query, patientID), &score)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("failed to get latest health score",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		return nil, fmt.Errorf("failed to get latest health score: %w", err)
	}

	return &score, nil
}

// GetScoresInWindow retrieves score records within [start, end], ordered by
// calculated_at ascending
func (r *HealthScoreRepository) GetScoresInWindow(ctx context.Context, patientID string, start, end time.Time) ([]model.HealthScore, error) {
	query := `
		SELECT ` + healthScoreColumns + `
		FROM health_scores
		WHERE patient_id = $1 AND calculated_at >= $2 AND calculated_at <= $3
		ORDER BY calculated_at ASC
	`

	rows, err := r.db.Query(ctx, query, patientID, start, end)
	if err != nil {
		r.logger.Error("failed to get health scores", zap.Error(err), zap.String("patient_id", patientID))
		return nil, fmt.Errorf("failed to get health scores: %w", err)
	}
	defer rows.Close()

	var scores []model.HealthScore
	for rows.Next() {
		var score model.HealthScore
		if err := scanHealthScore(rows, &score); err != nil {
			r.logger.Error("failed to scan health score", zap.Error(err))
			continue
		}
		scores = append(scores, score)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating health scores", zap.Error(err))
		return nil, fmt.Errorf("error iterating health scores: %w", err)
	}

	return scores, nil
}

// scanHealthScore scans one health score row in column order
func scanHealthScore(row pgx.Row, score *model.HealthScore) error {
	return row.Scan(
		&score.ID,
		&score.PatientID,
		&score.Score,
		&score.Trend.Direction,
		&score.Trend.PercentageChange,
		&score.Components.SymptomScore,
		&score.Components.MoodScore,
		&score.Components.LifestyleScore,
		&score.Components.VitalsScore,
		&score.Components.ComplianceScore,
		&score.Summary,
		&score.Insights,
		&score.Period,
		&score.CalculationMethod,
		&score.CalculatedAt,
	)
}
