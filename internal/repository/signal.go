package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/careloop/healthpulse/pkg/model"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// SignalRepository manages the append-mostly signal ledger. The analytics
// engine only reads from it; writes come from the ingestion path.
type SignalRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewSignalRepository creates a new SignalRepository
func NewSignalRepository(db *pgxpool.Pool, logger *zap.Logger) *SignalRepository {
	return &SignalRepository{
		db:     db,
		logger: logger,
	}
}

// Save persists a new signal with its category payload stored as JSONB
func (r *SignalRepository) Save(ctx context.Context, signal *model.Signal) error {
	payload, err := marshalPayload(signal)
	if err != nil {
		return fmt.Errorf("failed to marshal signal payload: %w", err)
	}

	query := `
		INSERT INTO signals (
			id, patient_id, category, recorded_at,
			source, is_active, payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	_, err = r.db.Exec(ctx, query,
		signal.ID,
		signal.PatientID,
		signal.Category,
		signal.RecordedAt,
		signal.Source,
		signal.IsActive,
		payload,
	)

	if err != nil {
		r.logger.Error("failed to save signal",
			zap.Error(err),
			zap.String("patient_id", signal.PatientID),
			zap.String("category", string(signal.Category)),
		)
		return fmt.Errorf("failed to save signal: %w", err)
	}

	return nil
}

// GetActiveSignals retrieves active signals for a patient filtered by category
// within [start, end], ordered by recorded_at ascending
func (r *SignalRepository) GetActiveSignals(ctx context.Context, patientID string, category model.SignalCategory, start, end time.Time) ([]model.Signal, error) {
	query := `
		SELECT
			id, patient_id, category, recorded_at,
			source, is_active, payload, created_at
		FROM signals
		WHERE patient_id = $1 AND category = $2
			AND is_active = TRUE
			AND recorded_at >= $3 AND recorded_at <= $4
		ORDER BY recorded_at ASC
	`

	rows, err := r.db.Query(ctx, query, patientID, category, start, end)
	if err != nil {
		r.logger.Error("failed to get signals", zap.Error(err), zap.String("patient_id", patientID))
		return nil, fmt.Errorf("failed to get signals: %w", err)
	}
	defer rows.Close()

	var signals []model.Signal
	for rows.Next() {
		var signal model.Signal
		var payload []byte
		err := rows.Scan(
			&signal.ID,
			&signal.PatientID,
			&signal.Category,
			&signal.RecordedAt,
			&signal.Source,
			&signal.IsActive,
			&payload,
			&signal.CreatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan signal", zap.Error(err))
			continue
		}
		if err := unmarshalPayload(&signal, payload); err != nil {
			r.logger.Error("failed to decode signal payload",
				zap.Error(err),
				zap.String("signal_id", signal.ID),
			)
			continue
		}
		signals = append(signals, signal)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating signals", zap.Error(err))
		return nil, fmt.Errorf("error iterating signals: %w", err)
	}

	return signals, nil
}

// GetPatientsWithSignalsSince returns distinct patient IDs with active signals
// recorded after the cutoff. Used by the periodic evaluation scheduler.
func (r *SignalRepository) GetPatientsWithSignalsSince(ctx context.Context, since time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT patient_id
		FROM signals
		WHERE is_active = TRUE AND recorded_at >= $1
	`

	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		r.logger.Error("failed to get patients with recent signals", zap.Error(err))
		return nil, fmt.Errorf("failed to get patients with recent signals: %w", err)
	}
	defer rows.Close()

	var patientIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			r.logger.Error("failed to scan patient id", zap.Error(err))
			continue
		}
		patientIDs = append(patientIDs, id)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating patient ids", zap.Error(err))
		return nil, fmt.Errorf("error iterating patient ids: %w", err)
	}

	return patientIDs, nil
}

// marshalPayload serializes the populated category payload
func marshalPayload(signal *model.Signal) ([]byte, error) {
	switch signal.Category {
	case model.SignalCategorySymptom:
		return json.Marshal(signal.Symptom)
	case model.SignalCategoryMood:
		return json.Marshal(signal.Mood)
	case model.SignalCategoryLifestyle:
		return json.Marshal(signal.Lifestyle)
	case model.SignalCategoryVitals:
		return json.Marshal(signal.Vitals)
	default:
		return nil, fmt.Errorf("unknown signal category: %s", signal.Category)
	}
}

// unmarshalPayload decodes the JSONB payload into the variant matching the
// signal's category
func unmarshalPayload(signal *model.Signal, payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("empty payload for category %s", signal.Category)
	}
	switch signal.Category {
	case model.SignalCategorySymptom:
		signal.Symptom = &model.SymptomPayload{}
		return json.Unmarshal(payload, signal.Symptom)
	case model.SignalCategoryMood:
		signal.Mood = &model.MoodPayload{}
		return json.Unmarshal(payload, signal.Mood)
	case model.SignalCategoryLifestyle:
		signal.Lifestyle = &model.LifestylePayload{}
		return json.Unmarshal(payload, signal.Lifestyle)
	case model.SignalCategoryVitals:
		signal.Vitals = &model.VitalsPayload{}
		return json.Unmarshal(payload, signal.Vitals)
	default:
		return fmt.Errorf("unknown signal category: %s", signal.Category)
	}
}
