package service

import (
	"context"
	"fmt"
	"time"

	"github.com/careloop/healthpulse/pkg/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SignalStore is the signal persistence interface used by the ingestion path
type SignalStore interface {
	Save(ctx context.Context, signal *model.Signal) error
	GetActiveSignals(ctx context.Context, patientID string, category model.SignalCategory, start, end time.Time) ([]model.Signal, error)
}

// ScoreRecalculator triggers a health score computation after a signal write
type ScoreRecalculator interface {
	Recalculate(ctx context.Context, patientID string) (*model.HealthScore, error)
}

// SignalService handles signal ingestion and windowed reads
type SignalService struct {
	repo   SignalStore
	scores ScoreRecalculator
	logger *zap.Logger
}

// NewSignalService creates a new SignalService
func NewSignalService(repo SignalStore, scores ScoreRecalculator, logger *zap.Logger) *SignalService {
	return &SignalService{
		repo:   repo,
		scores: scores,
		logger: logger,
	}
}

// Record validates and persists a new signal, then triggers a health score
// recalculation for the patient
func (s *SignalService) Record(ctx context.Context, patientID string, signal *model.Signal) error {
	if patientID == "" {
		return fmt.Errorf("patient ID is required")
	}

	if err := validateSignal(signal); err != nil {
		return err
	}

	if signal.ID == "" {
		signal.ID = uuid.New().String()
	}
	signal.PatientID = patientID
	signal.IsActive = true
	if signal.RecordedAt.IsZero() {
		signal.RecordedAt = time.Now()
	}
	if signal.Source == "" {
		signal.Source = "manual"
	}
	signal.CreatedAt = time.Now()

	if err := s.repo.Save(ctx, signal); err != nil {
		s.logger.Error("failed to record signal",
			zap.Error(err),
			zap.String("patient_id", patientID),
			zap.String("category", string(signal.Category)),
		)
		return fmt.Errorf("failed to record signal: %w", err)
	}

	s.logger.Info("signal recorded",
		zap.String("signal_id", signal.ID),
		zap.String("patient_id", patientID),
		zap.String("category", string(signal.Category)),
	)

	// A fresh signal immediately feeds the composite score. A score failure
	// does not roll back the signal write.
	if _, err := s.scores.Recalculate(ctx, patientID); err != nil {
		s.logger.Error("failed to recalculate health score after signal",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		return fmt.Errorf("failed to recalculate health score: %w", err)
	}

	return nil
}

// GetSignals retrieves a patient's active signals for a category within a window
func (s *SignalService) GetSignals(ctx context.Context, patientID string, category model.SignalCategory, start, end time.Time) ([]model.Signal, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient ID is required")
	}
	if start.After(end) {
		return nil, fmt.Errorf("start date must be before or equal to end date")
	}

	signals, err := s.repo.GetActiveSignals(ctx, patientID, category, start, end)
	if err != nil {
		s.logger.Error("failed to get signals",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		return nil, fmt.Errorf("failed to get signals: %w", err)
	}

	return signals, nil
}

// validateSignal enforces the tagged-union invariant: exactly one category
// payload populated, matching the category, with required sub-fields present
func validateSignal(signal *model.Signal) error {
	validCategories := map[model.SignalCategory]bool{
		model.SignalCategorySymptom:   true,
		model.SignalCategoryMood:      true,
		model.SignalCategoryLifestyle: true,
		model.SignalCategoryVitals:    true,
	}
	if !validCategories[signal.Category] {
		return fmt.Errorf("invalid signal category: %s", signal.Category)
	}

	populated := 0
	if signal.Symptom != nil {
		populated++
	}
	if signal.Mood != nil {
		populated++
	}
	if signal.Lifestyle != nil {
		populated++
	}
	if signal.Vitals != nil {
		populated++
	}
	if populated != 1 {
		return fmt.Errorf("exactly one category payload is required, got %d", populated)
	}

	switch signal.Category {
	case model.SignalCategorySymptom:
		if signal.Symptom == nil {
			return fmt.Errorf("symptom payload is required for symptom signals")
		}
		if signal.Symptom.Type == "" {
			return fmt.Errorf("symptom type is required")
		}
		validSeverities := map[model.SymptomSeverity]bool{
			model.SymptomSeverityMild:     true,
			model.SymptomSeverityModerate: true,
			model.SymptomSeveritySevere:   true,
		}
		if !validSeverities[signal.Symptom.Severity] {
			return fmt.Errorf("invalid symptom severity: must be mild, moderate, or severe")
		}
	case model.SignalCategoryMood:
		if signal.Mood == nil {
			return fmt.Errorf("mood payload is required for mood signals")
		}
		validMoods := map[model.MoodType]bool{
			model.MoodGreat: true,
			model.MoodGood:  true,
			model.MoodOkay:  true,
			model.MoodLow:   true,
			model.MoodBad:   true,
		}
		if !validMoods[signal.Mood.Type] {
			return fmt.Errorf("invalid mood type: must be great, good, okay, low, or bad")
		}
		if signal.Mood.StressLevel != nil && (*signal.Mood.StressLevel < 1 || *signal.Mood.StressLevel > 10) {
			return fmt.Errorf("invalid stress level: must be between 1 and 10")
		}
	case model.SignalCategoryLifestyle:
		if signal.Lifestyle == nil {
			return fmt.Errorf("lifestyle payload is required for lifestyle signals")
		}
		l := signal.Lifestyle
		if l.Sleep == nil && l.Activity == nil && l.Hydration == nil && l.Meals == nil {
			return fmt.Errorf("lifestyle payload must contain at least one entry")
		}
	case model.SignalCategoryVitals:
		if signal.Vitals == nil {
			return fmt.Errorf("vitals payload is required for vitals signals")
		}
		v := signal.Vitals
		if v.BloodPressure == nil && v.HeartRate == nil && v.Temperature == nil &&
			v.BloodSugar == nil && v.Weight == nil && v.OxygenSaturation == nil {
			return fmt.Errorf("vitals payload must contain at least one measurement")
		}
	}

	return nil
}
