package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/careloop/healthpulse/pkg/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScoreStore is the health score persistence interface
type ScoreStore interface {
	Save(ctx context.Context, score *model.HealthScore) error
	GetLatest(ctx context.Context, patientID string) (*model.HealthScore, error)
	GetScoresInWindow(ctx context.Context, patientID string, start, end time.Time) ([]model.HealthScore, error)
}

const (
	// scoreBaseline is the starting score before deductions and modifiers
	scoreBaseline = 100

	// riskPointMultiplier converts symptom risk points into score deduction
	riskPointMultiplier = 10

	// moodImpactCap bounds the total mood modifier to [-cap, +cap]
	moodImpactCap = 15

	// stressPenaltyThreshold is the stress level above which an extra
	// penalty applies
	stressPenaltyThreshold = 7

	// shortSleepHours is the sleep duration below which the lifestyle
	// modifier penalizes
	shortSleepHours = 5.0

	// trendBand is the score delta beyond which the trend leaves stable
	trendBand = 5

	calculationMethod = "baseline-deduction-v1"
)

// redFlagKeywords mark symptom types that carry a clinical risk bonus
var redFlagKeywords = []string{"breath", "chest", "heart"}

// symptomRiskPoints maps severity to base clinical risk points
var symptomRiskPoints = map[model.SymptomSeverity]int{
	model.SymptomSeverityMild:     1,
	model.SymptomSeverityModerate: 2,
	model.SymptomSeveritySevere:   4,
}

// HealthScoreService computes and persists the composite wellbeing score
type HealthScoreService struct {
	signals SignalStore
	scores  ScoreStore
	logger  *zap.Logger
}

// NewHealthScoreService creates a new HealthScoreService
func NewHealthScoreService(signals SignalStore, scores ScoreStore, logger *zap.Logger) *HealthScoreService {
	return &HealthScoreService{
		signals: signals,
		scores:  scores,
		logger:  logger,
	}
}

// Recalculate computes the composite score over the last day of active
// signals, compares it to the previous record and persists a new record.
// The returned score is always within [0,100].
func (s *HealthScoreService) Recalculate(ctx context.Context, patientID string) (*model.HealthScore, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient ID is required")
	}

	now := time.Now()
	start := now.AddDate(0, 0, -1)

	symptoms, err := s.signals.GetActiveSignals(ctx, patientID, model.SignalCategorySymptom, start, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get symptom signals: %w", err)
	}
	moods, err := s.signals.GetActiveSignals(ctx, patientID, model.SignalCategoryMood, start, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get mood signals: %w", err)
	}
	lifestyle, err := s.signals.GetActiveSignals(ctx, patientID, model.SignalCategoryLifestyle, start, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get lifestyle signals: %w", err)
	}

	var insights []string

	// Clinical risk deduction from symptoms. Uncapped: a single severe
	// red-flag symptom already deducts 60 points.
	riskPoints := 0
	redFlag := false
	for _, sig := range symptoms {
		if sig.Symptom == nil {
			continue
		}
		points, ok := symptomRiskPoints[sig.Symptom.Severity]
		if !ok {
			continue
		}
		if isRedFlagSymptom(sig.Symptom.Type) {
			points += 2
			redFlag = true
		}
		riskPoints += points
	}
	riskDeduction := riskPoints * riskPointMultiplier
	raw := float64(scoreBaseline - riskDeduction)
	if redFlag {
		insights = append(insights, "A reported symptom involves breathing, chest or heart and may need prompt attention.")
	}

	// Mood modifier, clamped to the impact cap.
	moodImpact := 0
	highStress := false
	for _, sig := range moods {
		if sig.Mood == nil {
			continue
		}
		switch sig.Mood.Type {
		case model.MoodGreat:
			moodImpact += 5
		case model.MoodGood:
			moodImpact += 2
		case model.MoodBad:
			moodImpact -= 5
		}
		if sig.Mood.StressLevel != nil && *sig.Mood.StressLevel > stressPenaltyThreshold {
			moodImpact -= 5
			highStress = true
		}
	}
	if moodImpact > moodImpactCap {
		moodImpact = moodImpactCap
	}
	if moodImpact < -moodImpactCap {
		moodImpact = -moodImpactCap
	}
	raw += float64(moodImpact)
	if highStress {
		insights = append(insights, "Stress levels have been high; consider winding down before bed.")
	}

	// Lifestyle modifier, uncapped.
	lifestyleImpact := 0
	shortSleep := false
	active := false
	for _, sig := range lifestyle {
		if sig.Lifestyle == nil {
			continue
		}
		if sig.Lifestyle.Sleep != nil && sig.Lifestyle.Sleep.Duration < shortSleepHours {
			shortSleep = true
		}
		if sig.Lifestyle.Activity != nil {
			switch sig.Lifestyle.Activity.Type {
			case "active", "very_active":
				active = true
			}
		}
	}
	if shortSleep {
		lifestyleImpact -= 5
		insights = append(insights, "Sleep under five hours was logged; short sleep weighs on recovery.")
	}
	if active {
		lifestyleImpact += 5
	}
	raw += float64(lifestyleImpact)

	final := int(math.Round(raw))
	if final < 0 {
		final = 0
	}
	if final > 100 {
		final = 100
	}

	previous, err := s.scores.GetLatest(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get previous health score: %w", err)
	}

	trend := model.ScoreTrend{Direction: model.TrendStable}
	if previous != nil {
		delta := final - previous.Score
		if delta > trendBand {
			trend.Direction = model.TrendImproving
		} else if delta < -trendBand {
			trend.Direction = model.TrendDeclining
		}
		if previous.Score != 0 {
			trend.PercentageChange = float64(delta) / float64(previous.Score) * 100
		}
	}

	// Only the symptom component is derived from real data; the remaining
	// components are fixed placeholders carried over from the original
	// scoring model.
	symptomScore := scoreBaseline - riskDeduction
	if symptomScore < 0 {
		symptomScore = 0
	}
	score := &model.HealthScore{
		ID:        uuid.New().String(),
		PatientID: patientID,
		Score:     final,
		Trend:     trend,
		Components: model.ScoreComponents{
			SymptomScore:    symptomScore,
			MoodScore:       80,
			LifestyleScore:  70,
			VitalsScore:     90,
			ComplianceScore: 100,
		},
		Summary:           scoreSummary(final),
		Insights:          insights,
		Period:            model.ScorePeriodDaily,
		CalculationMethod: calculationMethod,
		CalculatedAt:      now,
	}

	if err := s.scores.Save(ctx, score); err != nil {
		s.logger.Error("failed to save health score",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		return nil, fmt.Errorf("failed to save health score: %w", err)
	}

	s.logger.Info("health score calculated",
		zap.String("patient_id", patientID),
		zap.Int("score", final),
		zap.Int("risk_points", riskPoints),
		zap.Int("mood_impact", moodImpact),
		zap.Int("lifestyle_impact", lifestyleImpact),
		zap.String("trend", string(trend.Direction)),
	)

	return score, nil
}

// GetCurrent returns the most recent score record, or nil when none exists
func (s *HealthScoreService) GetCurrent(ctx context.Context, patientID string) (*model.HealthScore, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient ID is required")
	}

	score, err := s.scores.GetLatest(ctx, patientID)
	if err != nil {
		s.logger.Error("failed to get current health score",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		return nil, fmt.Errorf("failed to get current health score: %w", err)
	}
	return score, nil
}

// GetHistory returns score records in [start, end], oldest first
func (s *HealthScoreService) GetHistory(ctx context.Context, patientID string, start, end time.Time) ([]model.HealthScore, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient ID is required")
	}
	if start.After(end) {
		return nil, fmt.Errorf("start date must be before or equal to end date")
	}

	scores, err := s.scores.GetScoresInWindow(ctx, patientID, start, end)
	if err != nil {
		s.logger.Error("failed to get health score history",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		return nil, fmt.Errorf("failed to get health score history: %w", err)
	}
	return scores, nil
}

// isRedFlagSymptom reports whether the symptom type text contains a
// breath/chest/heart keyword
func isRedFlagSymptom(symptomType string) bool {
	lowered := strings.ToLower(symptomType)
	for _, kw := range redFlagKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// scoreSummary maps a final score to a short status string
func scoreSummary(score int) string {
	switch {
	case score >= 85:
		return "You're doing great"
	case score >= 70:
		return "Overall in good shape"
	case score >= 50:
		return "Some things need attention"
	default:
		return "Your recent signals need attention"
	}
}
