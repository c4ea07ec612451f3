package analyzer

import (
	"context"
	"fmt"
	"sort"

	"github.com/careloop/healthpulse/internal/stats"
	"github.com/careloop/healthpulse/pkg/model"
	"go.uber.org/zap"
)

// DefaultMoodWindowDays is the default mood analysis window
const DefaultMoodWindowDays = 7

// moodScore maps a mood entry to an ordinal 1-5 scale
var moodScore = map[model.MoodType]float64{
	model.MoodBad:   1,
	model.MoodLow:   2,
	model.MoodOkay:  3,
	model.MoodGood:  4,
	model.MoodGreat: 5,
}

// badMoodCeiling is the ordinal value at or below which an entry counts as bad
const badMoodCeiling = 2

// MoodAnalysis is the output of one mood analysis run
type MoodAnalysis struct {
	PatientID           string            `json:"patient_id"`
	WindowDays          int               `json:"window_days"`
	EntryCount          int               `json:"entry_count"`
	Stats               stats.Summary     `json:"stats"`
	Trend               stats.TrendResult `json:"trend"`
	ConsecutiveBadMoods int               `json:"consecutive_bad_moods"`
	AverageStress       *float64          `json:"average_stress,omitempty"`
}

// MoodAnalyzer computes mood trends, bad-mood runs and stress averages
type MoodAnalyzer struct {
	signals SignalSource
	logger  *zap.Logger
}

// NewMoodAnalyzer creates a new MoodAnalyzer
func NewMoodAnalyzer(signals SignalSource, logger *zap.Logger) *MoodAnalyzer {
	return &MoodAnalyzer{
		signals: signals,
		logger:  logger,
	}
}

// Analyze runs the mood analysis for a patient over the given window
func (a *MoodAnalyzer) Analyze(ctx context.Context, patientID string, windowDays int) (*MoodAnalysis, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient ID is required")
	}

	start, end, days := window(windowDays, DefaultMoodWindowDays)

	signals, err := a.signals.GetActiveSignals(ctx, patientID, model.SignalCategoryMood, start, end)
	if err != nil {
		a.logger.Error("failed to get mood signals",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		return nil, fmt.Errorf("failed to get mood signals: %w", err)
	}

	sort.Slice(signals, func(i, j int) bool { return signals[i].RecordedAt.Before(signals[j].RecordedAt) })

	var points []stats.Point
	var stressSum float64
	var stressCount int
	longestBadRun := 0
	currentBadRun := 0
	for _, s := range signals {
		if s.Mood == nil {
			continue
		}
		score, ok := moodScore[s.Mood.Type]
		if !ok {
			continue
		}
		points = append(points, stats.Point{Timestamp: s.RecordedAt, Value: score})

		if score <= badMoodCeiling {
			currentBadRun++
			if currentBadRun > longestBadRun {
				longestBadRun = currentBadRun
			}
		} else {
			currentBadRun = 0
		}

		if s.Mood.StressLevel != nil {
			stressSum += float64(*s.Mood.StressLevel)
			stressCount++
		}
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}

	analysis := &MoodAnalysis{
		PatientID:           patientID,
		WindowDays:          days,
		EntryCount:          len(points),
		Stats:               stats.Describe(values),
		Trend:               stats.Trend(points),
		ConsecutiveBadMoods: longestBadRun,
	}
	if stressCount > 0 {
		avg := stressSum / float64(stressCount)
		analysis.AverageStress = &avg
	}

	a.logger.Info("mood analysis completed",
		zap.String("patient_id", patientID),
		zap.Int("window_days", days),
		zap.Int("entry_count", len(points)),
		zap.Int("consecutive_bad_moods", longestBadRun),
	)

	return analysis, nil
}
