package analyzer

import (
	"context"
	"fmt"
	"sort"

	"github.com/careloop/healthpulse/internal/stats"
	"go.uber.org/zap"
)

const (
	// DefaultScoreWindowDays is the default score-history analysis window
	DefaultScoreWindowDays = 7

	// significantDeclinePercent is the first-to-last percentage drop at
	// which a decline is flagged as significant
	significantDeclinePercent = 15.0
)

// ScoreTrendAnalysis is the output of one score-history analysis run
type ScoreTrendAnalysis struct {
	PatientID          string            `json:"patient_id"`
	WindowDays         int               `json:"window_days"`
	RecordCount        int               `json:"record_count"`
	Stats              stats.Summary     `json:"stats"`
	Trend              stats.TrendResult `json:"trend"`
	ComponentTrends    []MetricSeries    `json:"component_trends,omitempty"`
	SignificantDecline bool              `json:"significant_decline"`
	DeclinePercent     float64           `json:"decline_percent"`
}

// ScoreTrendAnalyzer reads health score history and detects sustained declines
type ScoreTrendAnalyzer struct {
	scores ScoreSource
	logger *zap.Logger
}

// NewScoreTrendAnalyzer creates a new ScoreTrendAnalyzer
func NewScoreTrendAnalyzer(scores ScoreSource, logger *zap.Logger) *ScoreTrendAnalyzer {
	return &ScoreTrendAnalyzer{
		scores: scores,
		logger: logger,
	}
}

// Analyze runs the score-history analysis for a patient over the given window
func (a *ScoreTrendAnalyzer) Analyze(ctx context.Context, patientID string, windowDays int) (*ScoreTrendAnalysis, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient ID is required")
	}

	start, end, days := window(windowDays, DefaultScoreWindowDays)

	records, err := a.scores.GetScoresInWindow(ctx, patientID, start, end)
	if err != nil {
		a.logger.Error("failed to get score history",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		return nil, fmt.Errorf("failed to get score history: %w", err)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].CalculatedAt.Before(records[j].CalculatedAt) })

	scorePoints := make([]stats.Point, len(records))
	values := make([]float64, len(records))
	componentPoints := map[string][]stats.Point{}
	for i, r := range records {
		scorePoints[i] = stats.Point{Timestamp: r.CalculatedAt, Value: float64(r.Score)}
		values[i] = float64(r.Score)
		for name, v := range map[string]int{
			"symptom_score":    r.Components.SymptomScore,
			"mood_score":       r.Components.MoodScore,
			"lifestyle_score":  r.Components.LifestyleScore,
			"vitals_score":     r.Components.VitalsScore,
			"compliance_score": r.Components.ComplianceScore,
		} {
			componentPoints[name] = append(componentPoints[name], stats.Point{Timestamp: r.CalculatedAt, Value: float64(v)})
		}
	}

	analysis := &ScoreTrendAnalysis{
		PatientID:   patientID,
		WindowDays:  days,
		RecordCount: len(records),
		Stats:       stats.Describe(values),
		Trend:       stats.Trend(scorePoints),
	}

	for _, name := range []string{"symptom_score", "mood_score", "lifestyle_score", "vitals_score", "compliance_score"} {
		points := componentPoints[name]
		if len(points) == 0 {
			continue
		}
		analysis.ComponentTrends = append(analysis.ComponentTrends, buildMetricSeries(name, points))
	}

	if len(records) >= 2 {
		first := float64(records[0].Score)
		last := float64(records[len(records)-1].Score)
		if first > 0 && last < first {
			drop := (first - last) / first * 100
			analysis.DeclinePercent = drop
			analysis.SignificantDecline = drop >= significantDeclinePercent
		}
	}

	a.logger.Info("score trend analysis completed",
		zap.String("patient_id", patientID),
		zap.Int("window_days", days),
		zap.Int("record_count", len(records)),
		zap.Bool("significant_decline", analysis.SignificantDecline),
	)

	return analysis, nil
}
