// Package analyzer contains the domain analyzers that reshape raw patient
// signals into per-metric time series and apply the statistics kernel plus
// clinical thresholds. Analyzers are read-only and independent of each other.
package analyzer

import (
	"context"
	"time"

	"github.com/careloop/healthpulse/internal/stats"
	"github.com/careloop/healthpulse/pkg/model"
)

// SignalSource provides windowed read access to the signal ledger
type SignalSource interface {
	GetActiveSignals(ctx context.Context, patientID string, category model.SignalCategory, start, end time.Time) ([]model.Signal, error)
}

// ScoreSource provides read access to health score history
type ScoreSource interface {
	GetScoresInWindow(ctx context.Context, patientID string, start, end time.Time) ([]model.HealthScore, error)
}

// MetricSeries is the per-metric output shared by the vitals and score analyzers
type MetricSeries struct {
	Metric    string            `json:"metric"`
	Latest    *float64          `json:"latest,omitempty"`
	Stats     stats.Summary     `json:"stats"`
	Trend     stats.TrendResult `json:"trend"`
	Anomalies []stats.Anomaly   `json:"anomalies,omitempty"`
}

// window resolves an analysis window ending now. Non-positive or absurd
// windowDays values fall back to the analyzer default.
func window(windowDays, defaultDays int) (time.Time, time.Time, int) {
	if windowDays <= 0 || windowDays > 365 {
		windowDays = defaultDays
	}
	end := time.Now()
	start := end.AddDate(0, 0, -windowDays)
	return start, end, windowDays
}
