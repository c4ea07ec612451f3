package analyzer

import (
	"context"
	"fmt"

	"github.com/careloop/healthpulse/internal/stats"
	"github.com/careloop/healthpulse/pkg/model"
	"go.uber.org/zap"
)

// DefaultVitalsWindowDays is the default vitals analysis window
const DefaultVitalsWindowDays = 7

// Metric names emitted by the vitals analyzer. The alert synthesizer keys its
// clinical ranges on these.
const (
	MetricHeartRate        = "heart_rate"
	MetricSystolicBP       = "blood_pressure_systolic"
	MetricDiastolicBP      = "blood_pressure_diastolic"
	MetricOxygenSaturation = "oxygen_saturation"
	MetricTemperature      = "temperature"
	MetricBloodSugar       = "blood_sugar"
)

// VitalsAnalysis is the output of one vitals analysis run
type VitalsAnalysis struct {
	PatientID  string         `json:"patient_id"`
	WindowDays int            `json:"window_days"`
	Metrics    []MetricSeries `json:"metrics"`
}

// VitalsAnalyzer builds per-vital time series and runs stats, trend and
// anomaly detection over each
type VitalsAnalyzer struct {
	signals SignalSource
	logger  *zap.Logger
}

// NewVitalsAnalyzer creates a new VitalsAnalyzer
func NewVitalsAnalyzer(signals SignalSource, logger *zap.Logger) *VitalsAnalyzer {
	return &VitalsAnalyzer{
		signals: signals,
		logger:  logger,
	}
}

// Analyze runs the vitals analysis for a patient over the given window
func (a *VitalsAnalyzer) Analyze(ctx context.Context, patientID string, windowDays int) (*VitalsAnalysis, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient ID is required")
	}

	start, end, days := window(windowDays, DefaultVitalsWindowDays)

	signals, err := a.signals.GetActiveSignals(ctx, patientID, model.SignalCategoryVitals, start, end)
	if err != nil {
		a.logger.Error("failed to get vitals signals",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		return nil, fmt.Errorf("failed to get vitals signals: %w", err)
	}

	series := map[string][]stats.Point{}
	for _, s := range signals {
		// Signals with a missing payload are skipped rather than failing
		// the analysis.
		if s.Vitals == nil {
			continue
		}
		v := s.Vitals
		if v.HeartRate != nil {
			series[MetricHeartRate] = append(series[MetricHeartRate], stats.Point{Timestamp: s.RecordedAt, Value: *v.HeartRate})
		}
		if v.BloodPressure != nil {
			series[MetricSystolicBP] = append(series[MetricSystolicBP], stats.Point{Timestamp: s.RecordedAt, Value: v.BloodPressure.Systolic})
			series[MetricDiastolicBP] = append(series[MetricDiastolicBP], stats.Point{Timestamp: s.RecordedAt, Value: v.BloodPressure.Diastolic})
		}
		if v.OxygenSaturation != nil {
			series[MetricOxygenSaturation] = append(series[MetricOxygenSaturation], stats.Point{Timestamp: s.RecordedAt, Value: *v.OxygenSaturation})
		}
		if v.Temperature != nil {
			series[MetricTemperature] = append(series[MetricTemperature], stats.Point{Timestamp: s.RecordedAt, Value: *v.Temperature})
		}
		if v.BloodSugar != nil {
			series[MetricBloodSugar] = append(series[MetricBloodSugar], stats.Point{Timestamp: s.RecordedAt, Value: v.BloodSugar.Value})
		}
	}

	analysis := &VitalsAnalysis{
		PatientID:  patientID,
		WindowDays: days,
	}

	for _, metric := range []string{MetricHeartRate, MetricSystolicBP, MetricDiastolicBP, MetricOxygenSaturation, MetricTemperature, MetricBloodSugar} {
		points, ok := series[metric]
		if !ok {
			continue
		}
		analysis.Metrics = append(analysis.Metrics, buildMetricSeries(metric, points))
	}

	a.logger.Info("vitals analysis completed",
		zap.String("patient_id", patientID),
		zap.Int("window_days", days),
		zap.Int("signal_count", len(signals)),
		zap.Int("metric_count", len(analysis.Metrics)),
	)

	return analysis, nil
}

// buildMetricSeries runs the statistics kernel over one metric's points.
// The latest value is taken from the most recent point by timestamp.
func buildMetricSeries(metric string, points []stats.Point) MetricSeries {
	latestIdx := 0
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
		if p.Timestamp.After(points[latestIdx].Timestamp) {
			latestIdx = i
		}
	}

	latest := points[latestIdx].Value
	return MetricSeries{
		Metric:    metric,
		Latest:    &latest,
		Stats:     stats.Describe(values),
		Trend:     stats.Trend(points),
		Anomalies: stats.DetectAnomalies(points, stats.DefaultAnomalyThreshold),
	}
}
