package service

import (
	"fmt"
	"time"

	"github.com/careloop/healthpulse/internal/analyzer"
	"github.com/careloop/healthpulse/internal/stats"
	"github.com/careloop/healthpulse/pkg/model"
	"github.com/google/uuid"
)

// vitalRange holds adult default clinical ranges for one vital metric
type vitalRange struct {
	Label       string
	Unit        string
	NormalMin   float64
	NormalMax   float64
	CriticalMin float64
	CriticalMax float64
}

// vitalRanges keys clinical ranges by the analyzer's metric names
var vitalRanges = map[string]vitalRange{
	analyzer.MetricHeartRate:        {Label: "Heart rate", Unit: "bpm", NormalMin: 60, NormalMax: 100, CriticalMin: 40, CriticalMax: 150},
	analyzer.MetricSystolicBP:       {Label: "Systolic blood pressure", Unit: "mmHg", NormalMin: 90, NormalMax: 120, CriticalMin: 70, CriticalMax: 180},
	analyzer.MetricDiastolicBP:      {Label: "Diastolic blood pressure", Unit: "mmHg", NormalMin: 60, NormalMax: 80, CriticalMin: 40, CriticalMax: 120},
	analyzer.MetricOxygenSaturation: {Label: "Oxygen saturation", Unit: "%", NormalMin: 95, NormalMax: 100, CriticalMin: 90, CriticalMax: 100},
	analyzer.MetricTemperature:      {Label: "Body temperature", Unit: "°C", NormalMin: 36.1, NormalMax: 37.2, CriticalMin: 35, CriticalMax: 39},
	analyzer.MetricBloodSugar:       {Label: "Blood sugar", Unit: "mg/dL", NormalMin: 70, NormalMax: 140, CriticalMin: 50, CriticalMax: 300},
}

// expiryHorizons maps severity to the alert validity window
var expiryHorizons = map[model.AlertSeverity]time.Duration{
	model.AlertSeverityCritical: 12 * time.Hour,
	model.AlertSeverityHigh:     24 * time.Hour,
	model.AlertSeverityMedium:   48 * time.Hour,
	model.AlertSeverityLow:      72 * time.Hour,
}

// vitalTrendAlertPercent is the |percent change| beyond which a non-stable
// vital trend produces an informational alert
const vitalTrendAlertPercent = 15.0

// moodDeclineRunThreshold is the consecutive bad-mood count that raises an alert
const moodDeclineRunThreshold = 2

// milestoneMeanMood is the minimum mean mood for a positive milestone
const milestoneMeanMood = 4.0

// classifyVitalSeverity maps a reading against its clinical ranges
func classifyVitalSeverity(metric string, value float64) model.AlertSeverity {
	r, ok := vitalRanges[metric]
	if !ok {
		return model.AlertSeverityMedium
	}
	if value < r.CriticalMin || value > r.CriticalMax {
		return model.AlertSeverityCritical
	}
	if value < r.NormalMin || value > r.NormalMax {
		return model.AlertSeverityHigh
	}
	return model.AlertSeverityMedium
}

// alertFingerprint builds the deterministic dedup key: type + metric + ISO date
func alertFingerprint(alertType model.AlertType, metric string, now time.Time) string {
	return fmt.Sprintf("%s:%s:%s", alertType, metric, now.Format("2006-01-02"))
}

// newCandidate assembles a candidate alert with id, fingerprint and expiry set
func newCandidate(patientID string, alertType model.AlertType, severity model.AlertSeverity, title, message string, context model.AlertContext, recommendations []string, now time.Time) model.HealthAlert {
	return model.HealthAlert{
		ID:              uuid.New().String(),
		PatientID:       patientID,
		Type:            alertType,
		Severity:        severity,
		Title:           title,
		Message:         message,
		Context:         context,
		Recommendations: recommendations,
		Fingerprint:     alertFingerprint(alertType, context.Metric, now),
		Status:          model.AlertStatusActive,
		ExpiresAt:       now.Add(expiryHorizons[severity]),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// synthesizeCandidates derives candidate alerts from a merged analysis.
// Every rule is evaluated on every run; a run can emit zero or many candidates.
func synthesizeCandidates(patientID string, analysis *PatientAnalysis, now time.Time) []model.HealthAlert {
	var candidates []model.HealthAlert

	// Vital anomalies: the latest flagged anomaly per metric, with severity
	// from the clinical ranges.
	for _, metric := range analysis.Vitals.Metrics {
		if len(metric.Anomalies) == 0 {
			continue
		}
		latest := metric.Anomalies[0]
		for _, a := range metric.Anomalies[1:] {
			if a.Timestamp.After(latest.Timestamp) {
				latest = a
			}
		}

		r := vitalRanges[metric.Metric]
		severity := classifyVitalSeverity(metric.Metric, latest.Value)
		value := latest.Value
		expected := fmt.Sprintf("%g-%g %s", r.NormalMin, r.NormalMax, r.Unit)
		dataPoints := make([]model.AlertDataPoint, 0, len(metric.Anomalies))
		for _, a := range metric.Anomalies {
			dataPoints = append(dataPoints, model.AlertDataPoint{Timestamp: a.Timestamp, Value: a.Value})
		}

		side := "above"
		if latest.Deviation == stats.DeviationLow {
			side = "below"
		}
		candidates = append(candidates, newCandidate(
			patientID,
			model.AlertTypeVitalAnomaly,
			severity,
			fmt.Sprintf("Unusual %s reading", lowerLabel(r.Label)),
			fmt.Sprintf("A %s reading of %g %s is well %s your recent baseline.", lowerLabel(r.Label), value, r.Unit, side),
			model.AlertContext{
				Metric:        metric.Metric,
				CurrentValue:  &value,
				ExpectedRange: &expected,
				DataPoints:    dataPoints,
			},
			[]string{
				"Re-take the measurement while resting",
				"Contact your care team if the reading repeats",
			},
			now,
		))
	}

	// Vital trends: any non-stable direction moving more than the threshold.
	for _, metric := range analysis.Vitals.Metrics {
		trend := metric.Trend
		if trend.Direction == stats.DirectionStable {
			continue
		}
		if trend.PercentChange <= vitalTrendAlertPercent && trend.PercentChange >= -vitalTrendAlertPercent {
			continue
		}
		r := vitalRanges[metric.Metric]
		candidates = append(candidates, newCandidate(
			patientID,
			model.AlertTypeVitalTrend,
			model.AlertSeverityMedium,
			fmt.Sprintf("%s is trending %s", r.Label, string(trend.Direction)),
			fmt.Sprintf("%s changed %.1f%% over the last %d days.", r.Label, trend.PercentChange, analysis.Vitals.WindowDays),
			model.AlertContext{Metric: metric.Metric, CurrentValue: metric.Latest},
			[]string{"Keep logging readings so the trend can be confirmed"},
			now,
		))
	}

	// Chronic symptoms: recurring patterns, high when any occurrence was severe.
	for _, pattern := range analysis.Symptoms.Patterns {
		if !pattern.Recurring {
			continue
		}
		severity := model.AlertSeverityMedium
		if pattern.HadSevere {
			severity = model.AlertSeverityHigh
		}
		candidates = append(candidates, newCandidate(
			patientID,
			model.AlertTypeChronicSymptom,
			severity,
			fmt.Sprintf("Recurring symptom: %s", pattern.Type),
			fmt.Sprintf("%s was logged %d times in the last %d days.", pattern.Type, pattern.Count, analysis.Symptoms.WindowDays),
			model.AlertContext{Metric: pattern.Type},
			[]string{
				"Mention this recurring symptom at your next appointment",
				"Note anything that seems to trigger it",
			},
			now,
		))
	}

	// Mood decline: a run of consecutive bad moods.
	if analysis.Mood.ConsecutiveBadMoods >= moodDeclineRunThreshold {
		runLength := float64(analysis.Mood.ConsecutiveBadMoods)
		candidates = append(candidates, newCandidate(
			patientID,
			model.AlertTypeMoodDecline,
			model.AlertSeverityHigh,
			"Your mood has been low",
			fmt.Sprintf("You logged %d low mood entries in a row.", analysis.Mood.ConsecutiveBadMoods),
			model.AlertContext{Metric: "mood", CurrentValue: &runLength},
			[]string{
				"Consider reaching out to someone you trust",
				"Your care team can help if this continues",
			},
			now,
		))
	}

	// Declining composite score.
	if analysis.ScoreTrend.SignificantDecline {
		drop := analysis.ScoreTrend.DeclinePercent
		candidates = append(candidates, newCandidate(
			patientID,
			model.AlertTypeDecliningScore,
			model.AlertSeverityHigh,
			"Your wellbeing score is declining",
			fmt.Sprintf("Your score dropped %.0f%% over the last %d days.", drop, analysis.ScoreTrend.WindowDays),
			model.AlertContext{Metric: "health_score", CurrentValue: &drop},
			[]string{
				"Review your recent symptom and lifestyle entries",
				"Share this trend with your care team",
			},
			now,
		))
	}

	// Positive milestone: sustained high mood is worth celebrating, not warning.
	if analysis.Mood.Trend.Direction == stats.DirectionIncreasing && analysis.Mood.Stats.Mean >= milestoneMeanMood {
		mean := analysis.Mood.Stats.Mean
		candidates = append(candidates, newCandidate(
			patientID,
			model.AlertTypeHealthMilestone,
			model.AlertSeverityLow,
			"Your mood is on a great streak",
			"Your mood entries have been consistently high and still improving. Keep it up!",
			model.AlertContext{Metric: "mood", CurrentValue: &mean},
			[]string{"Whatever you're doing is working"},
			now,
		))
	}

	return candidates
}

// lowerLabel lowercases a range label for mid-sentence use
func lowerLabel(label string) string {
	if label == "" {
		return label
	}
	return string(label[0]|0x20) + label[1:]
}
