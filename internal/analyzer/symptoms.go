package analyzer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/careloop/healthpulse/internal/stats"
	"github.com/careloop/healthpulse/pkg/model"
	"go.uber.org/zap"
)

const (
	// DefaultSymptomWindowDays is the default symptom analysis window
	DefaultSymptomWindowDays = 14

	// RecurrenceThreshold is the occurrence count at which a symptom is
	// considered recurring within the window
	RecurrenceThreshold = 3

	// clusterWindow is the trailing co-occurrence window for cluster detection
	clusterWindow = 24 * time.Hour

	// maxClusters caps how many clusters are kept (most recent first)
	maxClusters = 5
)

// severityScore maps reported severity to an ordinal value for trend analysis
var severityScore = map[model.SymptomSeverity]float64{
	model.SymptomSeverityMild:     1,
	model.SymptomSeverityModerate: 2,
	model.SymptomSeveritySevere:   3,
}

// SymptomPattern summarizes one symptom type's occurrences in the window
type SymptomPattern struct {
	Type           string                        `json:"type"`
	Count          int                           `json:"count"`
	SeverityCounts map[model.SymptomSeverity]int `json:"severity_counts"`
	HadSevere      bool                          `json:"had_severe"`
	Recurring      bool                          `json:"recurring"`
	SeverityTrend  *stats.TrendResult            `json:"severity_trend,omitempty"`
	LastOccurred   time.Time                     `json:"last_occurred"`
}

// SymptomCluster is a set of distinct symptom types co-occurring within 24 hours
type SymptomCluster struct {
	OccurredAt time.Time `json:"occurred_at"`
	Types      []string  `json:"types"`
}

// SymptomAnalysis is the output of one symptom analysis run
type SymptomAnalysis struct {
	PatientID  string           `json:"patient_id"`
	WindowDays int              `json:"window_days"`
	Total      int              `json:"total"`
	Patterns   []SymptomPattern `json:"patterns"`
	Clusters   []SymptomCluster `json:"clusters,omitempty"`
}

// SymptomAnalyzer detects recurring symptoms, severity trends and clusters
type SymptomAnalyzer struct {
	signals SignalSource
	logger  *zap.Logger
}

// NewSymptomAnalyzer creates a new SymptomAnalyzer
func NewSymptomAnalyzer(signals SignalSource, logger *zap.Logger) *SymptomAnalyzer {
	return &SymptomAnalyzer{
		signals: signals,
		logger:  logger,
	}
}

// Analyze runs the symptom pattern analysis for a patient over the given window
func (a *SymptomAnalyzer) Analyze(ctx context.Context, patientID string, windowDays int) (*SymptomAnalysis, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient ID is required")
	}

	start, end, days := window(windowDays, DefaultSymptomWindowDays)

	signals, err := a.signals.GetActiveSignals(ctx, patientID, model.SignalCategorySymptom, start, end)
	if err != nil {
		a.logger.Error("failed to get symptom signals",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		return nil, fmt.Errorf("failed to get symptom signals: %w", err)
	}

	var events []symptomEvent
	for _, s := range signals {
		// Malformed symptom signals without a type are skipped.
		if s.Symptom == nil || s.Symptom.Type == "" {
			continue
		}
		events = append(events, symptomEvent{at: s.RecordedAt, typ: s.Symptom.Type, severity: s.Symptom.Severity})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].at.Before(events[j].at) })

	byType := map[string]*SymptomPattern{}
	seriesByType := map[string][]stats.Point{}
	var order []string
	for _, e := range events {
		p, ok := byType[e.typ]
		if !ok {
			p = &SymptomPattern{
				Type:           e.typ,
				SeverityCounts: make(map[model.SymptomSeverity]int),
			}
			byType[e.typ] = p
			order = append(order, e.typ)
		}
		p.Count++
		p.SeverityCounts[e.severity]++
		if e.severity == model.SymptomSeveritySevere {
			p.HadSevere = true
		}
		if e.at.After(p.LastOccurred) {
			p.LastOccurred = e.at
		}
		if score, ok := severityScore[e.severity]; ok {
			seriesByType[e.typ] = append(seriesByType[e.typ], stats.Point{Timestamp: e.at, Value: score})
		}
	}

	analysis := &SymptomAnalysis{
		PatientID:  patientID,
		WindowDays: days,
		Total:      len(events),
	}

	for _, typ := range order {
		p := byType[typ]
		if p.Count >= RecurrenceThreshold {
			p.Recurring = true
			trend := stats.Trend(seriesByType[typ])
			p.SeverityTrend = &trend
		}
		analysis.Patterns = append(analysis.Patterns, *p)
	}

	analysis.Clusters = detectClusters(events)

	a.logger.Info("symptom analysis completed",
		zap.String("patient_id", patientID),
		zap.Int("window_days", days),
		zap.Int("symptom_count", len(events)),
		zap.Int("pattern_count", len(analysis.Patterns)),
		zap.Int("cluster_count", len(analysis.Clusters)),
	)

	return analysis, nil
}

// symptomEvent is one normalized symptom occurrence
type symptomEvent struct {
	at       time.Time
	typ      string
	severity model.SymptomSeverity
}

// detectClusters scans each symptom event's trailing 24-hour window for
// co-occurring distinct symptom types. Events must be chronologically sorted.
func detectClusters(events []symptomEvent) []SymptomCluster {
	var clusters []SymptomCluster
	for i, e := range events {
		seen := map[string]bool{e.typ: true}
		types := []string{e.typ}
		for j := 0; j < i; j++ {
			prev := events[j]
			if e.at.Sub(prev.at) <= clusterWindow && !seen[prev.typ] {
				seen[prev.typ] = true
				types = append(types, prev.typ)
			}
		}
		if len(types) >= 2 {
			sort.Strings(types)
			clusters = append(clusters, SymptomCluster{OccurredAt: e.at, Types: types})
		}
	}

	// Keep the most recent clusters only.
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].OccurredAt.After(clusters[j].OccurredAt) })
	if len(clusters) > maxClusters {
		clusters = clusters[:maxClusters]
	}
	return clusters
}
