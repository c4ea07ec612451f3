package service

import (
	"context"
	"fmt"
	"time"

	"github.com/careloop/healthpulse/internal/analyzer"
	"github.com/careloop/healthpulse/internal/audit"
	"github.com/careloop/healthpulse/internal/repository"
	"github.com/careloop/healthpulse/pkg/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AlertStore is the alert persistence interface used by the synthesis and
// lifecycle paths
type AlertStore interface {
	Create(ctx context.Context, alert *model.HealthAlert) (bool, error)
	HasActiveFingerprint(ctx context.Context, patientID, fingerprint string) (bool, error)
	GetActive(ctx context.Context, patientID string, filter repository.ActiveAlertFilter) ([]model.HealthAlert, error)
	CountActive(ctx context.Context, patientID string) (int, error)
	GetHistory(ctx context.Context, patientID string, page, limit int, status *model.AlertStatus) ([]model.HealthAlert, model.Pagination, error)
	GetByID(ctx context.Context, alertID, patientID string) (*model.HealthAlert, error)
	Transition(ctx context.Context, alertID, patientID string, status model.AlertStatus, feedback *model.AlertFeedback) (*model.HealthAlert, error)
}

// PatientAnalysis merges the outputs of the four domain analyzers
type PatientAnalysis struct {
	PatientID  string                       `json:"patient_id"`
	AnalyzedAt time.Time                    `json:"analyzed_at"`
	Vitals     *analyzer.VitalsAnalysis     `json:"vitals"`
	Symptoms   *analyzer.SymptomAnalysis    `json:"symptoms"`
	Mood       *analyzer.MoodAnalysis       `json:"mood"`
	ScoreTrend *analyzer.ScoreTrendAnalysis `json:"score_trend"`
}

// AnalysisResult is the outcome of one evaluation run
type AnalysisResult struct {
	Analysis    *PatientAnalysis    `json:"analysis"`
	Alerts      []model.HealthAlert `json:"alerts"`
	TotalAlerts int                 `json:"total_alerts"`
	NewAlerts   int                 `json:"new_alerts"`
}

// AnalysisService orchestrates the analyzers and the alert synthesizer
type AnalysisService struct {
	vitals     *analyzer.VitalsAnalyzer
	symptoms   *analyzer.SymptomAnalyzer
	mood       *analyzer.MoodAnalyzer
	scoreTrend *analyzer.ScoreTrendAnalyzer
	alerts     AlertStore
	auditor    audit.Recorder
	logger     *zap.Logger
}

// NewAnalysisService creates a new AnalysisService wired to the signal and
// score sources
func NewAnalysisService(signals analyzer.SignalSource, scores analyzer.ScoreSource, alerts AlertStore, auditor audit.Recorder, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{
		vitals:     analyzer.NewVitalsAnalyzer(signals, logger),
		symptoms:   analyzer.NewSymptomAnalyzer(signals, logger),
		mood:       analyzer.NewMoodAnalyzer(signals, logger),
		scoreTrend: analyzer.NewScoreTrendAnalyzer(scores, logger),
		alerts:     alerts,
		auditor:    auditor,
		logger:     logger,
	}
}

// RunAnalysis executes the four domain analyzers concurrently, synthesizes
// candidate alerts from the merged result, deduplicates against active alerts
// and persists the survivors. Any analyzer failure aborts the whole run; no
// partial alert set is committed silently.
func (s *AnalysisService) RunAnalysis(ctx context.Context, patientID string) (*AnalysisResult, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient ID is required")
	}

	now := time.Now()
	analysis := &PatientAnalysis{
		PatientID:  patientID,
		AnalyzedAt: now,
	}

	// The analyzers are independent reads with no ordering requirement,
	// joined before synthesis.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result, err := s.vitals.Analyze(gctx, patientID, 0)
		if err != nil {
			return err
		}
		analysis.Vitals = result
		return nil
	})
	g.Go(func() error {
		result, err := s.symptoms.Analyze(gctx, patientID, 0)
		if err != nil {
			return err
		}
		analysis.Symptoms = result
		return nil
	})
	g.Go(func() error {
		result, err := s.mood.Analyze(gctx, patientID, 0)
		if err != nil {
			return err
		}
		analysis.Mood = result
		return nil
	})
	g.Go(func() error {
		result, err := s.scoreTrend.Analyze(gctx, patientID, 0)
		if err != nil {
			return err
		}
		analysis.ScoreTrend = result
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("analysis run failed",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		return nil, fmt.Errorf("analysis run failed: %w", err)
	}

	candidates := synthesizeCandidates(patientID, analysis, now)

	newAlerts := 0
	for i := range candidates {
		candidate := &candidates[i]

		// Cheap pre-filter; the insert itself is the atomic dedup.
		exists, err := s.alerts.HasActiveFingerprint(ctx, patientID, candidate.Fingerprint)
		if err != nil {
			return nil, fmt.Errorf("failed to check alert fingerprint: %w", err)
		}
		if exists {
			continue
		}

		inserted, err := s.alerts.Create(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("failed to persist alert: %w", err)
		}
		if inserted {
			newAlerts++
		}
	}

	active, err := s.alerts.GetActive(ctx, patientID, repository.ActiveAlertFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to get active alerts: %w", err)
	}

	if err := s.auditor.Record(ctx, audit.Entry{
		PatientID:  patientID,
		Action:     audit.ActionAnalysisRun,
		Resource:   audit.ResourceHealthAlert,
		ResourceID: patientID,
		Details: map[string]any{
			"candidates": len(candidates),
			"new_alerts": newAlerts,
		},
	}); err != nil {
		s.logger.Warn("failed to record analysis audit entry", zap.Error(err))
	}

	s.logger.Info("analysis run completed",
		zap.String("patient_id", patientID),
		zap.Int("candidates", len(candidates)),
		zap.Int("new_alerts", newAlerts),
		zap.Int("total_alerts", len(active)),
	)

	return &AnalysisResult{
		Analysis:    analysis,
		Alerts:      active,
		TotalAlerts: len(active),
		NewAlerts:   newAlerts,
	}, nil
}

// AnalyzeVitalTrends runs the vitals analyzer alone, without alert synthesis
func (s *AnalysisService) AnalyzeVitalTrends(ctx context.Context, patientID string, windowDays int) (*analyzer.VitalsAnalysis, error) {
	return s.vitals.Analyze(ctx, patientID, windowDays)
}

// AnalyzeSymptomPatterns runs the symptom analyzer alone
func (s *AnalysisService) AnalyzeSymptomPatterns(ctx context.Context, patientID string, windowDays int) (*analyzer.SymptomAnalysis, error) {
	return s.symptoms.Analyze(ctx, patientID, windowDays)
}

// AnalyzeMoodTrends runs the mood analyzer alone
func (s *AnalysisService) AnalyzeMoodTrends(ctx context.Context, patientID string, windowDays int) (*analyzer.MoodAnalysis, error) {
	return s.mood.Analyze(ctx, patientID, windowDays)
}

// AnalyzeHealthScoreTrends runs the score-history analyzer alone
func (s *AnalysisService) AnalyzeHealthScoreTrends(ctx context.Context, patientID string, windowDays int) (*analyzer.ScoreTrendAnalysis, error) {
	return s.scoreTrend.Analyze(ctx, patientID, windowDays)
}
