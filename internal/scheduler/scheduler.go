// Package scheduler runs periodic background analysis so alerts surface even
// when a patient has not opened the app.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/careloop/healthpulse/internal/service"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// PatientSource lists patients with recent signal activity
type PatientSource interface {
	GetPatientsWithSignalsSince(ctx context.Context, since time.Time) ([]string, error)
}

// Scheduler periodically runs analysis for every patient with recent signals
type Scheduler struct {
	cron     *cron.Cron
	analysis *service.AnalysisService
	patients PatientSource
	lookback time.Duration
	running  atomic.Bool
	logger   *zap.Logger
}

// New creates a new Scheduler
func New(analysis *service.AnalysisService, patients PatientSource, lookback time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		analysis: analysis,
		patients: patients,
		lookback: lookback,
		logger:   logger,
	}
}

// Register adds the analysis sweep at the given cron spec
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return fmt.Errorf("failed to register analysis sweep: %w", err)
	}
	return nil
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("analysis scheduler started")
}

// Stop stops the cron scheduler and waits for a running sweep to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("analysis scheduler stopped")
}

// RunNow executes one sweep immediately
func (s *Scheduler) RunNow() {
	s.sweep()
}

// sweep runs analysis for every patient with signal activity inside the
// lookback window. A sweep that is still running when the next tick fires
// is not run twice.
func (s *Scheduler) sweep() {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("analysis sweep still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	ctx := context.Background()
	since := time.Now().Add(-s.lookback)

	patients, err := s.patients.GetPatientsWithSignalsSince(ctx, since)
	if err != nil {
		s.logger.Error("failed to list patients for analysis sweep", zap.Error(err))
		return
	}

	s.logger.Info("analysis sweep started",
		zap.Int("patients", len(patients)),
		zap.Time("since", since),
	)

	failures := 0
	for _, patientID := range patients {
		if _, err := s.analysis.RunAnalysis(ctx, patientID); err != nil {
			// One patient failing must not stop the sweep.
			s.logger.Error("scheduled analysis failed",
				zap.Error(err),
				zap.String("patient_id", patientID),
			)
			failures++
		}
	}

	s.logger.Info("analysis sweep completed",
		zap.Int("patients", len(patients)),
		zap.Int("failures", failures),
	)
}
