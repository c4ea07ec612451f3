package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/careloop/healthpulse/pkg/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrReportNotFound is returned when a report record is absent or not owned
// by the requesting patient
var ErrReportNotFound = errors.New("Report not found")

// ReportRepository manages generated analysis report records
type ReportRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db *pgxpool.Pool, logger *zap.Logger) *ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

// Save persists a report record
func (r *ReportRepository) Save(ctx context.Context, report *model.AnalysisReport) error {
	query := `
		INSERT INTO analysis_reports (
			id, patient_id, date_range_start, date_range_end,
			file_path, generated_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

	_, err := r.db.Exec(ctx, query,
		report.ID,
		report.PatientID,
		report.DateRangeStart,
		report.DateRangeEnd,
		report.FilePath,
		report.GeneratedAt,
	)

	if err != nil {
		r.logger.Error("failed to save report record",
			zap.Error(err),
			zap.String("patient_id", report.PatientID),
		)
		return fmt.Errorf("failed to save report record: %w", err)
	}

	return nil
}

// GetByID retrieves a report record owned by the patient
func (r *ReportRepository) GetByID(ctx context.Context, reportID, patientID string) (*model.AnalysisReport, error) {
	query := `
		SELECT id, patient_id, date_range_start, date_range_end,
			file_path, generated_at, created_at
		FROM analysis_reports
		WHERE id = $1 AND patient_id = $2
	`

	var report model.AnalysisReport
	err := r.db.QueryRow(ctx, query, reportID, patientID).Scan(
		&report.ID,
		&report.PatientID,
		&report.DateRangeStart,
		&report.DateRangeEnd,
		&report.FilePath,
		&report.GeneratedAt,
		&report.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		r.logger.Error("failed to get report record", zap.Error(err), zap.String("report_id", reportID))
		return nil, fmt.Errorf("failed to get report record: %w", err)
	}

	return &report, nil
}
