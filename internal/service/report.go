package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/careloop/healthpulse/internal/audit"
	"github.com/careloop/healthpulse/internal/azure"
	"github.com/careloop/healthpulse/internal/pdf"
	"github.com/careloop/healthpulse/internal/repository"
	"github.com/careloop/healthpulse/pkg/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReportStore is the report record persistence interface
type ReportStore interface {
	Save(ctx context.Context, report *model.AnalysisReport) error
	GetByID(ctx context.Context, reportID, patientID string) (*model.AnalysisReport, error)
}

// ReportService generates downloadable PDF analysis reports
type ReportService struct {
	analysis   *AnalysisService
	scores     *HealthScoreService
	reportRepo ReportStore
	blobClient azure.BlobStorage
	pdfGen     *pdf.PDFGenerator
	auditor    audit.Recorder
	logger     *zap.Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	analysis *AnalysisService,
	scores *HealthScoreService,
	reportRepo ReportStore,
	blobClient azure.BlobStorage,
	pdfGen *pdf.PDFGenerator,
	auditor audit.Recorder,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		analysis:   analysis,
		scores:     scores,
		reportRepo: reportRepo,
		blobClient: blobClient,
		pdfGen:     pdfGen,
		auditor:    auditor,
		logger:     logger,
	}
}

// GenerateReport runs the analyzers over the requested window, renders the
// results to PDF, uploads the file to blob storage and records the report
func (s *ReportService) GenerateReport(ctx context.Context, patientID, patientName string, startDate, endDate time.Time) (string, error) {
	if patientID == "" {
		return "", fmt.Errorf("patient ID is required")
	}
	if startDate.After(endDate) {
		return "", fmt.Errorf("start date must be before or equal to end date")
	}

	s.logger.Info("generating analysis report",
		zap.String("patient_id", patientID),
		zap.Time("start_date", startDate),
		zap.Time("end_date", endDate),
	)

	reportID := uuid.New().String()
	windowDays := int(math.Ceil(endDate.Sub(startDate).Hours() / 24))

	vitals, err := s.analysis.AnalyzeVitalTrends(ctx, patientID, windowDays)
	if err != nil {
		return "", fmt.Errorf("failed to analyze vitals for report: %w", err)
	}
	symptoms, err := s.analysis.AnalyzeSymptomPatterns(ctx, patientID, windowDays)
	if err != nil {
		return "", fmt.Errorf("failed to analyze symptoms for report: %w", err)
	}
	mood, err := s.analysis.AnalyzeMoodTrends(ctx, patientID, windowDays)
	if err != nil {
		return "", fmt.Errorf("failed to analyze mood for report: %w", err)
	}

	score, err := s.scores.GetCurrent(ctx, patientID)
	if err != nil {
		return "", fmt.Errorf("failed to get current score for report: %w", err)
	}

	alerts, err := s.analysis.alerts.GetActive(ctx, patientID, repository.ActiveAlertFilter{})
	if err != nil {
		return "", fmt.Errorf("failed to get active alerts for report: %w", err)
	}

	dateRange := fmt.Sprintf("%s to %s", startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	reportData := &pdf.ReportData{
		PatientName: patientName,
		DateRange:   dateRange,
		Score:       score,
		Alerts:      alerts,
		Vitals:      vitals,
		Symptoms:    symptoms,
		Mood:        mood,
	}

	pdfBytes, err := s.pdfGen.Generate(reportData)
	if err != nil {
		s.logger.Error("failed to generate PDF",
			zap.Error(err),
			zap.String("report_id", reportID),
		)
		return "", fmt.Errorf("failed to generate PDF: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.pdf", reportID, time.Now().Format("20060102"))
	blobPath, err := s.blobClient.UploadPDF(ctx, filename, pdfBytes)
	if err != nil {
		s.logger.Error("failed to upload PDF to blob storage",
			zap.Error(err),
			zap.String("report_id", reportID),
		)
		return "", fmt.Errorf("failed to upload PDF: %w", err)
	}

	report := &model.AnalysisReport{
		ID:             reportID,
		PatientID:      patientID,
		DateRangeStart: startDate,
		DateRangeEnd:   endDate,
		FilePath:       blobPath,
		GeneratedAt:    time.Now(),
	}

	if err := s.reportRepo.Save(ctx, report); err != nil {
		s.logger.Error("failed to save report record",
			zap.Error(err),
			zap.String("report_id", reportID),
		)
		return "", fmt.Errorf("failed to save report record: %w", err)
	}

	if err := s.auditor.Record(ctx, audit.Entry{
		PatientID:  patientID,
		Action:     audit.ActionReportGenerate,
		Resource:   audit.ResourceReport,
		ResourceID: reportID,
		Details: map[string]any{
			"date_range": dateRange,
			"blob_path":  blobPath,
		},
	}); err != nil {
		s.logger.Warn("failed to record report audit entry", zap.Error(err))
	}

	s.logger.Info("analysis report generated",
		zap.String("report_id", reportID),
		zap.String("patient_id", patientID),
		zap.String("blob_path", blobPath),
	)

	return reportID, nil
}

// GetReport retrieves a report PDF for download. The report must belong to
// the requesting patient.
func (s *ReportService) GetReport(ctx context.Context, reportID, patientID string) ([]byte, error) {
	if reportID == "" || patientID == "" {
		return nil, fmt.Errorf("report ID and patient ID are required")
	}

	report, err := s.reportRepo.GetByID(ctx, reportID, patientID)
	if err != nil {
		if err == repository.ErrReportNotFound {
			return nil, err
		}
		s.logger.Error("failed to get report record",
			zap.Error(err),
			zap.String("report_id", reportID),
		)
		return nil, fmt.Errorf("failed to get report record: %w", err)
	}

	pdfBytes, err := s.blobClient.DownloadPDF(ctx, report.FilePath)
	if err != nil {
		s.logger.Error("failed to download PDF from blob storage",
			zap.Error(err),
			zap.String("report_id", reportID),
			zap.String("blob_path", report.FilePath),
		)
		return nil, fmt.Errorf("failed to download PDF: %w", err)
	}

	return pdfBytes, nil
}
