package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/careloop/healthpulse/internal/analyzer"
	"github.com/careloop/healthpulse/pkg/model"
	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"
)

// PDFGenerator renders patient analysis reports
type PDFGenerator struct {
	logger *zap.Logger
}

// NewPDFGenerator creates a new PDFGenerator
func NewPDFGenerator(logger *zap.Logger) *PDFGenerator {
	return &PDFGenerator{
		logger: logger,
	}
}

// ReportData contains all data needed for report generation
type ReportData struct {
	PatientName string
	DateRange   string
	Score       *model.HealthScore
	Alerts      []model.HealthAlert
	Vitals      *analyzer.VitalsAnalysis
	Symptoms    *analyzer.SymptomAnalysis
	Mood        *analyzer.MoodAnalysis
}

// Generate creates a PDF report from the provided data
func (g *PDFGenerator) Generate(data *ReportData) ([]byte, error) {
	g.logger.Info("generating PDF report",
		zap.String("patient_name", data.PatientName),
		zap.String("date_range", data.DateRange),
	)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	pdf.AddPage()

	g.addTitle(pdf, "Health Analysis Report", data.PatientName, data.DateRange)

	g.addScoreSummary(pdf, data.Score)
	g.addAlerts(pdf, data.Alerts)
	g.addVitalsOverview(pdf, data.Vitals)
	g.addSymptomPatterns(pdf, data.Symptoms)
	g.addMoodSummary(pdf, data.Mood)

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		g.logger.Error("failed to generate PDF", zap.Error(err))
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	g.logger.Info("PDF report generated successfully",
		zap.Int("size_bytes", buf.Len()),
	)

	return buf.Bytes(), nil
}

// addTitle adds the report title and header information
func (g *PDFGenerator) addTitle(pdf *gofpdf.Fpdf, title, patientName, dateRange string) {
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Patient: %s", patientName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Period: %s", dateRange), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(10)
}

// addSectionHeader adds a section header
func (g *PDFGenerator) addSectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(0, 10, title, "", 1, "L", true, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Arial", "", 10)
}

// addScoreSummary adds the wellbeing score section
func (g *PDFGenerator) addScoreSummary(pdf *gofpdf.Fpdf, score *model.HealthScore) {
	g.addSectionHeader(pdf, "Wellbeing Score")

	if score == nil {
		pdf.CellFormat(0, 8, "No score has been calculated yet.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("%d / 100 - %s", score.Score, score.Summary), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Trend: %s (%.1f%%)", score.Trend.Direction, score.Trend.PercentageChange), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.CellFormat(0, 6, fmt.Sprintf("  Symptoms: %d", score.Components.SymptomScore), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("  Mood: %d", score.Components.MoodScore), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("  Lifestyle: %d", score.Components.LifestyleScore), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("  Vitals: %d", score.Components.VitalsScore), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(score.Insights) > 0 {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, "Insights:", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, insight := range score.Insights {
			pdf.CellFormat(0, 5, fmt.Sprintf("  - %s", insight), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(5)
}

// addAlerts adds the active alerts section
func (g *PDFGenerator) addAlerts(pdf *gofpdf.Fpdf, alerts []model.HealthAlert) {
	g.addSectionHeader(pdf, "Active Alerts")

	if len(alerts) == 0 {
		pdf.CellFormat(0, 8, "No active alerts during this period.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, alert := range alerts {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("[%s] %s", alert.Severity, alert.Title), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, fmt.Sprintf("  %s", alert.Message), "", "L", false)
		if alert.Context.CurrentValue != nil {
			line := fmt.Sprintf("  %s: %g", alert.Context.Metric, *alert.Context.CurrentValue)
			if alert.Context.ExpectedRange != nil {
				line += fmt.Sprintf(" (expected %s)", *alert.Context.ExpectedRange)
			}
			pdf.CellFormat(0, 5, line, "", 1, "L", false, 0, "")
		}
		for _, rec := range alert.Recommendations {
			pdf.CellFormat(0, 5, fmt.Sprintf("    - %s", rec), "", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}
	pdf.Ln(5)
}

// addVitalsOverview adds the per-vital statistics section
func (g *PDFGenerator) addVitalsOverview(pdf *gofpdf.Fpdf, vitals *analyzer.VitalsAnalysis) {
	g.addSectionHeader(pdf, "Vitals Overview")

	if vitals == nil || len(vitals.Metrics) == 0 {
		pdf.CellFormat(0, 8, "No vital measurements recorded during this period.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, metric := range vitals.Metrics {
		if metric.Stats.Count == 0 {
			continue
		}
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, metric.Metric, "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 5, fmt.Sprintf("  Readings: %d, Mean: %.1f, Range: %.1f-%.1f",
			metric.Stats.Count, metric.Stats.Mean, metric.Stats.Min, metric.Stats.Max), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("  Trend: %s (%.1f%%)",
			metric.Trend.Direction, metric.Trend.PercentChange), "", 1, "L", false, 0, "")
		if len(metric.Anomalies) > 0 {
			pdf.CellFormat(0, 5, fmt.Sprintf("  Unusual readings: %d", len(metric.Anomalies)), "", 1, "L", false, 0, "")
		}
		pdf.Ln(2)
	}
	pdf.Ln(5)
}

// addSymptomPatterns adds the symptom patterns section
func (g *PDFGenerator) addSymptomPatterns(pdf *gofpdf.Fpdf, symptoms *analyzer.SymptomAnalysis) {
	g.addSectionHeader(pdf, "Symptom Patterns")

	if symptoms == nil || len(symptoms.Patterns) == 0 {
		pdf.CellFormat(0, 8, "No symptoms recorded during this period.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, pattern := range symptoms.Patterns {
		pdf.SetFont("Arial", "B", 10)
		label := pattern.Type
		if pattern.Recurring {
			label += " (recurring)"
		}
		pdf.CellFormat(0, 6, label, "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 5, fmt.Sprintf("  Logged %d times, last on %s",
			pattern.Count, pattern.LastOccurred.Format("2006-01-02")), "", 1, "L", false, 0, "")
		pdf.Ln(2)
	}

	if len(symptoms.Clusters) > 0 {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, "Co-occurring symptoms:", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, cluster := range symptoms.Clusters {
			pdf.CellFormat(0, 5, fmt.Sprintf("  %s: %d symptoms within 24 hours",
				cluster.OccurredAt.Format("2006-01-02"), len(cluster.Types)), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(5)
}

// addMoodSummary adds the mood section
func (g *PDFGenerator) addMoodSummary(pdf *gofpdf.Fpdf, mood *analyzer.MoodAnalysis) {
	g.addSectionHeader(pdf, "Mood")

	if mood == nil || mood.EntryCount == 0 {
		pdf.CellFormat(0, 8, "No mood entries recorded during this period.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	pdf.CellFormat(0, 6, fmt.Sprintf("Entries: %d, Average mood: %.1f/5", mood.EntryCount, mood.Stats.Mean), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Trend: %s", mood.Trend.Direction), "", 1, "L", false, 0, "")
	if mood.AverageStress != nil {
		pdf.CellFormat(0, 6, fmt.Sprintf("Average stress: %.1f/10", *mood.AverageStress), "", 1, "L", false, 0, "")
	}
	if mood.ConsecutiveBadMoods > 0 {
		pdf.CellFormat(0, 6, fmt.Sprintf("Consecutive low entries: %d", mood.ConsecutiveBadMoods), "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}
