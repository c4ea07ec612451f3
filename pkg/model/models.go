package model

import "time"

// SignalCategory classifies a health signal observation
type SignalCategory string

const (
	SignalCategorySymptom   SignalCategory = "symptom"
	SignalCategoryMood      SignalCategory = "mood"
	SignalCategoryLifestyle SignalCategory = "lifestyle"
	SignalCategoryVitals    SignalCategory = "vitals"
)

// SymptomSeverity is the reported intensity of a symptom
type SymptomSeverity string

const (
	SymptomSeverityMild     SymptomSeverity = "mild"
	SymptomSeverityModerate SymptomSeverity = "moderate"
	SymptomSeveritySevere   SymptomSeverity = "severe"
)

// MoodType is a self-reported mood entry
type MoodType string

const (
	MoodGreat MoodType = "great"
	MoodGood  MoodType = "good"
	MoodOkay  MoodType = "okay"
	MoodLow   MoodType = "low"
	MoodBad   MoodType = "bad"
)

// SymptomPayload carries symptom-specific signal data
type SymptomPayload struct {
	Type          string          `json:"type"`
	Severity      SymptomSeverity `json:"severity"`
	DurationValue *float64        `json:"duration_value,omitempty"`
	DurationUnit  *string         `json:"duration_unit,omitempty"`
}

// MoodPayload carries mood-specific signal data
type MoodPayload struct {
	Type        MoodType `json:"type"`
	StressLevel *int     `json:"stress_level,omitempty"` // 1-10
}

// SleepEntry describes one night of sleep
type SleepEntry struct {
	Duration float64 `json:"duration"` // hours
	Quality  *string `json:"quality,omitempty"`
}

// ActivityEntry describes a physical activity log
type ActivityEntry struct {
	Type     string   `json:"type"` // sedentary, light, active, very_active
	Duration *float64 `json:"duration,omitempty"`
}

// HydrationEntry describes daily fluid intake
type HydrationEntry struct {
	Glasses int `json:"glasses"`
}

// MealsEntry describes daily meal logging
type MealsEntry struct {
	Count   int     `json:"count"`
	Quality *string `json:"quality,omitempty"`
}

// LifestylePayload carries lifestyle-specific signal data
type LifestylePayload struct {
	Sleep     *SleepEntry     `json:"sleep,omitempty"`
	Activity  *ActivityEntry  `json:"activity,omitempty"`
	Hydration *HydrationEntry `json:"hydration,omitempty"`
	Meals     *MealsEntry     `json:"meals,omitempty"`
}

// BloodPressureEntry is a systolic/diastolic pair in mmHg
type BloodPressureEntry struct {
	Systolic  float64 `json:"systolic"`
	Diastolic float64 `json:"diastolic"`
}

// BloodSugarEntry is a glucose reading in mg/dL
type BloodSugarEntry struct {
	Value float64 `json:"value"`
	Type  *string `json:"type,omitempty"` // fasting, post_meal, random
}

// VitalsPayload carries vital-sign signal data
type VitalsPayload struct {
	BloodPressure    *BloodPressureEntry `json:"blood_pressure,omitempty"`
	HeartRate        *float64            `json:"heart_rate,omitempty"`
	Temperature      *float64            `json:"temperature,omitempty"` // celsius
	BloodSugar       *BloodSugarEntry    `json:"blood_sugar,omitempty"`
	Weight           *float64            `json:"weight,omitempty"`
	OxygenSaturation *float64            `json:"oxygen_saturation,omitempty"`
}

// Signal is an immutable timestamped patient health observation.
// Exactly one category payload is populated, matching Category.
type Signal struct {
	ID         string            `json:"id"`
	PatientID  string            `json:"patient_id"`
	Category   SignalCategory    `json:"category"`
	RecordedAt time.Time         `json:"recorded_at"`
	Source     string            `json:"source"` // manual, wearable, import
	IsActive   bool              `json:"is_active"`
	Symptom    *SymptomPayload   `json:"symptom,omitempty"`
	Mood       *MoodPayload      `json:"mood,omitempty"`
	Lifestyle  *LifestylePayload `json:"lifestyle,omitempty"`
	Vitals     *VitalsPayload    `json:"vitals,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// TrendDirection classifies how a health score moved against its predecessor
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendStable    TrendDirection = "stable"
	TrendDeclining TrendDirection = "declining"
)

// ScoreTrend compares a score record to the previous one
type ScoreTrend struct {
	Direction        TrendDirection `json:"direction"`
	PercentageChange float64        `json:"percentage_change"`
}

// ScoreComponents breaks the composite score into per-domain sub-scores, each 0-100
type ScoreComponents struct {
	SymptomScore    int `json:"symptom_score"`
	MoodScore       int `json:"mood_score"`
	LifestyleScore  int `json:"lifestyle_score"`
	VitalsScore     int `json:"vitals_score"`
	ComplianceScore int `json:"compliance_score"`
}

// ScorePeriod is the evaluation window of a score record
type ScorePeriod string

const (
	ScorePeriodDaily  ScorePeriod = "daily"
	ScorePeriodWeekly ScorePeriod = "weekly"
)

// HealthScore is one composite wellbeing score record per computation cycle.
// Records are never updated in place; the most recent by CalculatedAt wins.
type HealthScore struct {
	ID                string          `json:"id"`
	PatientID         string          `json:"patient_id"`
	Score             int             `json:"score"` // always clamped to [0,100]
	Trend             ScoreTrend      `json:"trend"`
	Components        ScoreComponents `json:"components"`
	Summary           string          `json:"summary"`
	Insights          []string        `json:"insights,omitempty"`
	Period            ScorePeriod     `json:"period"`
	CalculationMethod string          `json:"calculation_method"`
	CalculatedAt      time.Time       `json:"calculated_at"`
}

// AlertType is the taxonomy tag of a synthesized finding
type AlertType string

const (
	AlertTypeVitalAnomaly    AlertType = "vital-anomaly"
	AlertTypeVitalTrend      AlertType = "vital-trend"
	AlertTypeChronicSymptom  AlertType = "chronic-symptom"
	AlertTypeMoodDecline     AlertType = "mood-decline"
	AlertTypeDecliningScore  AlertType = "declining-score"
	AlertTypeHealthMilestone AlertType = "health-milestone"
)

// AlertSeverity is the ordinal alert priority driving expiry and UI urgency
type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "low"
	AlertSeverityMedium   AlertSeverity = "medium"
	AlertSeverityHigh     AlertSeverity = "high"
	AlertSeverityCritical AlertSeverity = "critical"
)

// AlertStatus is the lifecycle state of an alert
type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "active"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusDismissed    AlertStatus = "dismissed"
	AlertStatusExpired      AlertStatus = "expired"
)

// AlertDataPoint is one supporting observation attached to an alert
type AlertDataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// AlertContext carries the metric evidence behind an alert
type AlertContext struct {
	Metric        string           `json:"metric"`
	CurrentValue  *float64         `json:"current_value,omitempty"`
	ExpectedRange *string          `json:"expected_range,omitempty"`
	DataPoints    []AlertDataPoint `json:"data_points,omitempty"`
}

// AlertFeedback is optional patient feedback captured on dismissal
type AlertFeedback struct {
	Helpful bool    `json:"helpful"`
	Comment *string `json:"comment,omitempty"`
}

// HealthAlert is a synthesized, user-facing finding.
// No two active alerts for a patient share a fingerprint.
type HealthAlert struct {
	ID              string         `json:"id"`
	PatientID       string         `json:"patient_id"`
	Type            AlertType      `json:"type"`
	Severity        AlertSeverity  `json:"severity"`
	Title           string         `json:"title"`
	Message         string         `json:"message"`
	Context         AlertContext   `json:"context"`
	Recommendations []string       `json:"recommendations,omitempty"`
	Fingerprint     string         `json:"fingerprint"`
	Status          AlertStatus    `json:"status"`
	Feedback        *AlertFeedback `json:"feedback,omitempty"`
	ExpiresAt       time.Time      `json:"expires_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// AnalysisReport represents a generated analysis report export
type AnalysisReport struct {
	ID             string    `json:"id"`
	PatientID      string    `json:"patient_id"`
	DateRangeStart time.Time `json:"date_range_start"`
	DateRangeEnd   time.Time `json:"date_range_end"`
	FilePath       string    `json:"file_path"`
	GeneratedAt    time.Time `json:"generated_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// Pagination describes a page of a larger result set
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}
