package repository

import (
	"context"
	"testing"
	"time"

	"github.com/careloop/healthpulse/pkg/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// setupTestDB creates a PostgreSQL testcontainer and returns the connection pool
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("healthpulse_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)

	runMigrations(t, pool)

	cleanup := func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return pool, cleanup
}

// runMigrations creates the schema under test
func runMigrations(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			id VARCHAR(64) PRIMARY KEY,
			patient_id VARCHAR(64) NOT NULL,
			category VARCHAR(20) NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL,
			source VARCHAR(20) NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS signals_patient_window
			ON signals (patient_id, category, recorded_at)`,
		`CREATE TABLE IF NOT EXISTS health_scores (
			id VARCHAR(64) PRIMARY KEY,
			patient_id VARCHAR(64) NOT NULL,
			score INTEGER NOT NULL,
			trend_direction VARCHAR(20) NOT NULL,
			trend_percentage_change DOUBLE PRECISION NOT NULL DEFAULT 0,
			symptom_score INTEGER NOT NULL,
			mood_score INTEGER NOT NULL,
			lifestyle_score INTEGER NOT NULL,
			vitals_score INTEGER NOT NULL,
			compliance_score INTEGER NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			insights TEXT[],
			period VARCHAR(20) NOT NULL,
			calculation_method VARCHAR(50) NOT NULL,
			calculated_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS health_alerts (
			id VARCHAR(64) PRIMARY KEY,
			patient_id VARCHAR(64) NOT NULL,
			type VARCHAR(30) NOT NULL,
			severity VARCHAR(20) NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			metric VARCHAR(50) NOT NULL DEFAULT '',
			current_value DOUBLE PRECISION,
			expected_range VARCHAR(50),
			data_points JSONB,
			recommendations TEXT[],
			fingerprint VARCHAR(100) NOT NULL,
			status VARCHAR(20) NOT NULL,
			feedback_helpful BOOLEAN,
			feedback_comment TEXT,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS health_alerts_active_fingerprint
			ON health_alerts (patient_id, fingerprint) WHERE status = 'active'`,
		`CREATE TABLE IF NOT EXISTS analysis_reports (
			id VARCHAR(64) PRIMARY KEY,
			patient_id VARCHAR(64) NOT NULL,
			date_range_start TIMESTAMPTZ NOT NULL,
			date_range_end TIMESTAMPTZ NOT NULL,
			file_path TEXT NOT NULL,
			generated_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS audit_trail (
			id VARCHAR(64) PRIMARY KEY,
			patient_id VARCHAR(64) NOT NULL,
			action VARCHAR(50) NOT NULL,
			resource VARCHAR(50) NOT NULL,
			resource_id VARCHAR(64),
			occurred_at TIMESTAMPTZ NOT NULL,
			details JSONB
		)`,
	}

	for _, migration := range migrations {
		_, err := pool.Exec(ctx, migration)
		require.NoError(t, err)
	}
}

func newTestAlert(patientID, fingerprint string, severity model.AlertSeverity, expiresAt time.Time) *model.HealthAlert {
	value := 160.0
	return &model.HealthAlert{
		ID:        uuid.New().String(),
		PatientID: patientID,
		Type:      model.AlertTypeVitalAnomaly,
		Severity:  severity,
		Title:     "Unusual heart rate reading",
		Message:   "A reading outside your usual range was recorded.",
		Context: model.AlertContext{
			Metric:       "heart_rate",
			CurrentValue: &value,
		},
		Recommendations: []string{"Contact your care team"},
		Fingerprint:     fingerprint,
		Status:          model.AlertStatusActive,
		ExpiresAt:       expiresAt,
	}
}

func TestAlertRepository_FingerprintDedupIsAtomic(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewAlertRepository(pool, zap.NewNop())
	patientID := uuid.New().String()
	expires := time.Now().Add(12 * time.Hour)

	// First insert wins
	inserted, err := repo.Create(ctx, newTestAlert(patientID, "vital-anomaly:heart_rate:2026-09-01", model.AlertSeverityCritical, expires))
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same fingerprint while active is silently dropped
	inserted, err = repo.Create(ctx, newTestAlert(patientID, "vital-anomaly:heart_rate:2026-09-01", model.AlertSeverityCritical, expires))
	require.NoError(t, err)
	assert.False(t, inserted)

	exists, err := repo.HasActiveFingerprint(ctx, patientID, "vital-anomaly:heart_rate:2026-09-01")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.HasActiveFingerprint(ctx, patientID, "vital-anomaly:heart_rate:2026-09-02")
	require.NoError(t, err)
	assert.False(t, exists)

	// A different patient is not blocked by this fingerprint
	inserted, err = repo.Create(ctx, newTestAlert(uuid.New().String(), "vital-anomaly:heart_rate:2026-09-01", model.AlertSeverityCritical, expires))
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestAlertRepository_Lifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewAlertRepository(pool, zap.NewNop())
	patientID := uuid.New().String()
	expires := time.Now().Add(24 * time.Hour)

	alert := newTestAlert(patientID, "vital-anomaly:heart_rate:2026-09-01", model.AlertSeverityHigh, expires)
	inserted, err := repo.Create(ctx, alert)
	require.NoError(t, err)
	require.True(t, inserted)

	t.Run("acknowledge an active alert", func(t *testing.T) {
		updated, err := repo.Transition(ctx, alert.ID, patientID, model.AlertStatusAcknowledged, nil)
		require.NoError(t, err)
		assert.Equal(t, model.AlertStatusAcknowledged, updated.Status)
	})

	t.Run("terminal states stay terminal", func(t *testing.T) {
		_, err := repo.Transition(ctx, alert.ID, patientID, model.AlertStatusDismissed, nil)
		assert.ErrorIs(t, err, ErrAlertNotFound)
	})

	t.Run("resolved fingerprints can recur", func(t *testing.T) {
		inserted, err := repo.Create(ctx, newTestAlert(patientID, "vital-anomaly:heart_rate:2026-09-01", model.AlertSeverityHigh, expires))
		require.NoError(t, err)
		assert.True(t, inserted, "the partial index only guards active rows")
	})

	t.Run("dismissal feedback round-trips", func(t *testing.T) {
		second := newTestAlert(patientID, "chronic-symptom:headache:2026-09-01", model.AlertSeverityMedium, expires)
		inserted, err := repo.Create(ctx, second)
		require.NoError(t, err)
		require.True(t, inserted)

		comment := "already discussed with my doctor"
		updated, err := repo.Transition(ctx, second.ID, patientID, model.AlertStatusDismissed, &model.AlertFeedback{Helpful: true, Comment: &comment})
		require.NoError(t, err)
		require.NotNil(t, updated.Feedback)
		assert.True(t, updated.Feedback.Helpful)
		require.NotNil(t, updated.Feedback.Comment)
		assert.Equal(t, comment, *updated.Feedback.Comment)

		fetched, err := repo.GetByID(ctx, second.ID, patientID)
		require.NoError(t, err)
		require.NotNil(t, fetched.Feedback)
		assert.Equal(t, comment, *fetched.Feedback.Comment)
	})

	t.Run("ownership is enforced", func(t *testing.T) {
		_, err := repo.GetByID(ctx, alert.ID, uuid.New().String())
		assert.ErrorIs(t, err, ErrAlertNotFound)
	})
}

func TestAlertRepository_ActiveReadsOrderAndExpire(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewAlertRepository(pool, zap.NewNop())
	patientID := uuid.New().String()
	future := time.Now().Add(24 * time.Hour)

	low := newTestAlert(patientID, "health-milestone:mood:2026-09-01", model.AlertSeverityLow, future)
	critical := newTestAlert(patientID, "vital-anomaly:heart_rate:2026-09-01", model.AlertSeverityCritical, future)
	overdue := newTestAlert(patientID, "vital-trend:blood_sugar:2026-08-30", model.AlertSeverityMedium, time.Now().Add(-time.Hour))
	for _, a := range []*model.HealthAlert{low, critical, overdue} {
		inserted, err := repo.Create(ctx, a)
		require.NoError(t, err)
		require.True(t, inserted)
	}

	// Reads lazily expire the overdue alert and order by severity
	active, err := repo.GetActive(ctx, patientID, ActiveAlertFilter{})
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, critical.ID, active[0].ID)
	assert.Equal(t, low.ID, active[1].ID)

	count, err := repo.CountActive(ctx, patientID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// The expired alert survives in history with its terminal status
	history, pagination, err := repo.GetHistory(ctx, patientID, 1, 20, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, pagination.TotalItems)
	statuses := map[string]model.AlertStatus{}
	for _, a := range history {
		statuses[a.ID] = a.Status
	}
	assert.Equal(t, model.AlertStatusExpired, statuses[overdue.ID])

	// Severity filter
	severity := model.AlertSeverityCritical
	filtered, err := repo.GetActive(ctx, patientID, ActiveAlertFilter{Severity: &severity})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, critical.ID, filtered[0].ID)
}

func TestSignalRepository_LedgerRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewSignalRepository(pool, zap.NewNop())
	patientID := uuid.New().String()
	now := time.Now()

	symptom := &model.Signal{
		ID:         uuid.New().String(),
		PatientID:  patientID,
		Category:   model.SignalCategorySymptom,
		Symptom:    &model.SymptomPayload{Type: "headache", Severity: model.SymptomSeverityModerate},
		RecordedAt: now.Add(-2 * time.Hour),
		Source:     "manual",
		IsActive:   true,
	}
	hr := 72.0
	vitals := &model.Signal{
		ID:         uuid.New().String(),
		PatientID:  patientID,
		Category:   model.SignalCategoryVitals,
		Vitals:     &model.VitalsPayload{HeartRate: &hr},
		RecordedAt: now.Add(-time.Hour),
		Source:     "wearable",
		IsActive:   true,
	}
	require.NoError(t, repo.Save(ctx, symptom))
	require.NoError(t, repo.Save(ctx, vitals))

	// Category filter plus payload round-trip
	signals, err := repo.GetActiveSignals(ctx, patientID, model.SignalCategorySymptom, now.AddDate(0, 0, -7), now)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	require.NotNil(t, signals[0].Symptom)
	assert.Equal(t, "headache", signals[0].Symptom.Type)
	assert.Equal(t, model.SymptomSeverityModerate, signals[0].Symptom.Severity)
	assert.Nil(t, signals[0].Vitals)

	// Window bounds exclude older records
	signals, err = repo.GetActiveSignals(ctx, patientID, model.SignalCategorySymptom, now.Add(-90*time.Minute), now)
	require.NoError(t, err)
	assert.Empty(t, signals)

	// Scheduler sweep sees the patient
	patients, err := repo.GetPatientsWithSignalsSince(ctx, now.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Contains(t, patients, patientID)

	patients, err = repo.GetPatientsWithSignalsSince(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.NotContains(t, patients, patientID)
}

func TestHealthScoreRepository_History(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewHealthScoreRepository(pool, zap.NewNop())
	patientID := uuid.New().String()
	now := time.Now()

	// No history yet
	latest, err := repo.GetLatest(ctx, patientID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	older := &model.HealthScore{
		ID:        uuid.New().String(),
		PatientID: patientID,
		Score:     90,
		Trend:     model.ScoreTrend{Direction: model.TrendStable},
		Components: model.ScoreComponents{
			SymptomScore: 90, MoodScore: 80, LifestyleScore: 70, VitalsScore: 90, ComplianceScore: 100,
		},
		Summary:           "Your wellbeing score is good",
		Insights:          []string{"Keep up your sleep routine"},
		Period:            model.ScorePeriodDaily,
		CalculationMethod: "baseline-deduction-v1",
		CalculatedAt:      now.Add(-48 * time.Hour),
	}
	newer := &model.HealthScore{
		ID:        uuid.New().String(),
		PatientID: patientID,
		Score:     70,
		Trend:     model.ScoreTrend{Direction: model.TrendDeclining, PercentageChange: -22.2},
		Components: model.ScoreComponents{
			SymptomScore: 40, MoodScore: 80, LifestyleScore: 70, VitalsScore: 90, ComplianceScore: 100,
		},
		Summary:           "Your wellbeing score needs attention",
		Period:            model.ScorePeriodDaily,
		CalculationMethod: "baseline-deduction-v1",
		CalculatedAt:      now.Add(-24 * time.Hour),
	}
	require.NoError(t, repo.Save(ctx, older))
	require.NoError(t, repo.Save(ctx, newer))

	latest, err = repo.GetLatest(ctx, patientID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, newer.ID, latest.ID)
	assert.Equal(t, model.TrendDeclining, latest.Trend.Direction)

	scores, err := repo.GetScoresInWindow(ctx, patientID, now.AddDate(0, 0, -7), now)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, older.ID, scores[0].ID, "window reads are oldest first")
	assert.Equal(t, []string{"Keep up your sleep routine"}, scores[0].Insights)
}

func TestReportRepository_OwnershipScopedReads(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewReportRepository(pool, zap.NewNop())
	patientID := uuid.New().String()
	now := time.Now()

	report := &model.AnalysisReport{
		ID:             uuid.New().String(),
		PatientID:      patientID,
		DateRangeStart: now.AddDate(0, -1, 0),
		DateRangeEnd:   now,
		FilePath:       "reports/" + patientID + "_2026-09-01.pdf",
		GeneratedAt:    now,
	}
	require.NoError(t, repo.Save(ctx, report))

	fetched, err := repo.GetByID(ctx, report.ID, patientID)
	require.NoError(t, err)
	assert.Equal(t, report.FilePath, fetched.FilePath)

	_, err = repo.GetByID(ctx, report.ID, uuid.New().String())
	assert.ErrorIs(t, err, ErrReportNotFound)

	_, err = repo.GetByID(ctx, uuid.New().String(), patientID)
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestProperty_ActiveFingerprintUniqueness(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewAlertRepository(pool, zap.NewNop())

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("At most one active alert per patient and fingerprint", prop.ForAll(
		func(fingerprintSuffix string, attempts int) bool {
			patientID := uuid.New().String()
			fingerprint := "vital-anomaly:" + fingerprintSuffix + ":2026-09-01"
			expires := time.Now().Add(24 * time.Hour)

			insertedCount := 0
			for i := 0; i < attempts; i++ {
				inserted, err := repo.Create(ctx, newTestAlert(patientID, fingerprint, model.AlertSeverityHigh, expires))
				if err != nil {
					t.Logf("Create failed: %v", err)
					return false
				}
				if inserted {
					insertedCount++
				}
			}

			if insertedCount != 1 {
				t.Logf("expected exactly one insert for %d attempts, got %d", attempts, insertedCount)
				return false
			}

			active, err := repo.GetActive(ctx, patientID, ActiveAlertFilter{})
			if err != nil {
				t.Logf("GetActive failed: %v", err)
				return false
			}
			return len(active) == 1
		},
		gen.Identifier(),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}
