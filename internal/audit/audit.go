package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Action represents the kind of event being audited
type Action string

const (
	ActionAnalysisRun      Action = "ANALYSIS_RUN"
	ActionAlertAcknowledge Action = "ALERT_ACKNOWLEDGE"
	ActionAlertDismiss     Action = "ALERT_DISMISS"
	ActionReportGenerate   Action = "REPORT_GENERATE"
)

// Resource represents the type of record an action touched
type Resource string

const (
	ResourceHealthAlert Resource = "health_alert"
	ResourceHealthScore Resource = "health_score"
	ResourceSignal      Resource = "signal"
	ResourceReport      Resource = "analysis_report"
)

// Entry is one audit trail record
type Entry struct {
	ID         string
	PatientID  string
	Action     Action
	Resource   Resource
	ResourceID string
	Timestamp  time.Time
	Details    map[string]any
}

// Recorder accepts audit entries. Services depend on this interface so tests
// can swap in a no-op sink.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Logger persists audit entries to Postgres and mirrors them to the
// structured log
type Logger struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewLogger creates a new audit Logger
func NewLogger(db *pgxpool.Pool, logger *zap.Logger) *Logger {
	return &Logger{
		db:     db,
		logger: logger,
	}
}

// Record creates an audit trail entry
func (l *Logger) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	l.logger.Info("audit entry",
		zap.String("patient_id", entry.PatientID),
		zap.String("action", string(entry.Action)),
		zap.String("resource", string(entry.Resource)),
		zap.String("resource_id", entry.ResourceID),
		zap.Time("timestamp", entry.Timestamp),
	)

	var details []byte
	if entry.Details != nil {
		var err error
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal audit details: %w", err)
		}
	}

	query := `
		INSERT INTO audit_trail (
			id, patient_id, action, resource, resource_id,
			occurred_at, details
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := l.db.Exec(ctx, query,
		entry.ID,
		entry.PatientID,
		entry.Action,
		entry.Resource,
		entry.ResourceID,
		entry.Timestamp,
		details,
	)
	if err != nil {
		l.logger.Error("failed to store audit entry",
			zap.Error(err),
			zap.String("action", string(entry.Action)),
		)
		return fmt.Errorf("failed to store audit entry: %w", err)
	}

	return nil
}

// Nop is a Recorder that discards entries. Used in tests.
type Nop struct{}

// Record implements Recorder
func (Nop) Record(context.Context, Entry) error { return nil }
