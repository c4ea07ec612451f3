package service

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/careloop/healthpulse/internal/audit"
	"github.com/careloop/healthpulse/internal/repository"
	"github.com/careloop/healthpulse/internal/security"
	"github.com/careloop/healthpulse/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockAlertStore is a mock implementation of AlertStore
type MockAlertStore struct {
	mock.Mock
}

func (m *MockAlertStore) Create(ctx context.Context, alert *model.HealthAlert) (bool, error) {
	args := m.Called(ctx, alert)
	return args.Bool(0), args.Error(1)
}

func (m *MockAlertStore) HasActiveFingerprint(ctx context.Context, patientID, fingerprint string) (bool, error) {
	args := m.Called(ctx, patientID, fingerprint)
	return args.Bool(0), args.Error(1)
}

func (m *MockAlertStore) GetActive(ctx context.Context, patientID string, filter repository.ActiveAlertFilter) ([]model.HealthAlert, error) {
	args := m.Called(ctx, patientID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.HealthAlert), args.Error(1)
}

func (m *MockAlertStore) CountActive(ctx context.Context, patientID string) (int, error) {
	args := m.Called(ctx, patientID)
	return args.Int(0), args.Error(1)
}

func (m *MockAlertStore) GetHistory(ctx context.Context, patientID string, page, limit int, status *model.AlertStatus) ([]model.HealthAlert, model.Pagination, error) {
	args := m.Called(ctx, patientID, page, limit, status)
	if args.Get(0) == nil {
		return nil, args.Get(1).(model.Pagination), args.Error(2)
	}
	return args.Get(0).([]model.HealthAlert), args.Get(1).(model.Pagination), args.Error(2)
}

func (m *MockAlertStore) GetByID(ctx context.Context, alertID, patientID string) (*model.HealthAlert, error) {
	args := m.Called(ctx, alertID, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.HealthAlert), args.Error(1)
}

func (m *MockAlertStore) Transition(ctx context.Context, alertID, patientID string, status model.AlertStatus, feedback *model.AlertFeedback) (*model.HealthAlert, error) {
	args := m.Called(ctx, alertID, patientID, status, feedback)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.HealthAlert), args.Error(1)
}

func testEncryptor(t *testing.T) *security.Encryptor {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	encryptor, err := security.NewEncryptor(key)
	require.NoError(t, err)
	return encryptor
}

func TestAcknowledgeAlert_Success(t *testing.T) {
	// Arrange
	mockRepo := new(MockAlertStore)
	service := NewAlertService(mockRepo, testEncryptor(t), audit.Nop{}, zap.NewNop())

	ctx := context.Background()
	expected := &model.HealthAlert{ID: "alert-1", PatientID: "patient-1", Status: model.AlertStatusAcknowledged}
	mockRepo.On("Transition", ctx, "alert-1", "patient-1", model.AlertStatusAcknowledged, (*model.AlertFeedback)(nil)).Return(expected, nil)

	// Act
	alert, err := service.AcknowledgeAlert(ctx, "alert-1", "patient-1")

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, model.AlertStatusAcknowledged, alert.Status)
	mockRepo.AssertExpectations(t)
}

func TestAcknowledgeAlert_NotActive(t *testing.T) {
	// Arrange
	mockRepo := new(MockAlertStore)
	service := NewAlertService(mockRepo, testEncryptor(t), audit.Nop{}, zap.NewNop())

	ctx := context.Background()
	mockRepo.On("Transition", ctx, "alert-1", "patient-1", model.AlertStatusAcknowledged, (*model.AlertFeedback)(nil)).Return(nil, repository.ErrAlertNotFound)

	// Act
	_, err := service.AcknowledgeAlert(ctx, "alert-1", "patient-1")

	// Assert
	assert.ErrorIs(t, err, repository.ErrAlertNotFound)
}

func TestDismissAlert_EncryptsFeedbackComment(t *testing.T) {
	// Arrange
	mockRepo := new(MockAlertStore)
	encryptor := testEncryptor(t)
	service := NewAlertService(mockRepo, encryptor, audit.Nop{}, zap.NewNop())

	ctx := context.Background()
	comment := "this alert did not apply to me"
	feedback := &model.AlertFeedback{Helpful: false, Comment: &comment}

	var storedFeedback *model.AlertFeedback
	mockRepo.On("Transition", ctx, "alert-1", "patient-1", model.AlertStatusDismissed, mock.AnythingOfType("*model.AlertFeedback")).
		Run(func(args mock.Arguments) {
			storedFeedback = args.Get(4).(*model.AlertFeedback)
		}).
		Return(&model.HealthAlert{ID: "alert-1", Status: model.AlertStatusDismissed}, nil)

	// Act
	alert, err := service.DismissAlert(ctx, "alert-1", "patient-1", feedback)

	// Assert: stored comment is ciphertext, returned comment is plaintext
	require.NoError(t, err)
	require.NotNil(t, storedFeedback)
	require.NotNil(t, storedFeedback.Comment)
	assert.NotEqual(t, comment, *storedFeedback.Comment)

	decrypted, err := encryptor.Decrypt(*storedFeedback.Comment)
	require.NoError(t, err)
	assert.Equal(t, comment, decrypted)

	require.NotNil(t, alert.Feedback)
	require.NotNil(t, alert.Feedback.Comment)
	assert.Equal(t, comment, *alert.Feedback.Comment)
}

func TestDismissAlert_WithoutFeedback(t *testing.T) {
	// Arrange
	mockRepo := new(MockAlertStore)
	service := NewAlertService(mockRepo, testEncryptor(t), audit.Nop{}, zap.NewNop())

	ctx := context.Background()
	mockRepo.On("Transition", ctx, "alert-1", "patient-1", model.AlertStatusDismissed, (*model.AlertFeedback)(nil)).
		Return(&model.HealthAlert{ID: "alert-1", Status: model.AlertStatusDismissed}, nil)

	// Act
	alert, err := service.DismissAlert(ctx, "alert-1", "patient-1", nil)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, model.AlertStatusDismissed, alert.Status)
	assert.Nil(t, alert.Feedback)
}

func TestDismissAlert_SecondDismissalNotFound(t *testing.T) {
	// Arrange: the row is no longer active, the conditional update misses
	mockRepo := new(MockAlertStore)
	service := NewAlertService(mockRepo, testEncryptor(t), audit.Nop{}, zap.NewNop())

	ctx := context.Background()
	mockRepo.On("Transition", ctx, "alert-1", "patient-1", model.AlertStatusDismissed, (*model.AlertFeedback)(nil)).
		Return(nil, repository.ErrAlertNotFound)

	// Act
	_, err := service.DismissAlert(ctx, "alert-1", "patient-1", nil)

	// Assert
	assert.ErrorIs(t, err, repository.ErrAlertNotFound)
}

func TestGetActiveAlerts_ReturnsTotalCount(t *testing.T) {
	// Arrange
	mockRepo := new(MockAlertStore)
	service := NewAlertService(mockRepo, testEncryptor(t), audit.Nop{}, zap.NewNop())

	ctx := context.Background()
	filter := repository.ActiveAlertFilter{Limit: 1}
	alerts := []model.HealthAlert{{ID: "alert-1", Severity: model.AlertSeverityCritical}}
	mockRepo.On("GetActive", ctx, "patient-1", filter).Return(alerts, nil)
	mockRepo.On("CountActive", ctx, "patient-1").Return(3, nil)

	// Act
	result, total, err := service.GetActiveAlerts(ctx, "patient-1", filter)

	// Assert: the page is limited but the total reflects all active alerts
	assert.NoError(t, err)
	assert.Len(t, result, 1)
	assert.Equal(t, 3, total)
}

func TestGetAlertHistory_DecryptsFeedback(t *testing.T) {
	// Arrange
	mockRepo := new(MockAlertStore)
	encryptor := testEncryptor(t)
	service := NewAlertService(mockRepo, encryptor, audit.Nop{}, zap.NewNop())

	ctx := context.Background()
	comment := "already discussed with my doctor"
	ciphertext, err := encryptor.Encrypt(comment)
	require.NoError(t, err)

	alerts := []model.HealthAlert{
		{
			ID:       "alert-1",
			Status:   model.AlertStatusDismissed,
			Feedback: &model.AlertFeedback{Helpful: true, Comment: &ciphertext},
		},
	}
	pagination := model.Pagination{Page: 1, Limit: 20, TotalItems: 1, TotalPages: 1}
	mockRepo.On("GetHistory", ctx, "patient-1", 1, 20, (*model.AlertStatus)(nil)).Return(alerts, pagination, nil)

	// Act
	result, _, err := service.GetAlertHistory(ctx, "patient-1", 1, 20, nil)

	// Assert
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.NotNil(t, result[0].Feedback.Comment)
	assert.Equal(t, comment, *result[0].Feedback.Comment)
}

func TestGetAlertHistory_RejectsInvalidStatus(t *testing.T) {
	service := NewAlertService(new(MockAlertStore), testEncryptor(t), audit.Nop{}, zap.NewNop())

	bogus := model.AlertStatus("archived")
	_, _, err := service.GetAlertHistory(context.Background(), "patient-1", 1, 20, &bogus)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid alert status")
}
