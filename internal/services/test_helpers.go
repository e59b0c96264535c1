package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"sensorcli/pkg/contracts/domain"
)

// MockWebSocketHub is a mock for the WebSocketHub interface
type MockWebSocketHub struct {
	mock.Mock
}

func (m *MockWebSocketHub) BroadcastWithTrace(ctx context.Context, messageType string, data interface{}) {
	m.Called(ctx, messageType, data)
}

func (m *MockWebSocketHub) ClientCount() int {
	args := m.Called()
	return args.Int(0)
}

// MockRecordStore is a mock for the RecordStore interface
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) SaveRecord(ctx context.Context, rec domain.MetricsRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockRecordStore) ListRecords(ctx context.Context) ([]domain.MetricsRecord, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]domain.MetricsRecord)
	return records, args.Error(1)
}

func (m *MockRecordStore) DeleteRecord(ctx context.Context, filename string) error {
	return m.Called(ctx, filename).Error(0)
}

func (m *MockRecordStore) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockPointWriter is a mock for the PointWriter interface
type MockPointWriter struct {
	mock.Mock
}

func (m *MockPointWriter) WriteRecord(rec domain.MetricsRecord) error {
	return m.Called(rec).Error(0)
}

func (m *MockPointWriter) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
