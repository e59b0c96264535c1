package services

import (
	"context"

	"sensorcli/pkg/contracts/domain"
)

// RecordStore persists accumulated records.
type RecordStore interface {
	SaveRecord(ctx context.Context, rec domain.MetricsRecord) error
	ListRecords(ctx context.Context) ([]domain.MetricsRecord, error)
	DeleteRecord(ctx context.Context, filename string) error
	HealthCheck(ctx context.Context) error
}

// PointWriter mirrors records into a time-series database.
type PointWriter interface {
	WriteRecord(rec domain.MetricsRecord) error
	HealthCheck(ctx context.Context) error
}

// WebSocketHub pushes events to live clients.
type WebSocketHub interface {
	BroadcastWithTrace(ctx context.Context, messageType string, data interface{})
	ClientCount() int
}
