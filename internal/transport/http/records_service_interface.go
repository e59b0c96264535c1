package http

import (
	"context"
	"io"

	"sensorcli/internal/exporter"
	"sensorcli/internal/services"
	"sensorcli/pkg/contracts/domain"
)

// MetricsServiceInterface defines the record operations served over HTTP
type MetricsServiceInterface interface {
	ProcessUpload(ctx context.Context, filename string, r io.Reader, strict *bool) (*services.UploadResult, error)
	Classify(ctx context.Context, filename string, r io.Reader) (*services.ClassificationReport, error)
	LastUpload() (*services.UploadResult, bool)
	List(ctx context.Context) []domain.MetricsRecord
	Get(ctx context.Context, filename string) (domain.MetricsRecord, error)
	Delete(ctx context.Context, filename string) error
	Series(ctx context.Context, metric string) ([]domain.SeriesPoint, error)
	Export(ctx context.Context, w io.Writer, format exporter.Format) error
}
