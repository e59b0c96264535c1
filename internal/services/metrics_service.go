package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sensorcli/internal/config"
	"sensorcli/internal/dataprocessing"
	apierrors "sensorcli/internal/errors"
	"sensorcli/internal/exporter"
	"sensorcli/internal/infrastructure"
	"sensorcli/internal/storage"
	"sensorcli/internal/tsdb"
	ws "sensorcli/internal/websocket"
	"sensorcli/pkg/contracts/domain"
)

// Publication sinks, used as the sink label of the published counter.
const (
	SinkStore     = "sqlite"
	SinkInfluxDB  = "influxdb"
	SinkWebSocket = "websocket"
)

// Classification methods reported by Classify.
const (
	MethodName    = "name"
	MethodContent = "content"
)

// Dependencies are the optional collaborators of MetricsService. Nil fields
// are skipped.
type Dependencies struct {
	Store   RecordStore
	Points  PointWriter
	Hub     WebSocketHub
	Metrics *infrastructure.ProcessingMetrics
}

// UploadResult is the outcome of one processed upload.
type UploadResult struct {
	Record         domain.MetricsRecord  `json:"record"`
	Classification domain.Classification `json:"classification"`
	Fallbacks      []string              `json:"fallbacks,omitempty"`
	Dropped        []string              `json:"dropped_columns,omitempty"`
	Mode           dataprocessing.Mode   `json:"mode"`
	Duration       time.Duration         `json:"duration_ns"`
}

// ColumnReport describes one column of a classified export.
type ColumnReport struct {
	Name    string  `json:"name"`
	Role    string  `json:"role,omitempty"`
	Numeric bool    `json:"numeric"`
	Count   int     `json:"count"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
}

// ClassificationReport is the result of Classify.
type ClassificationReport struct {
	Filename       string                `json:"filename"`
	Date           string                `json:"date"`
	Rows           int                   `json:"rows"`
	Method         string                `json:"method"`
	Classification domain.Classification `json:"classification"`
	Dropped        []string              `json:"dropped_columns,omitempty"`
	Columns        []ColumnReport        `json:"columns"`
}

// MetricsService ingests sensor exports and serves the accumulated summary.
type MetricsService struct {
	parser     *dataprocessing.Parser
	classifier *dataprocessing.Classifier
	summarizer *dataprocessing.Summarizer
	processors map[dataprocessing.Mode]*dataprocessing.BatchProcessor
	mode       dataprocessing.Mode
	sentinels  []float64

	paths      *config.Paths
	exportOpts exporter.SummaryOptions
	deps       Dependencies
	logger     *slog.Logger

	mu         sync.RWMutex
	lastUpload *UploadResult
}

// NewMetricsService wires the processing pipeline. Every record accumulated
// through it is published to the configured store, time-series sink and hub.
func NewMetricsService(cfg *config.Config, paths *config.Paths, deps Dependencies, logger *slog.Logger) *MetricsService {
	if logger == nil {
		logger = slog.Default()
	}

	calibration := cfg.CalibrationParams()
	s := &MetricsService{
		parser:     dataprocessing.NewParser(logger),
		summarizer: dataprocessing.NewSummarizer(logger),
		processors: make(map[dataprocessing.Mode]*dataprocessing.BatchProcessor, 2),
		mode:       calibration.Mode,
		sentinels:  cfg.Processing.Sentinels,
		paths:      paths,
		exportOpts: exporter.SummaryOptions{SuppressPadded: cfg.Processing.SuppressPadded},
		deps:       deps,
		logger:     logger.With(slog.String("component", "metrics_service")),
	}
	if s.mode == "" {
		s.mode = dataprocessing.ModeLenient
	}

	observer := dataprocessing.WithFallbackObserver(func(filename, stage string) {
		deps.Metrics.RecordFallback(context.Background(), stage)
	})
	opts := dataprocessing.ProcessorOptions{Workers: cfg.Processing.Workers, Sentinels: cfg.Processing.Sentinels}
	for _, mode := range []dataprocessing.Mode{dataprocessing.ModeLenient, dataprocessing.ModeStrict} {
		params := calibration
		params.Mode = mode
		calc := dataprocessing.NewCalculator(params, logger, observer)
		s.processors[mode] = dataprocessing.NewBatchProcessor(calc, s.summarizer, opts, logger)
		if s.classifier == nil {
			s.classifier = calc.Classifier()
		}
	}

	s.summarizer.OnAppend(s.publish)
	return s
}

// Summarizer exposes the accumulator backing the service.
func (s *MetricsService) Summarizer() *dataprocessing.Summarizer {
	return s.summarizer
}

// Mode returns the default calibration mode.
func (s *MetricsService) Mode() dataprocessing.Mode {
	return s.mode
}

// Hydrate loads persisted records into the accumulator without
// republishing them.
func (s *MetricsService) Hydrate(ctx context.Context) (int, error) {
	if s.deps.Store == nil {
		return 0, nil
	}
	records, err := s.deps.Store.ListRecords(ctx)
	if err != nil {
		return 0, apierrors.NewStorageError("failed to load stored records", err)
	}
	n := s.summarizer.Restore(records)
	s.logger.InfoContext(ctx, "Records restored from store",
		slog.Int("restored", n),
		slog.Int("stored", len(records)))
	return n, nil
}

func (s *MetricsService) publish(ctx context.Context, rec domain.MetricsRecord) {
	if s.deps.Store != nil {
		if err := s.deps.Store.SaveRecord(ctx, rec); err != nil {
			s.logger.ErrorContext(ctx, "Failed to persist record",
				slog.String("filename", rec.Filename),
				slog.String("error", err.Error()))
		} else {
			s.deps.Metrics.RecordPublished(ctx, SinkStore)
		}
	}

	if s.deps.Points != nil {
		if err := s.deps.Points.WriteRecord(rec); errors.Is(err, tsdb.ErrUndatedRecord) {
			s.logger.DebugContext(ctx, "Undated record not written to time series",
				slog.String("filename", rec.Filename))
		} else if err != nil {
			s.logger.WarnContext(ctx, "Failed to write time-series point",
				slog.String("filename", rec.Filename),
				slog.String("error", err.Error()))
		} else {
			s.deps.Metrics.RecordPublished(ctx, SinkInfluxDB)
		}
	}

	if s.deps.Hub != nil {
		s.deps.Hub.BroadcastWithTrace(ctx, ws.TypeRecordAppended, rec)
		s.deps.Metrics.RecordPublished(ctx, SinkWebSocket)
	}
}

// resolveMode picks the calibration mode of one request. A nil override
// keeps the configured default.
func (s *MetricsService) resolveMode(strict *bool) dataprocessing.Mode {
	if strict == nil {
		return s.mode
	}
	if *strict {
		return dataprocessing.ModeStrict
	}
	return dataprocessing.ModeLenient
}

func uploadName(filename string) (string, error) {
	name := filepath.Base(strings.TrimSpace(strings.ReplaceAll(filename, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "", &apierrors.AppError{
			Type:    apierrors.ErrTypeValidation,
			Message: "uploaded file has no name",
			Cause:   ErrMissingFilename,
		}
	}
	if !dataprocessing.IsSupported(name) {
		return "", fmt.Errorf("%s: %w", name, dataprocessing.ErrUnsupportedFormat)
	}
	return name, nil
}

// readUpload reads an export into memory and parses it.
func (s *MetricsService) readUpload(name string, r io.Reader) ([]byte, *domain.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading upload: %w", err)
	}
	if len(data) == 0 {
		return nil, nil, &apierrors.AppError{
			Type:    apierrors.ErrTypeValidation,
			Message: "uploaded file is empty",
			Cause:   ErrEmptyUpload,
			Context: map[string]interface{}{"filename": name},
		}
	}

	table, err := s.parser.ParseReader(bytes.NewReader(data), name)
	if err != nil {
		return nil, nil, apierrors.NewParsingError("failed to read export", err).WithContext("filename", name)
	}
	return data, table, nil
}

// ProcessUpload computes and accumulates the record of one uploaded export.
// strict overrides the configured calibration mode when non-nil.
func (s *MetricsService) ProcessUpload(ctx context.Context, filename string, r io.Reader, strict *bool) (*UploadResult, error) {
	ctx, span := otel.Tracer(infrastructure.MeterName).Start(ctx, "MetricsService.ProcessUpload",
		trace.WithAttributes(attribute.String("filename", filename)))
	defer span.End()

	start := time.Now()
	logger := infrastructure.LoggerWithContext(ctx).With(slog.String("component", "metrics_service"))

	name, err := uploadName(filename)
	if err != nil {
		return nil, err
	}
	if s.summarizer.Has(name) {
		return nil, fmt.Errorf("%s: %w", name, dataprocessing.ErrDuplicateFile)
	}

	data, table, err := s.readUpload(name, r)
	if err != nil {
		s.deps.Metrics.RecordFile(ctx, time.Since(start), err)
		return nil, err
	}

	mode := s.resolveMode(strict)
	calc, dropped, err := s.processors[mode].ProcessTable(table, name)
	if err == nil {
		err = s.summarizer.Add(ctx, *calc.Record)
	}
	duration := time.Since(start)
	s.deps.Metrics.RecordFile(ctx, duration, err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		logger.WarnContext(ctx, "Upload rejected",
			slog.String("filename", name),
			slog.String("mode", string(mode)),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.archive(ctx, name, data)

	record := calc.Record
	result := &UploadResult{
		Record:         *record,
		Classification: calc.Classification,
		Fallbacks:      calc.Fallbacks,
		Dropped:        dropped,
		Mode:           mode,
		Duration:       duration,
	}

	s.mu.Lock()
	s.lastUpload = result
	s.mu.Unlock()

	logger.InfoContext(ctx, "Upload processed",
		slog.String("filename", name),
		slog.String("date", record.Date),
		slog.String("mode", string(mode)),
		slog.Duration("duration", duration))
	return result, nil
}

// archive keeps a copy of an accepted upload. Failures are logged only.
func (s *MetricsService) archive(ctx context.Context, name string, data []byte) {
	if s.paths == nil || s.paths.UploadsDir == "" {
		return
	}
	path := s.paths.GetUploadPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		s.logger.WarnContext(ctx, "Failed to create uploads directory",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		s.logger.WarnContext(ctx, "Failed to archive upload",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// Classify reports the role assignment of an uploaded export without
// computing or accumulating anything.
func (s *MetricsService) Classify(ctx context.Context, filename string, r io.Reader) (*ClassificationReport, error) {
	name, err := uploadName(filename)
	if err != nil {
		return nil, err
	}
	_, table, err := s.readUpload(name, r)
	if err != nil {
		return nil, err
	}

	cleaned, dropped := dataprocessing.DropSentinelColumns(table, s.sentinels)
	classification, usedContent := s.classifier.Resolve(cleaned)

	method := MethodName
	if usedContent {
		method = MethodContent
	}

	report := &ClassificationReport{
		Filename:       name,
		Date:           dataprocessing.ExtractDate(name),
		Rows:           cleaned.Rows(),
		Method:         method,
		Classification: classification,
		Dropped:        dropped,
		Columns:        make([]ColumnReport, 0, len(cleaned.Columns)),
	}
	for _, col := range cleaned.Columns {
		st := dataprocessing.Stats(col)
		cr := ColumnReport{
			Name:    col.Name,
			Numeric: col.IsNumeric(),
			Count:   st.Count,
			Min:     st.Min,
			Max:     st.Max,
			Mean:    st.Mean,
		}
		if role, ok := classification.RoleOf(col.Name); ok {
			cr.Role = role.String()
		}
		report.Columns = append(report.Columns, cr)
	}

	s.logger.DebugContext(ctx, "Export classified",
		slog.String("filename", name),
		slog.String("method", method))
	return report, nil
}

// LastUpload returns the most recent successful upload.
func (s *MetricsService) LastUpload() (*UploadResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpload, s.lastUpload != nil
}

// List returns the accumulated records in arrival order.
func (s *MetricsService) List(ctx context.Context) []domain.MetricsRecord {
	return s.summarizer.Records()
}

// Get returns the record of filename.
func (s *MetricsService) Get(ctx context.Context, filename string) (domain.MetricsRecord, error) {
	rec, ok := s.summarizer.Get(filename)
	if !ok {
		return domain.MetricsRecord{}, apierrors.NewNotFoundError("record").WithContext("filename", filename)
	}
	return rec, nil
}

// Delete removes the record of filename from the accumulator and the store
// so the file can be processed again.
func (s *MetricsService) Delete(ctx context.Context, filename string) error {
	removed := s.summarizer.Remove(filename)

	if s.deps.Store != nil {
		err := s.deps.Store.DeleteRecord(ctx, filename)
		switch {
		case err == nil:
			removed = true
		case errors.Is(err, storage.ErrRecordNotFound):
		default:
			return apierrors.NewStorageError("failed to delete record", err).WithContext("filename", filename)
		}
	}

	if !removed {
		return apierrors.NewNotFoundError("record").WithContext("filename", filename)
	}

	s.mu.Lock()
	if s.lastUpload != nil && s.lastUpload.Record.Filename == filename {
		s.lastUpload = nil
	}
	s.mu.Unlock()

	if s.deps.Hub != nil {
		s.deps.Hub.BroadcastWithTrace(ctx, ws.TypeRecordRemoved, map[string]string{"filename": filename})
	}
	s.logger.InfoContext(ctx, "Record deleted", slog.String("filename", filename))
	return nil
}

// Series returns one metric over time across dated records.
func (s *MetricsService) Series(ctx context.Context, metric string) ([]domain.SeriesPoint, error) {
	return s.summarizer.Series(metric)
}

// Export writes the summary in format to w.
func (s *MetricsService) Export(ctx context.Context, w io.Writer, format exporter.Format) error {
	records := s.summarizer.Records()
	if err := exporter.WriteSummary(w, format, records, s.exportOpts); err != nil {
		return fmt.Errorf("exporting summary: %w", err)
	}
	s.logger.DebugContext(ctx, "Summary exported",
		slog.String("format", string(format)),
		slog.Int("record_count", len(records)))
	return nil
}

// RecordCount returns the number of accumulated records.
func (s *MetricsService) RecordCount() int {
	return s.summarizer.Len()
}
