package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"sensorcli/internal/config"
	"sensorcli/pkg/contracts/domain"
)

// SummarySheet is the worksheet name of the XLSX summary.
const SummarySheet = "Summary"

// Format is a summary file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx" in any case. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// ContentType returns the HTTP media type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// SummaryOptions controls summary rendering.
type SummaryOptions struct {
	// SuppressPadded leaves humidity slots computed from the padding
	// constant empty instead of writing their value.
	SuppressPadded bool
}

// SummaryHeaders returns the summary column names.
func SummaryHeaders() []string {
	headers := []string{"date", "filename"}
	headers = append(headers, domain.MetricNames()...)
	return append(headers, "humidity_sensors")
}

// SummaryRow renders one record as CSV cells.
func SummaryRow(r domain.MetricsRecord, opts SummaryOptions) []string {
	row := []string{
		r.Date,
		r.Filename,
		formatFloat(r.DeformationAverage),
		formatFloat(r.TemperatureDifference),
		formatFloat(r.TemperatureAverage),
	}
	for i := 0; i < domain.HumiditySensorCount; i++ {
		v, measured := r.Calibrated(i)
		if !measured && opts.SuppressPadded {
			row = append(row, "")
			continue
		}
		row = append(row, formatFloat(v))
	}
	return append(row, formatInt(r.HumiditySensors))
}

// sheetRow renders one record as typed XLSX cells.
func sheetRow(r domain.MetricsRecord, opts SummaryOptions) []interface{} {
	row := []interface{}{
		r.Date,
		r.Filename,
		r.DeformationAverage,
		r.TemperatureDifference,
		r.TemperatureAverage,
	}
	for i := 0; i < domain.HumiditySensorCount; i++ {
		v, measured := r.Calibrated(i)
		if !measured && opts.SuppressPadded {
			row = append(row, nil)
			continue
		}
		row = append(row, v)
	}
	return append(row, r.HumiditySensors)
}

// WriteSummaryCSV writes records as a BOM-prefixed CSV summary.
func WriteSummaryCSV(out io.Writer, records []domain.MetricsRecord, opts SummaryOptions) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, SummaryRow(r, opts))
	}
	return writeCSV(out, SummaryHeaders(), rows, true)
}

// WriteSummaryXLSX writes records to the Summary sheet of a new workbook.
func WriteSummaryXLSX(out io.Writer, records []domain.MetricsRecord, opts SummaryOptions) error {
	f, err := buildWorkbook(records, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteSummary dispatches on format.
func WriteSummary(out io.Writer, format Format, records []domain.MetricsRecord, opts SummaryOptions) error {
	switch format {
	case FormatXLSX:
		return WriteSummaryXLSX(out, records, opts)
	case FormatCSV:
		return WriteSummaryCSV(out, records, opts)
	}
	return fmt.Errorf("unknown export format %q", format)
}

func buildWorkbook(records []domain.MetricsRecord, opts SummaryOptions) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headers := SummaryHeaders()
	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SummarySheet, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(SummarySheet, "A1", last, bold)
	}

	for i, r := range records {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := sheetRow(r, opts)
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	return f, nil
}

// SummaryExporter writes summary files to the reports directory.
type SummaryExporter struct {
	csv    *CSVWriter
	paths  *config.Paths
	opts   SummaryOptions
	logger *slog.Logger
}

// NewSummaryExporter creates an exporter rooted at paths.ReportsDir.
func NewSummaryExporter(paths *config.Paths, opts SummaryOptions, logger *slog.Logger) *SummaryExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SummaryExporter{
		csv:    NewCSVWriter(paths, logger),
		paths:  paths,
		opts:   opts,
		logger: logger.With(slog.String("component", "summary_exporter")),
	}
}

// Options returns the rendering options of the exporter.
func (e *SummaryExporter) Options() SummaryOptions {
	return e.opts
}

// ExportFile writes the summary to filePath (relative paths land in the
// reports directory) and returns the written path.
func (e *SummaryExporter) ExportFile(filePath string, format Format, records []domain.MetricsRecord) (string, error) {
	switch format {
	case FormatCSV:
		return e.exportCSV(filePath, records)
	case FormatXLSX:
		return e.exportXLSX(filePath, records)
	}
	return "", fmt.Errorf("unknown export format %q", format)
}

func (e *SummaryExporter) exportCSV(filePath string, records []domain.MetricsRecord) (string, error) {
	stream, err := e.csv.CreateStreamWriter(filePath, SummaryHeaders())
	if err != nil {
		return "", err
	}
	for _, r := range records {
		if err := stream.WriteRecord(SummaryRow(r, e.opts)); err != nil {
			stream.Close()
			return "", fmt.Errorf("failed to write %s: %w", r.Filename, err)
		}
	}
	if err := stream.Close(); err != nil {
		return "", fmt.Errorf("failed to close summary: %w", err)
	}

	e.logger.Info("Summary exported",
		slog.String("format", string(FormatCSV)),
		slog.String("path", stream.Path()),
		slog.Int("record_count", stream.Rows()))
	return stream.Path(), nil
}

func (e *SummaryExporter) exportXLSX(filePath string, records []domain.MetricsRecord) (string, error) {
	fullPath := e.csv.resolvePath(filePath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := buildWorkbook(records, e.opts)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := f.SaveAs(fullPath); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	e.logger.Info("Summary exported",
		slog.String("format", string(FormatXLSX)),
		slog.String("path", fullPath),
		slog.Int("record_count", len(records)))
	return fullPath, nil
}

// FailureHeaders are the columns of a processing failure report.
var FailureHeaders = []string{"filename", "error"}

// ExportFailures writes one row per failed file next to the summary.
func (e *SummaryExporter) ExportFailures(filePath string, failures map[string]error) error {
	rows := make([][]string, 0, len(failures))
	for name, err := range failures {
		rows = append(rows, []string{name, err.Error()})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	return e.csv.WriteCSV(filePath, WriteOptions{
		Headers:   FailureHeaders,
		Records:   rows,
		BOMPrefix: true,
	})
}
