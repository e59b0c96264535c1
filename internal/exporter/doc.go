// Package exporter writes the accumulated metrics records as summary files.
//
// The summary has one row per processed export with the columns
//
//	date, filename, deformation_average, temperature_difference,
//	temperature_average, humidity_calibrated_0..4, humidity_sensors
//
// CSV output starts with a UTF-8 BOM so Excel detects the encoding and
// formats metrics with four decimals. XLSX output stores numbers in the
// Summary sheet.
//
// Example usage:
//
//	exp := exporter.NewSummaryExporter(paths, exporter.SummaryOptions{}, logger)
//	path, err := exp.ExportFile("sensor_summary.csv", exporter.FormatCSV, records)
//
// WriteSummary renders to any io.Writer, which the HTTP export endpoint uses.
package exporter
