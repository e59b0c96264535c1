// Package dataprocessing turns sensor-logger exports into calibrated metrics.
//
// # Architecture
//
// The package is organized into four stages:
//
// 1. Parser: reads .xlsx and .csv exports into a domain.Table
// 2. Classifier: assigns deformation, temperature and humidity roles to columns
// 3. Calculator: filters readings and applies the per-sensor calibration model
// 4. Summarizer: accumulates one MetricsRecord per file and serves time series
//
// BatchProcessor runs the first three stages over many files with a bounded
// worker pool and feeds the Summarizer.
//
// # Usage
//
//	parser := dataprocessing.NewParser(logger)
//	table, err := parser.ParseFile("log_2024_03_15.xlsx")
//	if err != nil {
//	    return err
//	}
//
//	calc := dataprocessing.NewCalculator(dataprocessing.DefaultCalibrationConfig(), logger)
//	record, err := calc.Process(table, "log_2024_03_15.xlsx")
//
// # Data Flow
//
//	Export → Parser → Table → Classifier → Calculator → MetricsRecord → Summarizer
//
// # Error Handling
//
// Lenient mode (the default) resolves missing channels through fallbacks and
// only fails with *MissingChannelError when a table has nothing computable.
// Strict mode returns *FallbackError for any fallback instead. Both support
// errors.Is against ErrMissingChannel and ErrFallbackRejected.
package dataprocessing
