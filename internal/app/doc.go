// Package app wires the sensor service together and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration (environment over YAML over defaults)
//	2. Resolve and create the data, uploads, reports and logs directories
//	3. Initialize slog and OpenTelemetry (Prometheus metrics, optional tracing)
//	4. Open the SQLite record store and, when enabled, the InfluxDB sink
//	5. Start the WebSocket hub
//	6. Build MetricsService and hydrate its summary from the store
//	7. Mount handlers and middleware on a chi router
//
// # Usage
//
//	a, err := app.NewApplication(nil, nil)
//	if err != nil {
//	    return err
//	}
//	return a.Run()
//
// Run blocks until SIGINT or SIGTERM and then shuts down gracefully: the
// server drains, WebSocket clients are closed, buffered InfluxDB points are
// flushed and the record store is closed. Errors are returned, never passed
// to os.Exit.
package app
