// Package services implements the business logic layer between the HTTP
// handlers and the processing, storage and live-feed packages.
//
// # Services
//
//	- MetricsService: accepts uploaded sensor exports, classifies their
//	  columns, computes calibrated metrics and keeps the running summary.
//	- HealthService: liveness, readiness and version information.
//
// # Publication
//
// Every record accumulated by MetricsService is published, in order, to the
// record store, the time-series sink and the WebSocket hub. Publication
// failures are logged and counted but never reject the upload; the record
// stays in the in-memory summary.
//
// Collaborators are consumed through small interfaces (RecordStore,
// PointWriter, WebSocketHub) so tests can substitute the testify mocks in
// test_helpers.go.
package services
