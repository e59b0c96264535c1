package config

import "time"

// Application constants
const (
	// Application Info
	AppName    = "Sensor Calibration Service"
	AppVersion = "1.0.0"

	// Network Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// Endpoints
	APIBasePath       = "/api"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"

	// SummaryBaseName names summary exports, e.g. sensor_summary.xlsx
	SummaryBaseName = "sensor_summary"

	// Upload form fields
	UploadFileField   = "file"
	UploadStrictField = "strict"
)
