package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"sensorcli/internal/config"
)

// Health states.
const (
	StatusOK       = "ok"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	StatusDisabled = "disabled"
)

const healthCheckTimeout = 2 * time.Second

// HealthChecker is a dependency probed by the readiness check.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthService reports liveness, readiness and version information.
type HealthService struct {
	version   string
	buildTime string
	paths     *config.Paths
	store     HealthChecker
	points    HealthChecker
	hub       WebSocketHub
	records   func() int
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus is the health response body.
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth is the state of one dependency.
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthOptions lists the dependencies probed by ReadinessCheck. Nil
// checkers are reported as disabled.
type HealthOptions struct {
	Version   string
	BuildTime string
	Paths     *config.Paths
	Store     HealthChecker
	Points    HealthChecker
	Hub       WebSocketHub
	Records   func() int
}

// NewHealthService creates a health service.
func NewHealthService(opts HealthOptions, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   opts.Version,
		buildTime: opts.BuildTime,
		paths:     opts.Paths,
		store:     opts.Store,
		points:    opts.Points,
		hub:       opts.Hub,
		records:   opts.Records,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns the overall status including dependency readiness.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := hs.ReadinessCheck(ctx)
	if status.Status == StatusReady {
		status.Status = StatusOK
	}
	status.Runtime = hs.runtimeInfo()

	hs.logger.DebugContext(ctx, "Health check completed",
		slog.String("status", status.Status))
	return status
}

// ReadinessCheck probes every configured dependency.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"store":     probe(ctx, hs.store),
			"influxdb":  probe(ctx, hs.points),
			"websocket": hs.checkWebSocket(),
			"data":      hs.checkDataDir(),
		},
	}

	for name, svc := range status.Services {
		if svc.Status == StatusNotReady {
			status.Status = StatusNotReady
			hs.logger.WarnContext(ctx, "Dependency not ready",
				slog.String("service", name),
				slog.String("message", svc.Message))
		}
	}
	return status
}

// LivenessCheck reports that the process is serving.
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime:   hs.runtimeInfo(),
	}
}

// Version returns version information.
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"start_time": hs.startTime.Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}

func (hs *HealthService) runtimeInfo() map[string]interface{} {
	info := map[string]interface{}{
		"uptime_seconds": time.Since(hs.startTime).Seconds(),
		"go_version":     runtime.Version(),
		"goroutines":     runtime.NumGoroutine(),
	}
	if hs.records != nil {
		info["records"] = hs.records()
	}
	if hs.hub != nil {
		info["websocket_clients"] = hs.hub.ClientCount()
	}
	return info
}

func probe(ctx context.Context, c HealthChecker) ServiceHealth {
	if c == nil {
		return ServiceHealth{Status: StatusDisabled}
	}
	if err := c.HealthCheck(ctx); err != nil {
		return ServiceHealth{Status: StatusNotReady, Message: err.Error()}
	}
	return ServiceHealth{Status: StatusReady}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: StatusDisabled}
	}
	return ServiceHealth{
		Status:  StatusReady,
		Message: fmt.Sprintf("%d clients connected", hs.hub.ClientCount()),
	}
}

func (hs *HealthService) checkDataDir() ServiceHealth {
	if hs.paths == nil || hs.paths.DataDir == "" {
		return ServiceHealth{Status: StatusDisabled}
	}
	info, err := os.Stat(hs.paths.DataDir)
	if err != nil {
		return ServiceHealth{
			Status:  StatusNotReady,
			Message: fmt.Sprintf("data directory not accessible: %v", err),
		}
	}
	if !info.IsDir() {
		return ServiceHealth{
			Status:  StatusNotReady,
			Message: fmt.Sprintf("data path is not a directory: %s", hs.paths.DataDir),
		}
	}
	return ServiceHealth{Status: StatusReady}
}
