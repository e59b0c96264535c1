package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"sensorcli/internal/config"
)

func TestHealthService_ReadinessCheck(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name        string
		storeErr    error
		withPoints  bool
		dataDir     string
		wantStatus  string
		wantService map[string]string
	}{
		{
			name:       "all ready",
			withPoints: true,
			dataDir:    dir,
			wantStatus: StatusReady,
			wantService: map[string]string{
				"store": StatusReady, "influxdb": StatusReady, "websocket": StatusReady, "data": StatusReady,
			},
		},
		{
			name:       "influx disabled",
			dataDir:    dir,
			wantStatus: StatusReady,
			wantService: map[string]string{
				"store": StatusReady, "influxdb": StatusDisabled,
			},
		},
		{
			name:       "store failing",
			storeErr:   errors.New("database is locked"),
			dataDir:    dir,
			wantStatus: StatusNotReady,
			wantService: map[string]string{
				"store": StatusNotReady,
			},
		},
		{
			name:       "missing data dir",
			dataDir:    filepath.Join(dir, "missing"),
			wantStatus: StatusNotReady,
			wantService: map[string]string{
				"data": StatusNotReady,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockRecordStore)
			store.On("HealthCheck", mock.Anything).Return(tt.storeErr)
			hub := new(MockWebSocketHub)
			hub.On("ClientCount").Return(2)

			opts := HealthOptions{
				Version: "1.0.0",
				Paths:   &config.Paths{DataDir: tt.dataDir},
				Store:   store,
				Hub:     hub,
			}
			if tt.withPoints {
				points := new(MockPointWriter)
				points.On("HealthCheck", mock.Anything).Return(nil)
				opts.Points = points
			}

			hs := NewHealthService(opts, nil)
			status := hs.ReadinessCheck(context.Background())

			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Equal(t, "1.0.0", status.Version)
			for name, want := range tt.wantService {
				assert.Equal(t, want, status.Services[name].Status, name)
			}
		})
	}
}

func TestHealthService_HealthCheck(t *testing.T) {
	hub := new(MockWebSocketHub)
	hub.On("ClientCount").Return(3)

	hs := NewHealthService(HealthOptions{
		Version: "1.0.0",
		Hub:     hub,
		Records: func() int { return 7 },
	}, nil)

	status := hs.HealthCheck(context.Background())
	assert.Equal(t, StatusOK, status.Status)
	assert.Equal(t, 7, status.Runtime["records"])
	assert.Equal(t, 3, status.Runtime["websocket_clients"])
	assert.Equal(t, StatusDisabled, status.Services["store"].Status)
}

func TestHealthService_LivenessAndVersion(t *testing.T) {
	hs := NewHealthService(HealthOptions{Version: "1.0.0", BuildTime: "2024-03-05"}, nil)

	live := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", live.Status)
	assert.Contains(t, live.Runtime, "goroutines")

	v := hs.Version()
	assert.Equal(t, "1.0.0", v["version"])
	assert.Equal(t, "2024-03-05", v["build_time"])
}
