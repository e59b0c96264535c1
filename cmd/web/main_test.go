package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensorcli/internal/dataprocessing"
)

func TestBuildConfig(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("server:\n  port: 9090\ncalibration:\n  mode: lenient\n"), 0644))

	tests := []struct {
		name     string
		opts     options
		wantPort int
		wantMode string
		wantBase string
		wantErr  string
	}{
		{name: "file values", opts: options{configFile: configFile}, wantPort: 9090, wantMode: "lenient"},
		{name: "port flag wins", opts: options{configFile: configFile, port: 7000}, wantPort: 7000, wantMode: "lenient"},
		{name: "strict flag", opts: options{configFile: configFile, strict: true}, wantPort: 9090, wantMode: string(dataprocessing.ModeStrict)},
		{name: "base dir", opts: options{configFile: configFile, baseDir: dir}, wantPort: 9090, wantMode: "lenient", wantBase: dir},
		{name: "port out of range", opts: options{configFile: configFile, port: 70000}, wantErr: "invalid port"},
		{name: "missing file", opts: options{configFile: filepath.Join(dir, "missing.yaml")}, wantErr: "failed to load configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := buildConfig(tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPort, cfg.Server.Port)
			assert.Equal(t, tt.wantMode, cfg.Calibration.Mode)
			if tt.wantBase != "" {
				assert.Equal(t, tt.wantBase, cfg.Paths.BaseDir)
			}
		})
	}
}

func TestExecute_RejectsArgs(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 1, execute([]string{"unexpected"}, &stderr))
	assert.Contains(t, stderr.String(), "Error:")
}
