package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths(t *testing.T) {
	t.Run("relative paths join base dir", func(t *testing.T) {
		base := t.TempDir()
		cfg := Default()
		cfg.Paths.BaseDir = base

		paths, err := ResolvePaths(cfg)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(base, "data"), paths.DataDir)
		assert.Equal(t, filepath.Join(base, "data", "uploads"), paths.UploadsDir)
		assert.Equal(t, filepath.Join(base, "data", "reports"), paths.ReportsDir)
		assert.Equal(t, filepath.Join(base, "logs"), paths.LogsDir)
		assert.Equal(t, filepath.Join(base, "data", "sensor.db"), paths.DatabaseFile)
		assert.Equal(t, filepath.Join(paths.ReportsDir, "sensor_summary.csv"), paths.SummaryCSV)
	})

	t.Run("absolute paths kept", func(t *testing.T) {
		abs := t.TempDir()
		cfg := Default()
		cfg.Paths.BaseDir = t.TempDir()
		cfg.Paths.ReportsDir = abs

		paths, err := ResolvePaths(cfg)
		require.NoError(t, err)
		assert.Equal(t, abs, paths.ReportsDir)
	})

	t.Run("executable dir by default", func(t *testing.T) {
		paths, err := ResolvePaths(Default())
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(paths.BaseDir))
		assert.Equal(t, filepath.Join(paths.BaseDir, "logs"), paths.LogsDir)
	})
}

func TestPaths_EnsureDirectories(t *testing.T) {
	cfg := Default()
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Storage.Path = "db/nested/sensor.db"

	paths, err := ResolvePaths(cfg)
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	for _, dir := range []string{paths.DataDir, paths.UploadsDir, paths.ReportsDir, paths.LogsDir, filepath.Dir(paths.DatabaseFile)} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}
}

func TestPaths_Helpers(t *testing.T) {
	p := &Paths{UploadsDir: "/u", ReportsDir: "/r", LogsDir: "/l"}

	assert.Equal(t, filepath.Join("/u", "a.xlsx"), p.GetUploadPath("../../a.xlsx"))
	assert.Equal(t, filepath.Join("/r", "s.csv"), p.GetReportPath("s.csv"))
	assert.Equal(t, filepath.Join("/l", "app.log"), p.GetLogPath("app.log"))

	assert.False(t, FileExists(filepath.Join(t.TempDir(), "missing")))
}
