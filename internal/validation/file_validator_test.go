package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensorcli/internal/shared/testutil"
)

func newValidator(t *testing.T) *FileValidator {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewFileValidator(logger)
}

func TestFileValidator_ValidateInputDirectory(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		wantErr       bool
		errorContains string
	}{
		{
			name: "directory with exports",
			setupFunc: func(t *testing.T) string {
				dir := t.TempDir()
				require.NoError(t, os.WriteFile(filepath.Join(dir, "LOGGER_2024_03_05.xlsx"), []byte("test"), 0644))
				return dir
			},
		},
		{
			name: "empty directory",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
		},
		{
			name: "non-existent directory",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing")
			},
			wantErr:       true,
			errorContains: "does not exist",
		},
		{
			name: "path is file not directory",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "test.csv")
				require.NoError(t, os.WriteFile(file, []byte("test"), 0644))
				return file
			},
			wantErr:       true,
			errorContains: "not a directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newValidator(t).ValidateInputDirectory(tt.setupFunc(t))

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
	}{
		{
			name: "existing directory",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
		},
		{
			name: "nested directory is created",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "new", "nested", "dir")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setupFunc(t)

			require.NoError(t, newValidator(t).ValidateOutputDirectory(dir))

			info, err := os.Stat(dir)
			require.NoError(t, err)
			assert.True(t, info.IsDir())
			_, err = os.Stat(filepath.Join(dir, ".write_test"))
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestFileValidator_ValidateOutputDirectory_BlockedByFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	err := newValidator(t).ValidateOutputDirectory(filepath.Join(file, "out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output directory")
}

func TestFileValidator_ValidateExport(t *testing.T) {
	dir := t.TempDir()
	write := func(name string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("test"), 0644))
		return path
	}

	tests := []struct {
		name          string
		path          string
		errorContains string
	}{
		{name: "xlsx export", path: write("LOGGER_2024_03_05.xlsx")},
		{name: "macro workbook", path: write("LOGGER_2024_03_05.xlsm")},
		{name: "csv upper case", path: write("LOGGER_2024_03_05.CSV")},
		{name: "legacy xls", path: write("LOGGER_2024_03_05.xls"), errorContains: "not a supported export"},
		{name: "text file", path: write("notes.txt"), errorContains: "not a supported export"},
		{name: "lock file", path: write("~$LOGGER_2024_03_05.xlsx"), errorContains: "lock file"},
		{name: "missing", path: filepath.Join(dir, "missing.csv"), errorContains: "does not exist"},
		{name: "directory", path: dir, errorContains: "is a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newValidator(t).ValidateExport(tt.path)
			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}
