package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("content"), 0644))
	}
}

func names(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func TestNewDiscovery(t *testing.T) {
	discovery := NewDiscovery("/test/base")

	assert.NotNil(t, discovery)
	assert.Equal(t, "/test/base", discovery.basePath)
}

func TestFindExports(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		expected []string
	}{
		{
			name:     "supported extensions regardless of case",
			files:    []string{"LOGGER_2024_03_05.xlsx", "LOGGER_2024_03_04.CSV", "LOGGER_2024_03_06.xlsm"},
			expected: []string{"LOGGER_2024_03_04.CSV", "LOGGER_2024_03_05.xlsx", "LOGGER_2024_03_06.xlsm"},
		},
		{
			name:     "unsupported files ignored",
			files:    []string{"LOGGER_2024_03_05.xlsx", "notes.txt", "legacy.xls", "report.pdf"},
			expected: []string{"LOGGER_2024_03_05.xlsx"},
		},
		{
			name:     "lock and hidden files skipped",
			files:    []string{"~$LOGGER_2024_03_05.xlsx", ".LOGGER_2024_03_05.csv", "LOGGER_2024_03_05.xlsx"},
			expected: []string{"LOGGER_2024_03_05.xlsx"},
		},
		{
			name:     "undated files last by name",
			files:    []string{"zeta.csv", "alpha.csv", "LOGGER_2024_01_01.csv"},
			expected: []string{"LOGGER_2024_01_01.csv", "alpha.csv", "zeta.csv"},
		},
		{
			name:     "same date ordered by name",
			files:    []string{"B_2024_03_05.csv", "A_2024_03_05.csv"},
			expected: []string{"A_2024_03_05.csv", "B_2024_03_05.csv"},
		},
		{
			name:     "empty directory",
			files:    nil,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := t.TempDir()
			writeFiles(t, filepath.Join(base, "exports"), tt.files...)

			files, err := NewDiscovery(base).FindExports("exports")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, names(files))

			for _, f := range files {
				assert.Equal(t, filepath.Join(base, "exports", f.Name), f.Path)
				assert.Greater(t, f.Size, int64(0))
			}
		})
	}
}

func TestFindExports_SkipsDirectories(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "nested.csv"), 0755))
	writeFiles(t, base, "LOGGER_2024_03_05.csv")

	files, err := NewDiscovery("").FindExports(base)
	require.NoError(t, err)
	assert.Equal(t, []string{"LOGGER_2024_03_05.csv"}, names(files))
}

func TestFindExports_MissingDirectory(t *testing.T) {
	_, err := NewDiscovery(t.TempDir()).FindExports("missing")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read directory")
}

func TestFindExports_ParsesDate(t *testing.T) {
	base := t.TempDir()
	writeFiles(t, base, "LOGGER_2024_03_05.xlsx", "undated.csv")

	files, err := NewDiscovery("").FindExports(base)
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.True(t, files[0].Dated)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), files[0].Date)
	assert.False(t, files[1].Dated)
	assert.True(t, files[1].Date.IsZero())
}

func TestFindFilesByPattern(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		pattern  string
		expected []string
	}{
		{
			name:     "prefix wildcard",
			files:    []string{"LOGGER_2024_03_05.csv", "LOGGER_2024_03_06.xlsx", "OTHER_2024_03_05.csv"},
			pattern:  "LOGGER_*",
			expected: []string{"LOGGER_2024_03_05.csv", "LOGGER_2024_03_06.xlsx"},
		},
		{
			name:     "unsupported matches dropped",
			files:    []string{"LOGGER_2024_03_05.csv", "LOGGER_2024_03_05.txt"},
			pattern:  "LOGGER_*",
			expected: []string{"LOGGER_2024_03_05.csv"},
		},
		{
			name:     "no matches",
			files:    []string{"LOGGER_2024_03_05.csv"},
			pattern:  "*.xlsm",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := t.TempDir()
			writeFiles(t, base, tt.files...)

			files, err := NewDiscovery(base).FindFilesByPattern(".", tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, names(files))
		})
	}
}

func TestFindFilesByPattern_InvalidPattern(t *testing.T) {
	_, err := NewDiscovery(t.TempDir()).FindFilesByPattern(".", "[")
	assert.Error(t, err)
}

func TestFilterFilesByDateRange(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	files := []FileInfo{
		{Name: "a", Date: day(1), Dated: true},
		{Name: "b", Date: day(5), Dated: true},
		{Name: "c", Date: day(9), Dated: true},
		{Name: "undated"},
	}

	tests := []struct {
		name     string
		from, to time.Time
		expected []string
	}{
		{name: "open range keeps all", expected: []string{"a", "b", "c", "undated"}},
		{name: "inclusive bounds", from: day(1), to: day(5), expected: []string{"a", "b"}},
		{name: "from only", from: day(5), expected: []string{"b", "c"}},
		{name: "to only", to: day(4), expected: []string{"a"}},
		{name: "nothing in range", from: day(10), expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, names(FilterFilesByDateRange(files, tt.from, tt.to)))
		})
	}
}

func TestPaths(t *testing.T) {
	files := []FileInfo{{Path: "/a/x.csv"}, {Path: "/a/y.csv"}}
	assert.Equal(t, []string{"/a/x.csv", "/a/y.csv"}, Paths(files))
	assert.Empty(t, Paths(nil))
}
