package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sensorcli/internal/config"
	"sensorcli/internal/dataprocessing"
	"sensorcli/internal/shared/testutil"
)

type fixture struct {
	in  string
	out string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	base := t.TempDir()
	t.Setenv("SENSOR_PATHS_BASE_DIR", base)
	f := fixture{in: filepath.Join(base, "in"), out: filepath.Join(base, "out")}
	require.NoError(t, os.MkdirAll(f.in, 0755))
	return f
}

func (f fixture) export(t *testing.T, year, month, day int) string {
	t.Helper()
	return testutil.WriteWorkbook(t, f.in, testutil.ExportName(year, month, day), testutil.ExportRows())
}

func (f fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.in, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readSummary(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := strings.TrimPrefix(string(data), "\ufeff")
	return strings.Split(strings.TrimSpace(text), "\n")
}

func TestRun_DirectoryToCSV(t *testing.T) {
	f := newFixture(t)
	f.export(t, 2024, 3, 6)
	f.export(t, 2024, 3, 5)
	f.write(t, "notes.txt", "ignored")
	f.write(t, "~$LOGGER_2024_03_07.xlsx", "lock")

	var logs bytes.Buffer
	res, err := run(context.Background(), options{inDir: f.in, outDir: f.out, format: "csv"}, nil, &logs)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 0, res.Failed)
	assert.Empty(t, res.FailuresPath)
	assert.Equal(t, filepath.Join(f.out, config.SummaryBaseName+".csv"), res.SummaryPath)

	lines := readSummary(t, res.SummaryPath)
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "date,filename,deformation_average"))
	assert.Contains(t, lines[1], testutil.ExportName(2024, 3, 5))
	assert.Contains(t, lines[2], testutil.ExportName(2024, 3, 6))
	assert.Contains(t, logs.String(), "Summary complete")
}

func TestRun_XLSX(t *testing.T) {
	f := newFixture(t)
	f.export(t, 2024, 3, 5)

	res, err := run(context.Background(), options{inDir: f.in, outDir: f.out, format: "xlsx"}, nil, &bytes.Buffer{})
	require.NoError(t, err)

	wb, err := excelize.OpenFile(res.SummaryPath)
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows(wb.GetSheetName(0))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRun_PartialFailureWritesReport(t *testing.T) {
	f := newFixture(t)
	f.export(t, 2024, 3, 5)
	f.write(t, "EMPTY_2024_03_06.csv", "Timestamp,Note\n")

	res, err := run(context.Background(), options{inDir: f.in, outDir: f.out}, nil, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Failed)
	require.NotEmpty(t, res.FailuresPath)

	lines := readSummary(t, res.FailuresPath)
	require.Len(t, lines, 2)
	assert.Equal(t, "filename,error", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "EMPTY_2024_03_06.csv,"))
}

func TestRun_StrictRejectsPadding(t *testing.T) {
	f := newFixture(t)
	f.export(t, 2024, 3, 5)

	_, err := run(context.Background(), options{inDir: f.in, outDir: f.out, strict: true}, nil, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dataprocessing.ErrFallbackRejected))

	var fe *dataprocessing.FallbackError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, dataprocessing.StageHumidityPadding, fe.Stage)
}

func TestRun_ExplicitFiles(t *testing.T) {
	f := newFixture(t)
	first := f.export(t, 2024, 3, 5)
	f.export(t, 2024, 3, 6)

	res, err := run(context.Background(), options{outDir: f.out}, []string{first}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
}

func TestRun_DateRange(t *testing.T) {
	f := newFixture(t)
	for day := 1; day <= 5; day++ {
		f.export(t, 2024, 3, day)
	}

	res, err := run(context.Background(), options{
		inDir:  f.in,
		outDir: f.out,
		since:  "2024-03-02",
		until:  "2024-03-04",
	}, nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Processed)
}

func TestRun_Pattern(t *testing.T) {
	f := newFixture(t)
	f.export(t, 2024, 3, 5)
	f.write(t, "OTHER_2024_03_05.csv", "Timestamp,Note\n")

	res, err := run(context.Background(), options{inDir: f.in, outDir: f.out, pattern: "LOGGER_*"}, nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 0, res.Failed)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name          string
		opts          func(f fixture) options
		args          func(t *testing.T, f fixture) []string
		errorContains string
	}{
		{
			name:          "unknown format",
			opts:          func(f fixture) options { return options{inDir: f.in, outDir: f.out, format: "pdf"} },
			errorContains: "pdf",
		},
		{
			name:          "malformed since",
			opts:          func(f fixture) options { return options{inDir: f.in, outDir: f.out, since: "05/03/2024"} },
			errorContains: "expected YYYY-MM-DD",
		},
		{
			name: "until before since",
			opts: func(f fixture) options {
				return options{inDir: f.in, outDir: f.out, since: "2024-03-05", until: "2024-03-01"}
			},
			errorContains: "is before",
		},
		{
			name:          "missing input directory",
			opts:          func(f fixture) options { return options{inDir: filepath.Join(f.in, "missing"), outDir: f.out} },
			errorContains: "does not exist",
		},
		{
			name:          "no exports",
			opts:          func(f fixture) options { return options{inDir: f.in, outDir: f.out} },
			errorContains: "no exports found",
		},
		{
			name: "unsupported explicit file",
			opts: func(f fixture) options { return options{outDir: f.out} },
			args: func(t *testing.T, f fixture) []string {
				return []string{f.write(t, "notes.txt", "x")}
			},
			errorContains: "not a supported export",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			var args []string
			if tt.args != nil {
				args = tt.args(t, f)
			}

			_, err := run(context.Background(), tt.opts(f), args, &bytes.Buffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestExecute(t *testing.T) {
	f := newFixture(t)
	f.export(t, 2024, 3, 5)

	var stdout, stderr bytes.Buffer
	code := execute([]string{"--in", f.in, "--out", f.out, "--format", "csv", "--workers", "2"}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "processed 1 file(s), 0 failed")
	assert.FileExists(t, filepath.Join(f.out, config.SummaryBaseName+".csv"))
}

func TestExecute_Failure(t *testing.T) {
	f := newFixture(t)

	var stdout, stderr bytes.Buffer
	code := execute([]string{"--in", f.in, "--out", f.out, "--format", "pdf"}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error:")
	assert.Empty(t, stdout.String())
}
