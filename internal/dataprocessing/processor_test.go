package dataprocessing

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchProcessor_ProcessFiles(t *testing.T) {
	dir := t.TempDir()

	good := writeWorkbook(t, dir, "log_2024_03_15.xlsx", [][]interface{}{
		{"Def_1", "Temp_1_Cal", "Hum_1", "Hum_2"},
		{10, 20, 50, -1000000},
		{12, 22, 52, 40},
		{14, 21, 51, 41},
	})
	noNumbers := writeWorkbook(t, dir, "labels_2024_03_16.xlsx", [][]interface{}{
		{"Name", "Status"},
		{"probe", "ok"},
	})
	csvPath := filepath.Join(dir, "site_2024_03_17.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Def;Temp;Hum\n1,5;20;40\n2,5;21;60\n"), 0o644))
	unsupported := filepath.Join(dir, "readme.txt")
	require.NoError(t, os.WriteFile(unsupported, []byte("hello"), 0o644))

	summarizer := NewSummarizer(nil)
	require.NoError(t, summarizer.Add(context.Background(), testRecord("old_2024_01_01.xlsx", 1)))

	calc := NewCalculator(DefaultCalibrationConfig(), nil)
	proc := NewBatchProcessor(calc, summarizer, ProcessorOptions{Workers: 2, Sentinels: DefaultSentinels}, nil)

	var mu sync.Mutex
	observed := 0
	proc.SetObserver(func(context.Context, FileResult) {
		mu.Lock()
		observed++
		mu.Unlock()
	})

	paths := []string{good, noNumbers, csvPath, good, unsupported, filepath.Join(dir, "old_2024_01_01.xlsx")}
	results, err := proc.ProcessFiles(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, results, len(paths))

	// Input order is preserved.
	for i, p := range paths {
		assert.Equal(t, p, results[i].Path)
	}

	require.True(t, results[0].OK(), "%v", results[0].Err)
	assert.Equal(t, "15/03/2024", results[0].Record.Date)
	assert.InDelta(t, 14.4, results[0].Record.DeformationAverage, delta)
	assert.Equal(t, []string{"Hum_2"}, results[0].Dropped)
	assert.Equal(t, 1, results[0].Record.HumiditySensors)

	assert.ErrorIs(t, results[1].Err, ErrMissingChannel)

	require.True(t, results[2].OK(), "%v", results[2].Err)
	assert.InDelta(t, 2.0*1.2, results[2].Record.DeformationAverage, delta)

	assert.ErrorIs(t, results[3].Err, ErrDuplicateFile)
	assert.ErrorIs(t, results[4].Err, ErrUnsupportedFormat)
	assert.ErrorIs(t, results[5].Err, ErrDuplicateFile)

	assert.Equal(t, 3, summarizer.Len())
	assert.Equal(t, len(paths), observed)
}

func TestBatchProcessor_Cancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkbook(t, dir, "a.xlsx", [][]interface{}{{"Def", "Temp"}, {1, 2}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	proc := NewBatchProcessor(NewCalculator(DefaultCalibrationConfig(), nil), nil, ProcessorOptions{}, nil)
	results, err := proc.ProcessFiles(ctx, []string{path})

	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}

func TestBatchProcessor_StrictMode(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkbook(t, dir, "a.xlsx", [][]interface{}{{"Def", "Temp"}, {1, 2}})

	cfg := DefaultCalibrationConfig()
	cfg.Mode = ModeStrict
	proc := NewBatchProcessor(NewCalculator(cfg, nil), nil, ProcessorOptions{Workers: 1}, nil)

	results, err := proc.ProcessFiles(context.Background(), []string{path})
	require.NoError(t, err)
	assert.ErrorIs(t, results[0].Err, ErrFallbackRejected)
}

func TestBatchProcessor_ProcessTableInfinityCell(t *testing.T) {
	table, err := NewParser(nil).ParseCSV(strings.NewReader("Def_1,Temp_1,Hum_1\n10,20,50\ninf,21,51\n"))
	require.NoError(t, err)

	def, ok := table.Column("Def_1")
	require.True(t, ok)
	assert.False(t, def.IsNumeric(), "an infinity cell makes the column text")

	processor := NewBatchProcessor(NewCalculator(DefaultCalibrationConfig(), nil), nil, ProcessorOptions{}, nil)
	calc, _, err := processor.ProcessTable(table, "log_2024_03_15.csv")
	require.NoError(t, err)

	rec := calc.Record
	assert.InDelta(t, 10*1.2, rec.DeformationAverage, 1e-9)
	for i, v := range rec.HumidityCalibrated {
		assert.False(t, math.IsInf(v, 0) || math.IsNaN(v), "sensor %d", i)
	}

	_, err = json.Marshal(rec)
	assert.NoError(t, err)
}
