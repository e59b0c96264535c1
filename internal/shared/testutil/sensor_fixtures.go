package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"sensorcli/pkg/contracts/domain"
)

// ExportRows returns the rows of a small logger export with a header row,
// one deformation, one temperature and two humidity channels.
func ExportRows() [][]interface{} {
	return [][]interface{}{
		{"Timestamp", "DEF_1", "TEMP_1", "HUM_A", "HUM_B"},
		{"08:00", 10.0, 20.0, 40.0, 50.0},
		{"09:00", 12.0, 22.0, 42.0, 52.0},
		{"10:00", 14.0, 24.0, 44.0, 54.0},
	}
}

// WriteWorkbook writes rows to the first sheet of a new workbook in dir and
// returns its path.
func WriteWorkbook(t *testing.T, dir, name string, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row %d: %v", i, err)
		}
	}

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

// WorkbookBytes returns the encoded workbook for rows, for upload tests.
func WorkbookBytes(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	path := WriteWorkbook(t, t.TempDir(), "upload.xlsx", rows)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read workbook: %v", err)
	}
	return data
}

// NewRecord returns a metrics record dated from its file name.
func NewRecord(date, filename string) domain.MetricsRecord {
	return domain.MetricsRecord{
		Date:                  date,
		Filename:              filename,
		DeformationAverage:    1.5,
		TemperatureDifference: 2,
		TemperatureAverage:    21,
		HumidityCalibrated:    [domain.HumiditySensorCount]float64{10, 20, 30, 40, 50},
		HumidityMeasured:      domain.MeasuredMask(2),
		HumiditySensors:       2,
	}
}

// ExportName builds a logger export name carrying the given date.
func ExportName(year, month, day int) string {
	return fmt.Sprintf("LOGGER_%04d_%02d_%02d.xlsx", year, month, day)
}
