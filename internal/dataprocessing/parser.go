package dataprocessing

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"sensorcli/pkg/contracts/domain"
)

// headerScanRows is how many leading rows are searched for a header row.
const headerScanRows = 5

// headerKeywords mark a row as the header row of a sensor export.
var headerKeywords = []string{"def", "temp", "hum", "cal", "time", "timestamp"}

// Parser reads sensor exports into tables.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser. A nil logger uses slog.Default().
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger.With(slog.String("component", "parser"))}
}

// IsSupported reports whether filename has an extension the parser reads.
func IsSupported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".csv":
		return true
	}
	return false
}

// ParseFile reads the export at path, picking the reader from its extension.
func (p *Parser) ParseFile(path string) (*domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return p.ParseReader(f, filepath.Base(path))
}

// ParseReader reads an export from r. filename selects the format.
func (p *Parser) ParseReader(r io.Reader, filename string) (*domain.Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return p.ParseWorkbook(r)
	case ".csv":
		return p.ParseCSV(r)
	}
	return nil, fmt.Errorf("%s: %w", filename, ErrUnsupportedFormat)
}

// ParseWorkbook reads the first sheet of an Excel workbook.
func (p *Parser) ParseWorkbook(r io.Reader) (*domain.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoData
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	p.logger.Debug("workbook read",
		slog.String("sheet_name", sheets[0]),
		slog.Int("total_rows", len(rows)))

	return p.BuildTable(rows)
}

// ParseCSV reads a comma- or semicolon-separated export.
func (p *Parser) ParseCSV(r io.Reader) (*domain.Table, error) {
	br := bufio.NewReader(r)
	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.Comma = sniffDelimiter(br)

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	p.logger.Debug("csv read",
		slog.String("delimiter", string(reader.Comma)),
		slog.Int("total_rows", len(rows)))

	return p.BuildTable(rows)
}

// sniffDelimiter picks ';' when the first line uses it and has no comma.
func sniffDelimiter(br *bufio.Reader) rune {
	peek, _ := br.Peek(4096)
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		peek = peek[:i]
	}
	if bytes.Count(peek, []byte{';'}) > 0 && bytes.Count(peek, []byte{','}) == 0 {
		return ';'
	}
	return ','
}

// BuildTable turns raw rows into a table. The header is the first of the
// leading rows mentioning a sensor keyword; without one, every row is data and
// columns are named Column_0..n. Fully empty rows are dropped and repeated
// header names get .1, .2 suffixes.
func (p *Parser) BuildTable(rows [][]string) (*domain.Table, error) {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return nil, ErrNoData
	}

	headerRow := findHeaderRow(rows)
	var names []string
	data := rows
	if headerRow >= 0 {
		names = headerNames(rows[headerRow], width)
		data = rows[headerRow+1:]
	} else {
		names = make([]string, width)
		for i := range names {
			names[i] = fmt.Sprintf("Column_%d", i)
		}
	}

	columns := make([]domain.Column, width)
	for i, name := range names {
		columns[i] = domain.Column{Name: name}
	}

	kept := 0
	for _, row := range data {
		cells := make([]domain.Cell, width)
		empty := true
		for i := 0; i < width; i++ {
			var raw string
			if i < len(row) {
				raw = row[i]
			}
			cells[i] = ParseCell(raw)
			if cells[i].Kind != domain.CellMissing {
				empty = false
			}
		}
		if empty {
			continue
		}
		for i := range columns {
			columns[i].Cells = append(columns[i].Cells, cells[i])
		}
		kept++
	}

	if kept == 0 {
		return nil, ErrNoData
	}

	p.logger.Debug("table built",
		slog.Int("header_row", headerRow),
		slog.Int("columns", width),
		slog.Int("rows", kept),
		slog.Any("names", names))

	return domain.NewTable(columns...), nil
}

// findHeaderRow returns the index of the header row, or -1.
func findHeaderRow(rows [][]string) int {
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		for _, cell := range rows[i] {
			value := strings.ToLower(cell)
			for _, kw := range headerKeywords {
				if strings.Contains(value, kw) {
					return i
				}
			}
		}
	}
	return -1
}

// headerNames trims header cells, names blanks and makes repeats unique.
// A repeated name gets the first ".N" suffix no other column already uses.
func headerNames(row []string, width int) []string {
	names := make([]string, width)
	used := make(map[string]bool, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(row) {
			name = strings.TrimSpace(row[i])
		}
		if name == "" {
			name = fmt.Sprintf("Column_%d", i)
		}
		if used[name] {
			base := name
			for n := 1; used[name]; n++ {
				name = fmt.Sprintf("%s.%d", base, n)
			}
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// ParseCell coerces a raw spreadsheet value. Blank is missing; a decimal comma
// is accepted when the value has no dot; infinities and anything else
// non-numeric are text.
func ParseCell(raw string) domain.Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return domain.Missing()
	}
	if v, ok := parseNumber(s); ok {
		return domain.Num(v)
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		if v, ok := parseNumber(strings.Replace(s, ",", ".", 1)); ok {
			return domain.Num(v)
		}
	}
	return domain.Text(s)
}

// parseNumber accepts finite floats and NaN. NaN becomes a missing cell.
func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
