package domain

import (
	"math"
	"strings"
)

// CellKind tells a missing cell, a numeric cell and a free-text cell apart.
type CellKind uint8

const (
	CellMissing CellKind = iota
	CellNumber
	CellText
)

// Cell is a single value of an ingested spreadsheet column.
// Number is only meaningful when Kind is CellNumber, Text only when Kind is CellText.
type Cell struct {
	Kind   CellKind `json:"kind"`
	Number float64  `json:"number,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Num returns a numeric cell. NaN is stored as a missing cell.
func Num(v float64) Cell {
	if math.IsNaN(v) {
		return Cell{Kind: CellMissing}
	}
	return Cell{Kind: CellNumber, Number: v}
}

// Text returns a free-text cell.
func Text(s string) Cell {
	return Cell{Kind: CellText, Text: s}
}

// Missing returns an empty cell.
func Missing() Cell {
	return Cell{Kind: CellMissing}
}

// Float returns the numeric value of the cell, or NaN when the cell is
// missing or not numeric.
func (c Cell) Float() float64 {
	if c.Kind == CellNumber {
		return c.Number
	}
	return math.NaN()
}

// Column is one named column of an ingested table.
type Column struct {
	Name  string `json:"name"`
	Cells []Cell `json:"cells"`
}

// NewNumericColumn builds a column from plain floats; NaN entries become missing.
func NewNumericColumn(name string, values ...float64) Column {
	cells := make([]Cell, len(values))
	for i, v := range values {
		cells[i] = Num(v)
	}
	return Column{Name: name, Cells: cells}
}

// Floats coerces the column to numbers. Missing and text cells become NaN.
// The returned slice is freshly allocated.
func (c Column) Floats() []float64 {
	out := make([]float64, len(c.Cells))
	for i, cell := range c.Cells {
		out[i] = cell.Float()
	}
	return out
}

// IsNumeric reports whether every cell is numeric or missing and at least
// one cell carries a number.
func (c Column) IsNumeric() bool {
	seen := false
	for _, cell := range c.Cells {
		switch cell.Kind {
		case CellText:
			return false
		case CellNumber:
			seen = true
		}
	}
	return seen
}

// Table is an ingested spreadsheet: ordered, named columns that share a row count.
// Tables are read-only for every consumer in this module.
type Table struct {
	Columns []Column `json:"columns"`
}

// NewTable returns a table over the given columns.
func NewTable(columns ...Column) *Table {
	return &Table{Columns: columns}
}

// Rows returns the row count (length of the longest column).
func (t *Table) Rows() int {
	if t == nil {
		return 0
	}
	n := 0
	for _, c := range t.Columns {
		if len(c.Cells) > n {
			n = len(c.Cells)
		}
	}
	return n
}

// Names returns the column names in table order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the first column whose trimmed name equals name.
func (t *Table) Column(name string) (Column, bool) {
	if t == nil {
		return Column{}, false
	}
	want := strings.TrimSpace(name)
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == want {
			return c, true
		}
	}
	return Column{}, false
}

// NumericColumns returns the numeric columns in table order.
func (t *Table) NumericColumns() []Column {
	if t == nil {
		return nil
	}
	var out []Column
	for _, c := range t.Columns {
		if c.IsNumeric() {
			out = append(out, c)
		}
	}
	return out
}
