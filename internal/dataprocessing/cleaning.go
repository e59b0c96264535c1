package dataprocessing

import "sensorcli/pkg/contracts/domain"

// DefaultSentinels are the fault codes the logger writes in place of a reading.
var DefaultSentinels = []float64{-1000000, -999979}

// DropSentinelColumns returns a table without the columns holding any of the
// sentinel values, plus the names that were dropped. table is not modified.
func DropSentinelColumns(table *domain.Table, sentinels []float64) (*domain.Table, []string) {
	if table == nil || len(sentinels) == 0 {
		return table, nil
	}

	kept := make([]domain.Column, 0, len(table.Columns))
	var dropped []string
	for _, col := range table.Columns {
		if hasSentinel(col, sentinels) {
			dropped = append(dropped, col.Name)
			continue
		}
		kept = append(kept, col)
	}
	return domain.NewTable(kept...), dropped
}

func hasSentinel(col domain.Column, sentinels []float64) bool {
	for _, cell := range col.Cells {
		if cell.Kind != domain.CellNumber {
			continue
		}
		for _, s := range sentinels {
			if cell.Number == s {
				return true
			}
		}
	}
	return false
}
