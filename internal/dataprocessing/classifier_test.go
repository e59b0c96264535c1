package dataprocessing

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"sensorcli/pkg/contracts/domain"
)

func textColumn(name string, values ...string) domain.Column {
	cells := make([]domain.Cell, len(values))
	for i, v := range values {
		cells[i] = domain.Text(v)
	}
	return domain.Column{Name: name, Cells: cells}
}

func TestClassifyByName_KeywordPriority(t *testing.T) {
	tests := []struct {
		name   string
		column string
		want   domain.ColumnRole
		ok     bool
	}{
		{name: "deformation short", column: "Def_1", want: domain.RoleDeformation, ok: true},
		{name: "strain", column: "STRAIN gauge", want: domain.RoleDeformation, ok: true},
		{name: "displacement", column: "Displacement (mm)", want: domain.RoleDeformation, ok: true},
		{name: "deformation beats temperature", column: "def_temp", want: domain.RoleDeformation, ok: true},
		{name: "temperature", column: "Temp_1", want: domain.RoleTemperature, ok: true},
		{name: "cal means temperature", column: "Temp_1_Cal", want: domain.RoleTemperature, ok: true},
		{name: "calibration keyword alone", column: "Calibration", want: domain.RoleTemperature, ok: true},
		{name: "celsius", column: "Celsius", want: domain.RoleTemperature, ok: true},
		{name: "temperature beats humidity", column: "temp_hum", want: domain.RoleTemperature, ok: true},
		{name: "humidity", column: "Hum_3", want: domain.RoleHumidity, ok: true},
		{name: "moisture", column: "Soil moisture", want: domain.RoleHumidity, ok: true},
		{name: "rh", column: "RH 2", want: domain.RoleHumidity, ok: true},
		{name: "surrounding whitespace", column: "  hum_4  ", want: domain.RoleHumidity, ok: true},
		{name: "timestamp is unclassified", column: "Timestamp", ok: false},
		{name: "unrelated", column: "Battery", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := domain.NewTable(domain.NewNumericColumn(tt.column, 1, 2))
			got := ClassifyByName(table)

			role, ok := got.RoleOf(strings.TrimSpace(tt.column))
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, role)
			}
		})
	}
}

func TestClassifyByName_OrderAndDuplicates(t *testing.T) {
	table := domain.NewTable(
		domain.NewNumericColumn("Hum_2", 50),
		domain.NewNumericColumn("Def_1", 1),
		domain.NewNumericColumn("Hum_1", 50),
		domain.NewNumericColumn("Def_1", 2),
		domain.NewNumericColumn("Temp", 20),
	)

	got := ClassifyByName(table)

	assert.Equal(t, []string{"Def_1"}, got.Deformation)
	assert.Equal(t, []string{"Temp"}, got.Temperature)
	assert.Equal(t, []string{"Hum_2", "Hum_1"}, got.Humidity)
}

func TestClassifier_Classify_NameMatchSkipsContent(t *testing.T) {
	table := domain.NewTable(
		domain.NewNumericColumn("Def_1", 10, 12, 14),
		domain.NewNumericColumn("Temp_1_Cal", 20, 22, 21),
		domain.NewNumericColumn("X", 40, 60, 50),
	)

	result, usedContent := NewClassifier(nil).Resolve(table)

	assert.False(t, usedContent)
	assert.Equal(t, []string{"Def_1"}, result.Deformation)
	assert.Equal(t, []string{"Temp_1_Cal"}, result.Temperature)
	assert.Empty(t, result.Humidity)
}

func TestClassifier_Classify_ContentFallback(t *testing.T) {
	table := domain.NewTable(
		domain.NewNumericColumn("A", 20, 22, 21),
		domain.NewNumericColumn("B", 40, 60, 50),
		domain.NewNumericColumn("C", 1500, 1600, 1550),
		textColumn("Notes", "ok", "ok", "ok"),
	)

	result, usedContent := NewClassifier(nil).Resolve(table)

	assert.True(t, usedContent)
	assert.Equal(t, []string{"A"}, result.Temperature)
	assert.Equal(t, []string{"B"}, result.Humidity)
	assert.Equal(t, []string{"C"}, result.Deformation)
}

func TestClassifier_Classify_ContentFillsOnlyEmptyRoles(t *testing.T) {
	table := domain.NewTable(
		domain.NewNumericColumn("Hum_1", 45, 55),
		domain.NewNumericColumn("Def_1", 5, 6),
		domain.NewNumericColumn("Probe", 18, 19),
		domain.NewNumericColumn("Other", 40, 45),
	)

	result := NewClassifier(nil).Classify(table)

	assert.Equal(t, []string{"Def_1"}, result.Deformation)
	assert.Equal(t, []string{"Probe"}, result.Temperature)
	// Humidity was already named, so content results for it are discarded.
	assert.Equal(t, []string{"Hum_1"}, result.Humidity)

	// Every name holds at most one role.
	seen := map[string]int{}
	for _, role := range domain.Roles() {
		for _, name := range result.Columns(role) {
			seen[name]++
		}
	}
	for name, n := range seen {
		assert.Equal(t, 1, n, name)
	}
}

func TestClassifyByContent_Rules(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   domain.ColumnRole
	}{
		{name: "temperature range", values: []float64{-40, 0, 99}, want: domain.RoleTemperature},
		{name: "above temperature range is deformation", values: []float64{10, 150}, want: domain.RoleDeformation},
		{name: "below temperature range is deformation", values: []float64{-60, 10}, want: domain.RoleDeformation},
		{name: "missing values ignored", values: []float64{math.NaN(), 25, math.NaN()}, want: domain.RoleTemperature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := domain.NewTable(domain.NewNumericColumn("col", tt.values...))
			got := ClassifyByContent(table)
			role, ok := got.RoleOf("col")
			assert.True(t, ok)
			assert.Equal(t, tt.want, role)
		})
	}
}

func TestClassifyByContent_SkipsNonNumericAndEmpty(t *testing.T) {
	table := domain.NewTable(
		domain.NewNumericColumn("empty", math.NaN(), math.NaN()),
		domain.Column{Name: "mixed", Cells: []domain.Cell{domain.Num(20), domain.Text("n/a")}},
		textColumn("label", "a", "b"),
	)

	got := ClassifyByContent(table)

	assert.True(t, got.Empty())
}

func TestStats(t *testing.T) {
	st := Stats(domain.NewNumericColumn("x", 4, math.NaN(), -2, 10))
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, -2.0, st.Min)
	assert.Equal(t, 10.0, st.Max)
	assert.InDelta(t, 4.0, st.Mean, 1e-12)

	assert.Equal(t, ColumnStats{}, Stats(domain.NewNumericColumn("none")))
}

func TestClassifier_NeverFails(t *testing.T) {
	c := NewClassifier(nil)
	assert.True(t, c.Classify(nil).Empty())
	assert.True(t, c.Classify(domain.NewTable()).Empty())
	assert.True(t, c.Classify(domain.NewTable(textColumn("Name", "x"))).Empty())
}
