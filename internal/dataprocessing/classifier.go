package dataprocessing

import (
	"log/slog"
	"math"
	"strings"

	"sensorcli/pkg/contracts/domain"
)

// keywordRule assigns role to any column whose normalized name contains one of keywords.
type keywordRule struct {
	role     domain.ColumnRole
	keywords []string
}

// keywordRules are evaluated in order; the first matching rule wins.
var keywordRules = []keywordRule{
	{role: domain.RoleDeformation, keywords: []string{"def", "deform", "strain", "displacement"}},
	{role: domain.RoleTemperature, keywords: []string{"temp", "temperature", "cal", "celsius"}},
	{role: domain.RoleHumidity, keywords: []string{"hum", "humidity", "moisture", "rh"}},
}

// contentTemperatureRange and contentHumidityRange drive the statistical
// fallback. They are fixed and independent of the calculator's filter bounds.
var (
	contentTemperatureRange = Range{Min: -50, Max: 100}
	contentHumidityRange    = Range{Min: 0, Max: 100}
)

// ColumnStats summarizes the non-missing values of a numeric column.
type ColumnStats struct {
	Count int
	Min   float64
	Max   float64
	Mean  float64
}

// Stats computes min, max and mean over the numeric cells of c.
// Count is zero when c has no numeric cell.
func Stats(c domain.Column) ColumnStats {
	st := ColumnStats{Min: math.Inf(1), Max: math.Inf(-1)}
	sum := 0.0
	for _, cell := range c.Cells {
		if cell.Kind != domain.CellNumber {
			continue
		}
		v := cell.Number
		st.Count++
		sum += v
		if v < st.Min {
			st.Min = v
		}
		if v > st.Max {
			st.Max = v
		}
	}
	if st.Count == 0 {
		return ColumnStats{}
	}
	st.Mean = sum / float64(st.Count)
	return st
}

// Classifier assigns sensor roles to the columns of an ingested table.
type Classifier struct {
	logger *slog.Logger
}

// NewClassifier creates a classifier. A nil logger uses slog.Default().
func NewClassifier(logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{logger: logger.With(slog.String("component", "classifier"))}
}

// Classify runs name matching and, when deformation or temperature is still
// empty, the content-based fallback. It never fails; roles may stay empty.
func (c *Classifier) Classify(table *domain.Table) domain.Classification {
	result, _ := c.Resolve(table)
	return result
}

// Resolve is Classify that also reports whether the content fallback filled
// any role.
func (c *Classifier) Resolve(table *domain.Table) (domain.Classification, bool) {
	byName := ClassifyByName(table)
	if len(byName.Deformation) > 0 && len(byName.Temperature) > 0 {
		return byName, false
	}

	claimed := make(map[string]bool)
	for _, role := range domain.Roles() {
		for _, name := range byName.Columns(role) {
			claimed[name] = true
		}
	}
	byContent := classifyByContent(table, claimed)
	result := byName
	usedContent := false
	for _, role := range domain.Roles() {
		if len(result.Columns(role)) == 0 && len(byContent.Columns(role)) > 0 {
			result.Set(role, byContent.Columns(role))
			usedContent = true
		}
	}

	if usedContent {
		c.logger.Debug("content-based classification applied",
			slog.Any("by_name", byName),
			slog.Any("result", result))
	}
	return result, usedContent
}

// ClassifyByName assigns roles from column names alone. Names are trimmed and
// case-folded, matched by substring against keywordRules in priority order.
// A repeated name is classified once, at its first occurrence.
func ClassifyByName(table *domain.Table) domain.Classification {
	var result domain.Classification
	if table == nil {
		return result
	}
	seen := make(map[string]bool)
	for _, col := range table.Columns {
		name := strings.TrimSpace(col.Name)
		if seen[name] {
			continue
		}
		seen[name] = true

		role, ok := matchRole(name)
		if !ok {
			continue
		}
		result.Set(role, append(result.Columns(role), name))
	}
	return result
}

// matchRole returns the role of the first keyword rule matching name.
func matchRole(name string) (domain.ColumnRole, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(normalized, kw) {
				return rule.role, true
			}
		}
	}
	return 0, false
}

// ClassifyByContent assigns roles from value statistics of numeric columns:
// temperature when every value lies in [-50, 100], else humidity when every
// value lies in [0, 100] with mean below 100, else deformation.
// The logger has a single temperature reference, so only the first qualifying
// column becomes temperature; later ones go through the remaining rules.
func ClassifyByContent(table *domain.Table) domain.Classification {
	return classifyByContent(table, nil)
}

// classifyByContent skips the names in claimed so a column keeps at most one role.
func classifyByContent(table *domain.Table, claimed map[string]bool) domain.Classification {
	var result domain.Classification
	if table == nil {
		return result
	}
	seen := make(map[string]bool)
	for name := range claimed {
		seen[name] = true
	}
	for _, col := range table.Columns {
		name := strings.TrimSpace(col.Name)
		if seen[name] || !col.IsNumeric() {
			continue
		}
		seen[name] = true

		st := Stats(col)
		if st.Count == 0 {
			continue
		}
		role := contentRole(st, len(result.Temperature) == 0)
		result.Set(role, append(result.Columns(role), name))
	}
	return result
}

func contentRole(st ColumnStats, wantTemperature bool) domain.ColumnRole {
	switch {
	case wantTemperature && contentTemperatureRange.Contains(st.Min) && contentTemperatureRange.Contains(st.Max):
		return domain.RoleTemperature
	case contentHumidityRange.Contains(st.Min) && contentHumidityRange.Contains(st.Max) && st.Mean < 100:
		return domain.RoleHumidity
	default:
		return domain.RoleDeformation
	}
}
