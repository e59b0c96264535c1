package dataprocessing

import (
	"fmt"
	"strings"
)

// CalibrationConstant is the (C, D) correction pair of one humidity sensor
// position: C scales the temperature cross-talk term, D normalizes the result.
type CalibrationConstant struct {
	C float64 `json:"c" yaml:"c"`
	D float64 `json:"d" yaml:"d"`
}

// calibrationTable is indexed by humidity sensor position. Never written.
var calibrationTable = [5]CalibrationConstant{
	{C: 83.76, D: 27.95},
	{C: 65.87, D: 20.33},
	{C: 94.59, D: 14.46},
	{C: 87.58, D: 10.23},
	{C: 79.79, D: 14.82},
}

// CalibrationTable returns a copy of the per-sensor calibration constants.
func CalibrationTable() [5]CalibrationConstant {
	return calibrationTable
}

// Range is a closed interval of accepted instrument readings.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies in [Min, Max]. NaN is never contained.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Mode selects how the calculator treats fallbacks.
type Mode string

const (
	// ModeLenient resolves missing channels through fallbacks and padding.
	ModeLenient Mode = "lenient"
	// ModeStrict rejects a file as soon as any fallback would be needed.
	ModeStrict Mode = "strict"
)

// ParseMode accepts "lenient" or "strict" in any case. Empty means lenient.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeLenient:
		return ModeLenient, nil
	case ModeStrict:
		return ModeStrict, nil
	}
	return "", fmt.Errorf("unknown calibration mode %q", s)
}

// CalibrationConfig holds the tunable parameters of the metrics calculation.
type CalibrationConfig struct {
	SensitivityFactor float64
	TemperatureRange  Range
	HumidityRange     Range
	HumidityPadding   float64
	Mode              Mode
}

// DefaultCalibrationConfig returns the logger's factory calibration.
func DefaultCalibrationConfig() CalibrationConfig {
	return CalibrationConfig{
		SensitivityFactor: 1.2,
		TemperatureRange:  Range{Min: -50, Max: 100},
		HumidityRange:     Range{Min: 0, Max: 100},
		HumidityPadding:   50.0,
		Mode:              ModeLenient,
	}
}

// Validate rejects inverted ranges, a zero sensitivity factor and unknown modes.
func (c CalibrationConfig) Validate() error {
	if c.SensitivityFactor == 0 {
		return fmt.Errorf("sensitivity factor must be non-zero")
	}
	if c.TemperatureRange.Min > c.TemperatureRange.Max {
		return fmt.Errorf("temperature range is inverted: [%g, %g]", c.TemperatureRange.Min, c.TemperatureRange.Max)
	}
	if c.HumidityRange.Min > c.HumidityRange.Max {
		return fmt.Errorf("humidity range is inverted: [%g, %g]", c.HumidityRange.Min, c.HumidityRange.Max)
	}
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	return nil
}
