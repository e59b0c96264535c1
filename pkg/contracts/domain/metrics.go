package domain

import (
	"fmt"
	"time"
)

// HumiditySensorCount is the number of physical humidity sensor positions on the logger.
const HumiditySensorCount = 5

// RecordDateLayout is the layout of MetricsRecord.Date when a date is known.
const RecordDateLayout = "02/01/2006"

// ColumnRole is the sensor channel a column was assigned to.
type ColumnRole int

const (
	RoleDeformation ColumnRole = iota
	RoleTemperature
	RoleHumidity
)

// String returns the lower-case role name used in logs and JSON.
func (r ColumnRole) String() string {
	switch r {
	case RoleDeformation:
		return "deformation"
	case RoleTemperature:
		return "temperature"
	case RoleHumidity:
		return "humidity"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Roles lists every role in classification priority order.
func Roles() []ColumnRole {
	return []ColumnRole{RoleDeformation, RoleTemperature, RoleHumidity}
}

// Classification maps each role to the column names assigned to it, in
// first-seen table order. The three lists are pairwise disjoint; a column in
// none of them is unclassified.
type Classification struct {
	Deformation []string `json:"deformation"`
	Temperature []string `json:"temperature"`
	Humidity    []string `json:"humidity"`
}

// Columns returns the names assigned to role.
func (c Classification) Columns(role ColumnRole) []string {
	switch role {
	case RoleDeformation:
		return c.Deformation
	case RoleTemperature:
		return c.Temperature
	case RoleHumidity:
		return c.Humidity
	}
	return nil
}

// Set replaces the names assigned to role.
func (c *Classification) Set(role ColumnRole, names []string) {
	switch role {
	case RoleDeformation:
		c.Deformation = names
	case RoleTemperature:
		c.Temperature = names
	case RoleHumidity:
		c.Humidity = names
	}
}

// RoleOf returns the role a column name was assigned to.
func (c Classification) RoleOf(name string) (ColumnRole, bool) {
	for _, role := range Roles() {
		for _, n := range c.Columns(role) {
			if n == name {
				return role, true
			}
		}
	}
	return 0, false
}

// Empty reports whether no column received any role.
func (c Classification) Empty() bool {
	return len(c.Deformation) == 0 && len(c.Temperature) == 0 && len(c.Humidity) == 0
}

// MetricsRecord is the calibrated summary of one sensor export file.
//
// HumidityCalibrated always holds five values. A slot whose HumidityMeasured
// flag is false was computed from the padding constant rather than in-range
// readings of a humidity column; use Calibrated to tell them apart.
// HumiditySensors counts the measured slots.
type MetricsRecord struct {
	Date                  string
	Filename              string
	DeformationAverage    float64
	TemperatureDifference float64
	TemperatureAverage    float64
	HumidityCalibrated    [HumiditySensorCount]float64
	HumidityMeasured      [HumiditySensorCount]bool
	HumiditySensors       int
}

// Calibrated returns the calibrated humidity of sensor i and whether it came
// from measured readings.
func (r MetricsRecord) Calibrated(i int) (float64, bool) {
	if i < 0 || i >= HumiditySensorCount {
		return 0, false
	}
	return r.HumidityCalibrated[i], r.HumidityMeasured[i]
}

// MeasuredMask marks the first n humidity slots as measured.
func MeasuredMask(n int) [HumiditySensorCount]bool {
	var mask [HumiditySensorCount]bool
	for i := 0; i < n && i < HumiditySensorCount; i++ {
		mask[i] = true
	}
	return mask
}

// CountMeasured returns the number of measured slots in mask.
func CountMeasured(mask [HumiditySensorCount]bool) int {
	n := 0
	for _, m := range mask {
		if m {
			n++
		}
	}
	return n
}

// Time parses Date. The second result is false for "unknown date" records.
func (r MetricsRecord) Time() (time.Time, bool) {
	t, err := time.Parse(RecordDateLayout, r.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Metric names accepted by MetricsRecord.Value and the series endpoints.
const (
	MetricDeformationAverage    = "deformation_average"
	MetricTemperatureDifference = "temperature_difference"
	MetricTemperatureAverage    = "temperature_average"
)

// HumidityMetric returns the metric name of calibrated humidity sensor i.
func HumidityMetric(i int) string {
	return fmt.Sprintf("humidity_calibrated_%d", i)
}

// MetricNames lists every numeric metric of a record in export order.
func MetricNames() []string {
	names := []string{MetricDeformationAverage, MetricTemperatureDifference, MetricTemperatureAverage}
	for i := 0; i < HumiditySensorCount; i++ {
		names = append(names, HumidityMetric(i))
	}
	return names
}

// Value returns the named metric. Unknown names report false.
func (r MetricsRecord) Value(metric string) (float64, bool) {
	switch metric {
	case MetricDeformationAverage:
		return r.DeformationAverage, true
	case MetricTemperatureDifference:
		return r.TemperatureDifference, true
	case MetricTemperatureAverage:
		return r.TemperatureAverage, true
	}
	for i := 0; i < HumiditySensorCount; i++ {
		if metric == HumidityMetric(i) {
			return r.HumidityCalibrated[i], true
		}
	}
	return 0, false
}

// SeriesPoint is one dated value of a metric across accumulated records.
type SeriesPoint struct {
	Date     time.Time `json:"date"`
	Filename string    `json:"filename"`
	Value    float64   `json:"value"`
	Padded   bool      `json:"padded,omitempty"`
}
