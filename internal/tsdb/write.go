package tsdb

import (
	"fmt"
	"log/slog"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"sensorcli/pkg/contracts/domain"
)

// Measurement is the InfluxDB measurement every record is written to.
const Measurement = "sensor_metrics"

// RecordPoint builds the point for rec: tag filename, one field per metric
// and time = record date. Humidity slots filled from padding are left out.
func RecordPoint(rec domain.MetricsRecord) (*write.Point, error) {
	ts, ok := rec.Time()
	if !ok {
		return nil, fmt.Errorf("%s: %w", rec.Filename, ErrUndatedRecord)
	}

	fields := map[string]interface{}{
		domain.MetricDeformationAverage:    rec.DeformationAverage,
		domain.MetricTemperatureDifference: rec.TemperatureDifference,
		domain.MetricTemperatureAverage:    rec.TemperatureAverage,
		"humidity_sensors":                 int64(rec.HumiditySensors),
	}
	for i := 0; i < domain.HumiditySensorCount; i++ {
		if v, measured := rec.Calibrated(i); measured {
			fields[domain.HumidityMetric(i)] = v
		}
	}

	return write.NewPoint(Measurement, map[string]string{"filename": rec.Filename}, fields, ts), nil
}

// WriteRecord queues rec for the next batch. Undated records are skipped
// with ErrUndatedRecord.
func (c *Client) WriteRecord(rec domain.MetricsRecord) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	point, err := RecordPoint(rec)
	if err != nil {
		c.logger.Debug("Skipping undated record", slog.String("filename", rec.Filename))
		return err
	}

	c.writeAPI.WritePoint(point)
	return nil
}
