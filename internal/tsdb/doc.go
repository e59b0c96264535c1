// Package tsdb mirrors metrics records into InfluxDB as the sensor_metrics
// measurement so they can be graphed next to other telemetry.
//
// Writes are batched and asynchronous; write failures are logged. The sink is
// optional and Connect returns ErrDisabled when it is switched off.
package tsdb
