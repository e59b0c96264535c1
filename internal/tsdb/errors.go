package tsdb

import "errors"

var (
	// ErrDisabled is returned by Connect when the sink is switched off.
	ErrDisabled = errors.New("influxdb disabled")
	// ErrConnectionFailed means the server could not be reached or is unhealthy.
	ErrConnectionFailed = errors.New("influxdb connection failed")
	// ErrNotConnected is returned by writes after Close.
	ErrNotConnected = errors.New("influxdb not connected")
	// ErrUndatedRecord means the record has no parseable date to use as point time.
	ErrUndatedRecord = errors.New("record has no date")
)
