package dataprocessing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingChannel means a table holds nothing the calculator can use.
	ErrMissingChannel = errors.New("no computable sensor channel")

	// ErrFallbackRejected means strict mode refused a fallback the file needed.
	ErrFallbackRejected = errors.New("fallback rejected in strict mode")

	// ErrDuplicateFile means a record for the filename was already accumulated.
	ErrDuplicateFile = errors.New("file already processed")

	// ErrUnsupportedFormat means the file extension is not a known export format.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrNoData means an export contained no header or no data rows.
	ErrNoData = errors.New("export contains no data")

	// ErrUnknownMetric means a series was requested for a metric records do not carry.
	ErrUnknownMetric = errors.New("unknown metric")
)

// MissingChannelError reports a file with no deformation, no temperature and
// no numeric column at all.
type MissingChannelError struct {
	Filename string
	Columns  []string
}

func (e *MissingChannelError) Error() string {
	return fmt.Sprintf("%s: no deformation or temperature columns and no numeric data (columns: %s)",
		e.Filename, strings.Join(e.Columns, ", "))
}

// Is makes errors.Is(err, ErrMissingChannel) match.
func (e *MissingChannelError) Is(target error) bool {
	return target == ErrMissingChannel
}

// Fallback stages, also used as metric labels.
const (
	StageContentClassification = "content_classification"
	StageNumericDeformation    = "numeric_deformation"
	StageNumericTemperature    = "numeric_temperature"
	StageSyntheticHumidity     = "synthetic_humidity"
	StageHumidityPadding       = "humidity_padding"
)

// FallbackError is returned in strict mode when a file needed a fallback.
type FallbackError struct {
	Filename string
	Stage    string
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("%s: strict mode rejects fallback %q", e.Filename, e.Stage)
}

// Is makes errors.Is(err, ErrFallbackRejected) match.
func (e *FallbackError) Is(target error) bool {
	return target == ErrFallbackRejected
}
