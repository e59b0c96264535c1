package dataprocessing

import (
	"log/slog"
	"math"

	"sensorcli/pkg/contracts/domain"
)

// maxNumericDeformationColumns caps the last-resort deformation fallback.
const maxNumericDeformationColumns = 3

// FallbackObserver is told about every fallback a calculation applied.
type FallbackObserver func(filename, stage string)

// Calculator turns a classified table into a calibrated MetricsRecord.
// It holds no per-file state and is safe for concurrent use.
type Calculator struct {
	cfg        CalibrationConfig
	classifier *Classifier
	logger     *slog.Logger
	observer   FallbackObserver
}

// CalculatorOption configures a Calculator.
type CalculatorOption func(*Calculator)

// WithFallbackObserver registers fn to be called for every fallback applied.
func WithFallbackObserver(fn FallbackObserver) CalculatorOption {
	return func(c *Calculator) { c.observer = fn }
}

// NewCalculator creates a calculator. Zero-valued parameters in cfg fall back
// to DefaultCalibrationConfig.
func NewCalculator(cfg CalibrationConfig, logger *slog.Logger, opts ...CalculatorOption) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultCalibrationConfig()
	if cfg.SensitivityFactor == 0 {
		cfg.SensitivityFactor = def.SensitivityFactor
	}
	if cfg.TemperatureRange == (Range{}) {
		cfg.TemperatureRange = def.TemperatureRange
	}
	if cfg.HumidityRange == (Range{}) {
		cfg.HumidityRange = def.HumidityRange
	}
	if cfg.HumidityPadding == 0 {
		cfg.HumidityPadding = def.HumidityPadding
	}
	if cfg.Mode == "" {
		cfg.Mode = def.Mode
	}

	c := &Calculator{
		cfg:        cfg,
		classifier: NewClassifier(logger),
		logger:     logger.With(slog.String("component", "calculator")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the calibration parameters in effect.
func (c *Calculator) Config() CalibrationConfig {
	return c.cfg
}

// Classifier returns the classifier used by Process.
func (c *Calculator) Classifier() *Classifier {
	return c.classifier
}

// Calculation is a computed record together with the columns it was
// computed from.
type Calculation struct {
	Record *domain.MetricsRecord
	// Classification holds the columns each channel actually used, after
	// numeric fallbacks and humidity truncation. With the numeric fallback
	// one column may serve both deformation and temperature.
	Classification domain.Classification
	// ContentFallback is set when name matching left a role for content
	// classification to fill.
	ContentFallback bool
	// Fallbacks lists the applied fallback stages in order.
	Fallbacks []string
}

// Process classifies table and computes its record.
func (c *Calculator) Process(table *domain.Table, filename string) (*domain.MetricsRecord, error) {
	calc, err := c.ProcessDetailed(table, filename)
	if err != nil {
		return nil, err
	}
	return calc.Record, nil
}

// ProcessDetailed is Process that also returns the effective classification
// and the fallbacks applied.
func (c *Calculator) ProcessDetailed(table *domain.Table, filename string) (*Calculation, error) {
	classification, usedContent := c.classifier.Resolve(table)
	var stages []string
	if usedContent {
		stages = append(stages, StageContentClassification)
		if err := c.fallback(filename, StageContentClassification); err != nil {
			return nil, err
		}
	}
	calc, err := c.calculate(table, classification, filename, stages)
	if err != nil {
		return nil, err
	}
	calc.ContentFallback = usedContent
	return calc, nil
}

// Calculate computes the calibrated metrics of table from an existing
// classification. Missing deformation or temperature columns are replaced by
// numeric columns; missing humidity is replaced by the padding constant.
// It fails with *MissingChannelError only when nothing is computable, and with
// *FallbackError in strict mode whenever a fallback would be needed.
func (c *Calculator) Calculate(table *domain.Table, classification domain.Classification, filename string) (*domain.MetricsRecord, error) {
	calc, err := c.calculate(table, classification, filename, nil)
	if err != nil {
		return nil, err
	}
	return calc.Record, nil
}

func (c *Calculator) calculate(table *domain.Table, classification domain.Classification, filename string, stages []string) (*Calculation, error) {
	applied := func(stage string) error {
		stages = append(stages, stage)
		return c.fallback(filename, stage)
	}

	deformation := c.resolve(table, classification.Deformation)
	temperature := c.resolve(table, classification.Temperature)
	humidity := c.resolve(table, classification.Humidity)

	numeric := table.NumericColumns()
	if len(deformation) == 0 && len(temperature) == 0 && len(numeric) == 0 {
		return nil, &MissingChannelError{Filename: filename, Columns: table.Names()}
	}

	if len(deformation) == 0 && len(numeric) > 0 {
		if err := applied(StageNumericDeformation); err != nil {
			return nil, err
		}
		n := min(len(numeric), maxNumericDeformationColumns)
		deformation = numeric[:n]
	}
	if len(temperature) == 0 && len(numeric) > 0 {
		if err := applied(StageNumericTemperature); err != nil {
			return nil, err
		}
		temperature = numeric[:1]
	}
	if len(humidity) > domain.HumiditySensorCount {
		humidity = humidity[:domain.HumiditySensorCount]
	}

	defAvg := c.deformationAverage(deformation)
	tempDiff, tempAvg := c.temperatureMetrics(temperature)

	humidityMeans, measured, err := c.humidityMeans(humidity, applied)
	if err != nil {
		return nil, err
	}

	record := &domain.MetricsRecord{
		Date:                  ExtractDate(filename),
		Filename:              filename,
		DeformationAverage:    defAvg,
		TemperatureDifference: tempDiff,
		TemperatureAverage:    tempAvg,
		HumidityMeasured:      measured,
		HumiditySensors:       domain.CountMeasured(measured),
	}

	table5 := CalibrationTable()
	for i, k := range table5 {
		record.HumidityCalibrated[i] = (humidityMeans[i]*c.cfg.SensitivityFactor - defAvg - k.C*tempDiff) / k.D
	}

	c.logger.Debug("metrics calculated",
		slog.String("filename", filename),
		slog.String("date", record.Date),
		slog.Int("deformation_columns", len(deformation)),
		slog.Int("temperature_columns", len(temperature)),
		slog.Int("humidity_columns", len(humidity)),
		slog.Float64("deformation_average", defAvg),
		slog.Float64("temperature_difference", tempDiff))

	return &Calculation{
		Record: record,
		Classification: domain.Classification{
			Deformation: columnNames(deformation),
			Temperature: columnNames(temperature),
			Humidity:    columnNames(humidity),
		},
		Fallbacks: stages,
	}, nil
}

func columnNames(cols []domain.Column) []string {
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}
	return names
}

// resolve maps classified names to the table's columns, dropping unknown names.
func (c *Calculator) resolve(table *domain.Table, names []string) []domain.Column {
	cols := make([]domain.Column, 0, len(names))
	for _, name := range names {
		if col, ok := table.Column(name); ok {
			cols = append(cols, col)
		}
	}
	return cols
}

// deformationAverage is the mean of per-column means times the sensitivity
// factor. Columns with no numeric value do not contribute.
func (c *Calculator) deformationAverage(cols []domain.Column) float64 {
	var means []float64
	for _, col := range cols {
		if m, ok := mean(col.Floats()); ok {
			means = append(means, m)
		}
	}
	m, ok := mean(means)
	if !ok {
		return 0
	}
	return m * c.cfg.SensitivityFactor
}

// temperatureMetrics uses the first temperature column only: the difference
// between the last and first in-range readings and their mean.
func (c *Calculator) temperatureMetrics(cols []domain.Column) (diff, avg float64) {
	if len(cols) == 0 {
		return 0, 0
	}
	values := filterRange(cols[0].Floats(), c.cfg.TemperatureRange)
	if len(values) == 0 {
		return 0, 0
	}
	diff = values[len(values)-1] - values[0]
	avg, _ = mean(values)
	return diff, avg
}

// humidityMeans returns exactly five humidity means: one per in-range
// humidity column, padded on the right and truncated to five. A slot is
// measured only when its column had at least one in-range reading.
func (c *Calculator) humidityMeans(cols []domain.Column, fallback func(stage string) error) (out [domain.HumiditySensorCount]float64, measured [domain.HumiditySensorCount]bool, err error) {
	if len(cols) == 0 {
		if err := fallback(StageSyntheticHumidity); err != nil {
			return out, measured, err
		}
	} else if len(cols) < domain.HumiditySensorCount {
		if err := fallback(StageHumidityPadding); err != nil {
			return out, measured, err
		}
	}

	for i := range out {
		out[i] = c.cfg.HumidityPadding
	}
	for i, col := range cols {
		if i >= domain.HumiditySensorCount {
			break
		}
		if m, ok := mean(filterRange(col.Floats(), c.cfg.HumidityRange)); ok {
			out[i] = m
			measured[i] = true
		}
	}
	return out, measured, nil
}

// fallback records a fallback and, in strict mode, turns it into an error.
func (c *Calculator) fallback(filename, stage string) error {
	if c.observer != nil {
		c.observer(filename, stage)
	}
	if c.cfg.Mode == ModeStrict {
		return &FallbackError{Filename: filename, Stage: stage}
	}
	c.logger.Debug("fallback applied",
		slog.String("filename", filename),
		slog.String("stage", stage))
	return nil
}

// filterRange keeps the non-NaN values inside r, preserving order.
func filterRange(values []float64, r Range) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if r.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// mean averages the non-NaN values. ok is false when there are none.
func mean(values []float64) (m float64, ok bool) {
	sum := 0.0
	n := 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
