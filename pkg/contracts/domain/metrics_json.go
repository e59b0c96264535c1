package domain

import "encoding/json"

// recordJSON is the wire form of MetricsRecord. Humidity slots are flat keys
// so JSON, CSV and the time-series fields share one naming.
type recordJSON struct {
	Date                  string  `json:"date"`
	Filename              string  `json:"filename"`
	DeformationAverage    float64 `json:"deformation_average"`
	TemperatureDifference float64 `json:"temperature_difference"`
	TemperatureAverage    float64 `json:"temperature_average"`
	HumidityCalibrated0   float64 `json:"humidity_calibrated_0"`
	HumidityCalibrated1   float64 `json:"humidity_calibrated_1"`
	HumidityCalibrated2   float64 `json:"humidity_calibrated_2"`
	HumidityCalibrated3   float64 `json:"humidity_calibrated_3"`
	HumidityCalibrated4   float64 `json:"humidity_calibrated_4"`
	HumiditySensors       int     `json:"humidity_sensors"`
	HumidityMeasured0     *bool   `json:"humidity_measured_0,omitempty"`
	HumidityMeasured1     *bool   `json:"humidity_measured_1,omitempty"`
	HumidityMeasured2     *bool   `json:"humidity_measured_2,omitempty"`
	HumidityMeasured3     *bool   `json:"humidity_measured_3,omitempty"`
	HumidityMeasured4     *bool   `json:"humidity_measured_4,omitempty"`
}

func (w *recordJSON) calibrated() [HumiditySensorCount]*float64 {
	return [HumiditySensorCount]*float64{
		&w.HumidityCalibrated0, &w.HumidityCalibrated1, &w.HumidityCalibrated2,
		&w.HumidityCalibrated3, &w.HumidityCalibrated4,
	}
}

func (w *recordJSON) measured() [HumiditySensorCount]**bool {
	return [HumiditySensorCount]**bool{
		&w.HumidityMeasured0, &w.HumidityMeasured1, &w.HumidityMeasured2,
		&w.HumidityMeasured3, &w.HumidityMeasured4,
	}
}

// MarshalJSON writes the record with humidity_calibrated_0..4 and
// humidity_measured_0..4 keys.
func (r MetricsRecord) MarshalJSON() ([]byte, error) {
	w := recordJSON{
		Date:                  r.Date,
		Filename:              r.Filename,
		DeformationAverage:    r.DeformationAverage,
		TemperatureDifference: r.TemperatureDifference,
		TemperatureAverage:    r.TemperatureAverage,
		HumiditySensors:       r.HumiditySensors,
	}
	calibrated, measured := w.calibrated(), w.measured()
	for i := 0; i < HumiditySensorCount; i++ {
		*calibrated[i] = r.HumidityCalibrated[i]
		m := r.HumidityMeasured[i]
		*measured[i] = &m
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the form written by MarshalJSON. Without any
// humidity_measured key the first humidity_sensors slots count as measured.
func (r *MetricsRecord) UnmarshalJSON(data []byte) error {
	var w recordJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	rec := MetricsRecord{
		Date:                  w.Date,
		Filename:              w.Filename,
		DeformationAverage:    w.DeformationAverage,
		TemperatureDifference: w.TemperatureDifference,
		TemperatureAverage:    w.TemperatureAverage,
		HumiditySensors:       w.HumiditySensors,
	}
	calibrated, measured := w.calibrated(), w.measured()
	explicit := false
	for i := 0; i < HumiditySensorCount; i++ {
		rec.HumidityCalibrated[i] = *calibrated[i]
		if p := *measured[i]; p != nil {
			rec.HumidityMeasured[i] = *p
			explicit = true
		}
	}
	if !explicit {
		rec.HumidityMeasured = MeasuredMask(w.HumiditySensors)
	}
	*r = rec
	return nil
}
