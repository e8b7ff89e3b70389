package sensor

import (
	"encoding/json"
	"math"
)

var fieldMessages = map[string]string{
	FieldSensorID:    "ID do sensor inválido ou ausente.",
	FieldTemperature: "Temperatura inválida ou ausente.",
	FieldHumidity:    "Umidade inválida ou ausente.",
	FieldVibration:   "Vibração inválida ou ausente.",
}

// Validate checks every record in order and returns the typed readings.
// The first failing field of the first failing record rejects the whole
// batch with a *ValidationError.
//
// A field is valid when it is present, numeric, finite and not zero.
// Zero counts as missing, so a sensor reporting exactly 0.0 is rejected.
// sensor_id must also be a whole number.
func Validate(records []Record) ([]Reading, error) {
	readings := make([]Reading, 0, len(records))
	for i, rec := range records {
		r, err := validateRecord(i, rec)
		if err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, nil
}

func validateRecord(index int, rec Record) (Reading, error) {
	fail := func(field string) (Reading, error) {
		return Reading{}, &ValidationError{Index: index, Field: field, Message: fieldMessages[field]}
	}

	id, ok := sensorID(rec[FieldSensorID])
	if !ok {
		return fail(FieldSensorID)
	}
	temperature, ok := present(rec[FieldTemperature])
	if !ok {
		return fail(FieldTemperature)
	}
	humidity, ok := present(rec[FieldHumidity])
	if !ok {
		return fail(FieldHumidity)
	}
	vibration, ok := present(rec[FieldVibration])
	if !ok {
		return fail(FieldVibration)
	}

	return Reading{
		SensorID:    id,
		Temperature: temperature,
		Humidity:    humidity,
		Vibration:   vibration,
	}, nil
}

// present returns v as a float when it is a finite, non-zero number.
func present(v any) (float64, bool) {
	f, ok := number(v)
	if !ok || f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func sensorID(v any) (int64, bool) {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, i != 0
		}
	}
	f, ok := present(v)
	if !ok || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// number converts the numeric types produced by the JSON, CBOR and
// protobuf decoders to float64. Booleans and strings are not numbers.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
