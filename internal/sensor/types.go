package sensor

import (
	"errors"
	"fmt"
	"time"
)

// Record is one reading object as decoded from the wire, before
// validation. A nil Record stands for an element that was not an object.
type Record map[string]any

// Batch is the body of an ingestion request: either a single reading
// object (Single) or a sequence of them (Many).
type Batch interface {
	// Records returns the batch as a sequence, in request order.
	Records() []Record
	isBatch()
}

// Single is a batch holding exactly one reading.
type Single struct {
	Record Record
}

// Records implements Batch.
func (s Single) Records() []Record { return []Record{s.Record} }

func (Single) isBatch() {}

// Many is a batch holding zero or more readings.
type Many []Record

// Records implements Batch.
func (m Many) Records() []Record { return m }

func (Many) isBatch() {}

// Reading is a validated, possibly stored, sensor reading. The JSON
// names match the public data format.
type Reading struct {
	ID          int64     `json:"id"`
	SensorID    int64     `json:"sensor_id"`
	Temperature float64   `json:"temperatura"`
	Humidity    float64   `json:"umidade"`
	Vibration   float64   `json:"vibracao"`
	RecordedAt  time.Time `json:"timestamp"`
}

// Wire field names of a reading object.
const (
	FieldSensorID    = "sensor_id"
	FieldTemperature = "temperatura"
	FieldHumidity    = "umidade"
	FieldVibration   = "vibracao"
)

// ValidationError reports the first field that failed validation.
type ValidationError struct {
	// Index is the position of the offending element in the batch.
	Index int

	// Field is the wire name of the offending field.
	Field string

	// Message is the client-facing description.
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("reading %d: invalid %s", e.Index, e.Field)
}

// ErrMalformedBody is returned when a body is neither a reading object nor
// an array of them.
var ErrMalformedBody = errors.New("malformed reading batch")
