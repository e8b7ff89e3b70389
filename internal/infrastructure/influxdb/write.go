package influxdb

import (
	"context"
	"strconv"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/gustavobizon/sprint-programacao/internal/sensor"
)

// measurementReading is the measurement every mirrored reading is written to.
const measurementReading = "sensor_reading"

// WriteReading queues r for the next batch. It implements sensor.Sink and
// never blocks on the network.
func (c *Client) WriteReading(_ context.Context, r sensor.Reading) {
	if c == nil || c.influx == nil {
		return
	}
	c.state.RLock()
	defer c.state.RUnlock()
	if c.closed {
		return
	}
	c.writeAPI.WritePoint(readingPoint(r))
}

func readingPoint(r sensor.Reading) *write.Point {
	return write.NewPoint(
		measurementReading,
		map[string]string{
			"sensor_id": strconv.FormatInt(r.SensorID, 10),
		},
		map[string]any{
			"temperature": r.Temperature,
			"humidity":    r.Humidity,
			"vibration":   r.Vibration,
		},
		r.RecordedAt,
	)
}
