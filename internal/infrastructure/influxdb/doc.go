// Package influxdb mirrors stored sensor readings into InfluxDB v2.
//
// SQLite stays the source of truth for /dados-sensores; the mirror exists
// for dashboards and long-range queries. Each stored reading becomes one
// point:
//
//	sensor_reading,sensor_id=3 humidity=40,temperature=21.5,vibration=0.1 <recorded_at>
//
// Writes go through the non-blocking batched write API. Errors arrive
// asynchronously and are handed to the SetOnError callback, so a down
// InfluxDB never fails ingestion.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	readings.AddSink(client)
package influxdb
