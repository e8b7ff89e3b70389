// Package sensor implements the reading ingestion pipeline: decoding a
// single reading or an array of them into a Batch, validating every
// element, storing each reading independently and handing stored
// readings to sinks such as the live stream and the InfluxDB mirror.
package sensor
