// Package ingest connects sensorhub to the MQTT broker.
//
// MQTTSubscriber feeds readings published on sensorhub/sensors/+/readings
// through the same validation and storage path as the HTTP API.
// AvailabilityPublisher mirrors the read availability state to a retained
// topic so devices and dashboards can see when reads are paused.
package ingest
