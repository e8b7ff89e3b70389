package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for sensorhub.
const (
	// TopicPrefix is the root of every sensorhub topic.
	TopicPrefix = "sensorhub"

	// TopicPrefixSensors is the base for sensor publications.
	TopicPrefixSensors = TopicPrefix + "/sensors"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = TopicPrefix + "/system"
)

// Topics provides builders for sensorhub MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.SensorReadings("7") // "sensorhub/sensors/7/readings"
type Topics struct{}

// SensorReadings returns the topic a sensor publishes readings to.
//
// Example: sensorhub/sensors/7/readings
func (Topics) SensorReadings(sensorID string) string {
	return fmt.Sprintf("%s/%s/readings", TopicPrefixSensors, sensorID)
}

// AllSensorReadings returns the wildcard matching every sensor's readings.
func (Topics) AllSensorReadings() string {
	return TopicPrefixSensors + "/+/readings"
}

// SystemStatus returns the liveness topic carrying the LWT.
//
// Example: sensorhub/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// SystemService returns the topic carrying the read availability state.
//
// Example: sensorhub/system/service
func (Topics) SystemService() string {
	return TopicPrefixSystem + "/service"
}

// SensorIDFromTopic extracts the sensor segment of a readings topic.
func (Topics) SensorIDFromTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, TopicPrefixSensors+"/")
	if !ok {
		return "", false
	}
	id, suffix, ok := strings.Cut(rest, "/")
	if !ok || suffix != "readings" || id == "" {
		return "", false
	}
	return id, true
}
