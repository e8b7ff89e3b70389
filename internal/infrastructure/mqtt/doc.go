// Package mqtt provides MQTT client connectivity for sensorhub.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support, restored on reconnect
//   - Last Will and Testament (LWT) for offline detection
//
// # Topics
//
// Sensors publish readings to sensorhub/sensors/{sensor_id}/readings.
// sensorhub publishes its own liveness, retained, to
// sensorhub/system/status and the read availability state to
// sensorhub/system/service.
//
// # Security Considerations
//
//   - Publishers are authenticated by the broker's ACL, not by session tokens
//   - TLS should be enabled outside local development (cfg.Broker.TLS=true)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllSensorReadings(), 1,
//	    func(topic string, payload []byte) error {
//	        return handle(topic, payload)
//	    })
package mqtt
