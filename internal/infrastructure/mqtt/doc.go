// Package mqtt provides the MQTT client used to mirror device state.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support, restored after reconnect
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Topics
//
// All topics live under a configurable prefix (default "solarpower"):
//
//	solarpower/state/<device>/<code>     retained property values
//	solarpower/command/<device>/<code>   values to write to the device
//	solarpower/system/status             online/offline status (LWT)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	err = client.PublishRetained(topics.State(0, "c0"), []byte("13.2"))
//
// # Security Considerations
//
//   - Enable TLS (mqtt.broker.tls) whenever the broker is not on localhost
//   - Command topics write to the hardware; restrict them with broker ACLs
package mqtt
