// Package telemetry mirrors device property changes onto MQTT.
//
// Every change is published retained to solarpower/state/<device>/<code>
// as a JSON value, so late subscribers see the latest reading. When
// commands are enabled, messages on solarpower/command/<device>/<code> are
// applied with Device.Set and go through the same schema validation as
// HTTP writes.
package telemetry
