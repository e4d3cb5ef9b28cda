// Package config handles loading and validating the solar power monitor configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Overriding with SOLARPOWER_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// The configuration is loaded once at startup. Command line flags are applied
// by cmd/solarpower on top of the loaded value before Validate is called; after
// that the value is treated as read-only.
//
// Usage:
//
//	cfg, err := config.Load("configs/solarpower.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//
// Environment variables:
//
//	SOLARPOWER_HOSTNAME         thing.hostname
//	SOLARPOWER_API_HOST         api.host
//	SOLARPOWER_DIRECTORY_URLS   directory.urls (semicolon separated)
//	SOLARPOWER_MQTT_HOST        mqtt.broker.host
//	SOLARPOWER_MQTT_USERNAME    mqtt.auth.username
//	SOLARPOWER_MQTT_PASSWORD    mqtt.auth.password
//	SOLARPOWER_LOG_LEVEL        logging.level
//	SOLARPOWER_DEVICE_GET       device.command.get
//	SOLARPOWER_DEVICE_SET       device.command.set
package config
