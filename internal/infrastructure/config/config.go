package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the solar power monitor.
// Values come from defaults, an optional YAML file, environment variables
// and finally command line flags, in that order.
type Config struct {
	Thing     ThingConfig     `yaml:"thing"`
	Device    DeviceConfig    `yaml:"device"`
	API       APIConfig       `yaml:"api"`
	Directory DirectoryConfig `yaml:"directory"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ThingConfig describes how the device presents itself to clients and directories.
type ThingConfig struct {
	// Description is the one-line text served on "/".
	Description string `yaml:"description"`

	// Protocol is the URL scheme used in the derived base URL.
	Protocol string `yaml:"protocol"`

	// Hostname is the advertised host name. Empty means "<os hostname>.local".
	Hostname string `yaml:"hostname"`

	// TemplateFile is the Thing Description template. Empty uses the embedded copy.
	TemplateFile string `yaml:"template_file"`

	// DescriptionFile is the long-form markdown served on "/desc".
	// Empty uses the embedded copy.
	DescriptionFile string `yaml:"description_file"`
}

// DeviceConfig selects the device and the transport used to reach it.
type DeviceConfig struct {
	Index      int              `yaml:"index"`
	Transport  string           `yaml:"transport"` // "memory" or "command"
	Command    CommandConfig    `yaml:"command"`
	Properties []PropertyConfig `yaml:"properties"`
}

// CommandConfig configures the external helper commands of the command transport.
type CommandConfig struct {
	Get     string `yaml:"get"`
	Set     string `yaml:"set"`
	Timeout int    `yaml:"timeout"` // seconds
}

// PropertyConfig overrides one entry of the default property table.
type PropertyConfig struct {
	Code       string `yaml:"code"`
	Alias      string `yaml:"alias"`
	Readable   *bool  `yaml:"readable"`
	Writable   *bool  `yaml:"writable"`
	Observable *bool  `yaml:"observable"`
	Schema     string `yaml:"schema"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host           string           `yaml:"host"`
	Port           int              `yaml:"port"`
	Timeouts       APITimeoutConfig `yaml:"timeouts"`
	MaxBodyBytes   int64            `yaml:"max_body_bytes"`
	ObserveTimeout int              `yaml:"observe_timeout"` // seconds
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// DirectoryConfig lists the Thing Directories the description is registered with.
type DirectoryConfig struct {
	URLs    []string `yaml:"urls"`
	TTL     int      `yaml:"ttl"`     // seconds
	Timeout int      `yaml:"timeout"` // seconds, per registration request
}

// DiscoveryConfig contains local network discovery settings.
type DiscoveryConfig struct {
	MDNS MDNSConfig `yaml:"mdns"`
}

// MDNSConfig controls DNS-SD advertisement of the API.
type MDNSConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Service   string `yaml:"service"`
	Interface string `yaml:"interface"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Commands    bool                `yaml:"commands"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// MetricsConfig controls the Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"` // stdout, stderr or file
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`    // megabytes
	MaxBackups int    `yaml:"max_backups"` // files
	MaxAge     int    `yaml:"max_age"`     // days
	Compress   bool   `yaml:"compress"`
}

// envOverrides lists the SOLARPOWER_* variables that override file values.
// Only string fields are used so that an unset variable is distinguishable
// from an explicit zero.
type envOverrides struct {
	Hostname     string   `env:"SOLARPOWER_HOSTNAME"`
	APIHost      string   `env:"SOLARPOWER_API_HOST"`
	Directories  []string `env:"SOLARPOWER_DIRECTORY_URLS"` // semicolon separated
	MQTTHost     string   `env:"SOLARPOWER_MQTT_HOST"`
	MQTTUsername string   `env:"SOLARPOWER_MQTT_USERNAME"`
	MQTTPassword string   `env:"SOLARPOWER_MQTT_PASSWORD"`
	LogLevel     string   `env:"SOLARPOWER_LOG_LEVEL"`
	DeviceGet    string   `env:"SOLARPOWER_DEVICE_GET"`
	DeviceSet    string   `env:"SOLARPOWER_DEVICE_SET"`
}

// Load builds the configuration.
//
// The loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values, when path is non-empty
//  3. Environment variables (SOLARPOWER_*)
//
// Command line flags are applied by the caller afterwards, followed by Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with the stock defaults (port 9195, TTL 600s).
func Default() *Config {
	return &Config{
		Thing: ThingConfig{
			Description: "Solar Power Monitor",
			Protocol:    "http",
		},
		Device: DeviceConfig{
			Index:     0,
			Transport: "memory",
			Command: CommandConfig{
				Timeout: 5,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 9195,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 90,
				Idle:  120,
			},
			MaxBodyBytes:   1_000_000,
			ObserveTimeout: 60,
		},
		Directory: DirectoryConfig{
			TTL:     600,
			Timeout: 30,
		},
		Discovery: DiscoveryConfig{
			MDNS: MDNSConfig{
				Service: "_wot._tcp",
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "solarpower",
			},
			QoS:         1,
			TopicPrefix: "solarpower",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Metrics: MetricsConfig{
			Host: "0.0.0.0",
			Port: 9196,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/solarpower.log",
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     28,
			},
		},
	}
}

// applyEnvOverrides applies SOLARPOWER_* environment variables to cfg.
func applyEnvOverrides(cfg *Config) error {
	var env envOverrides
	if err := envdecode.Decode(&env); err != nil {
		if errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return nil
		}
		return err
	}

	if env.Hostname != "" {
		cfg.Thing.Hostname = env.Hostname
	}
	if env.APIHost != "" {
		cfg.API.Host = env.APIHost
	}
	if len(env.Directories) > 0 {
		cfg.Directory.URLs = env.Directories
	}
	if env.MQTTHost != "" {
		cfg.MQTT.Broker.Host = env.MQTTHost
	}
	if env.MQTTUsername != "" {
		cfg.MQTT.Auth.Username = env.MQTTUsername
	}
	if env.MQTTPassword != "" {
		cfg.MQTT.Auth.Password = env.MQTTPassword
	}
	if env.LogLevel != "" {
		cfg.Logging.Level = env.LogLevel
	}
	if env.DeviceGet != "" {
		cfg.Device.Command.Get = env.DeviceGet
	}
	if env.DeviceSet != "" {
		cfg.Device.Command.Set = env.DeviceSet
	}
	return nil
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Thing.Protocol == "" {
		errs = append(errs, "thing.protocol is required")
	}

	if c.Device.Index < 0 {
		errs = append(errs, "device.index must not be negative")
	}
	switch c.Device.Transport {
	case "memory":
	case "command":
		if c.Device.Command.Get == "" || c.Device.Command.Set == "" {
			errs = append(errs, "device.command.get and device.command.set are required for the command transport")
		}
	default:
		errs = append(errs, fmt.Sprintf("device.transport %q is not one of memory, command", c.Device.Transport))
	}
	for i, p := range c.Device.Properties {
		if p.Code == "" {
			errs = append(errs, fmt.Sprintf("device.properties[%d].code is required", i))
		}
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.MaxBodyBytes <= 0 {
		errs = append(errs, "api.max_body_bytes must be positive")
	}
	if c.API.ObserveTimeout < 0 {
		errs = append(errs, "api.observe_timeout must not be negative")
	}
	// A long-poll reply written after the write deadline is lost.
	if c.API.Timeouts.Write > 0 && c.API.ObserveTimeout >= c.API.Timeouts.Write {
		errs = append(errs, "api.observe_timeout must be shorter than api.timeouts.write")
	}

	if c.Directory.TTL <= 0 {
		errs = append(errs, "directory.ttl must be positive")
	}

	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		errs = append(errs, "metrics.port must be between 1 and 65535")
	}
	if c.Metrics.Enabled && c.Metrics.Port == c.API.Port {
		errs = append(errs, "metrics.port must differ from api.port")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DirectoryURLs returns the configured directories without empty entries.
func (c *Config) DirectoryURLs() []string {
	urls := make([]string, 0, len(c.Directory.URLs))
	for _, u := range c.Directory.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// GetReadTimeout returns the read timeout as a Duration.
func (c APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the write timeout as a Duration.
func (c APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the idle timeout as a Duration.
func (c APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}

// GetObserveTimeout returns how long an observe request waits for a change.
func (c APIConfig) GetObserveTimeout() time.Duration {
	return time.Duration(c.ObserveTimeout) * time.Second
}
