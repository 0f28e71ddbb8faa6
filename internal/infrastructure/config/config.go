package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for tunerwatch.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Devices   DevicesConfig   `yaml:"devices"`
	Tuner     TunerConfig     `yaml:"tuner"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
// Write must cover a channel scan when the scan endpoint is used.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// DevicesConfig controls how tuner devices are found.
type DevicesConfig struct {
	// ConfigBinary is the vendor configuration tool used for every device query.
	// Default: "hdhomerun_config"
	ConfigBinary string `yaml:"config_binary"`

	// AutoDiscovery enables broadcast and cloud discovery. When false only
	// ManualHosts are listed.
	AutoDiscovery bool `yaml:"auto_discovery"`

	// ManualHosts are hostnames or IPs of devices that broadcast discovery
	// cannot reach (other subnets, VPNs).
	ManualHosts []string `yaml:"manual_hosts"`

	// HostCacheTTL is how long a resolved manual host stays cached.
	// Default: 5m
	HostCacheTTL time.Duration `yaml:"host_cache_ttl"`

	// CloudDiscoveryURL is queried when broadcast discovery finds nothing.
	CloudDiscoveryURL string `yaml:"cloud_discovery_url"`

	// DiscoveryTimeout bounds broadcast and cloud discovery calls.
	// Default: 10s
	DiscoveryTimeout time.Duration `yaml:"discovery_timeout"`
}

// TunerConfig contains settings for direct tuner queries.
type TunerConfig struct {
	// CommandTimeout bounds reads and channel changes issued outside the poll loop.
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// ScanTimeout bounds a full channel scan.
	ScanTimeout time.Duration `yaml:"scan_timeout"`

	// ProgramRetries is how many times an empty program list is re-queried.
	ProgramRetries int `yaml:"program_retries"`
}

// MonitorConfig contains polling loop settings.
type MonitorConfig struct {
	// Interval is the tick cadence of every monitoring session.
	Interval time.Duration `yaml:"interval"`

	// QueryTimeout bounds each query issued by a tick. Must be below Interval.
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// Commands subscribes to tunerwatch/command/+/+ and applies tuner
	// commands received there. Off by default: anyone with broker write
	// access can retune the device.
	Commands bool `yaml:"commands"`
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

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// DatabaseConfig contains the SQLite store for channel scan history.
type DatabaseConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	WALMode bool   `yaml:"wal_mode"`

	// BusyTimeout is in seconds.
	BusyTimeout int `yaml:"busy_timeout"`

	// Retention is how long stored scans are kept. Zero keeps them forever.
	Retention time.Duration `yaml:"retention"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: TUNERWATCH_SECTION_KEY
// For example: TUNERWATCH_API_PORT, TUNERWATCH_MANUAL_HOSTS
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading a file.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 120,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Devices: DevicesConfig{
			ConfigBinary:      "hdhomerun_config",
			AutoDiscovery:     true,
			HostCacheTTL:      5 * time.Minute,
			CloudDiscoveryURL: "https://api.hdhomerun.com/discover",
			DiscoveryTimeout:  10 * time.Second,
		},
		Tuner: TunerConfig{
			CommandTimeout: 5 * time.Second,
			ScanTimeout:    90 * time.Second,
			ProgramRetries: 3,
		},
		Monitor: MonitorConfig{
			Interval:     time.Second,
			QueryTimeout: 700 * time.Millisecond,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "tunerwatch",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "tunerwatch",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Database: DatabaseConfig{
			Path:        "data/tunerwatch.db",
			WALMode:     true,
			BusyTimeout: 5,
			Retention:   90 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: TUNERWATCH_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// API
	if v := os.Getenv("TUNERWATCH_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("TUNERWATCH_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Devices
	if v := os.Getenv("TUNERWATCH_CONFIG_BINARY"); v != "" {
		cfg.Devices.ConfigBinary = v
	}
	if v := os.Getenv("TUNERWATCH_DISABLE_AUTO_DISCOVERY"); v != "" {
		if disabled, err := strconv.ParseBool(v); err == nil {
			cfg.Devices.AutoDiscovery = !disabled
		}
	}
	if v := os.Getenv("TUNERWATCH_MANUAL_HOSTS"); v != "" {
		cfg.Devices.ManualHosts = SplitHosts(v)
	}

	// MQTT
	if v := os.Getenv("TUNERWATCH_MQTT_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.MQTT.Enabled = enabled
		}
	}
	if v := os.Getenv("TUNERWATCH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("TUNERWATCH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("TUNERWATCH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("TUNERWATCH_INFLUXDB_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.InfluxDB.Enabled = enabled
		}
	}
	if v := os.Getenv("TUNERWATCH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Database
	if v := os.Getenv("TUNERWATCH_DATABASE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Database.Enabled = enabled
		}
	}
	if v := os.Getenv("TUNERWATCH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
}

// SplitHosts splits a delimited host list. Commas, semicolons and
// whitespace are all accepted as separators; empty entries are dropped.
func SplitHosts(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ',', ';', ' ', '\t', '\n', '\r':
			return true
		}
		return false
	})
	hosts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			hosts = append(hosts, f)
		}
	}
	return hosts
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Devices.ConfigBinary == "" {
		errs = append(errs, "devices.config_binary is required")
	}
	if c.Devices.HostCacheTTL <= 0 {
		errs = append(errs, "devices.host_cache_ttl must be positive")
	}
	if c.Devices.DiscoveryTimeout <= 0 {
		errs = append(errs, "devices.discovery_timeout must be positive")
	}
	if !c.Devices.AutoDiscovery && len(c.Devices.ManualHosts) == 0 {
		errs = append(errs, "devices.manual_hosts is required when auto_discovery is disabled")
	}

	if c.Tuner.ProgramRetries < 0 {
		errs = append(errs, "tuner.program_retries must not be negative")
	}

	// A poll query that can outlive its tick would stack ticks behind it.
	if c.Monitor.Interval <= 0 {
		errs = append(errs, "monitor.interval must be positive")
	} else if c.Monitor.QueryTimeout <= 0 || c.Monitor.QueryTimeout >= c.Monitor.Interval {
		errs = append(errs, "monitor.query_timeout must be positive and shorter than monitor.interval")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}
	if c.Database.Retention < 0 {
		errs = append(errs, "database.retention must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
