package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
api:
  host: "0.0.0.0"
  port: 9090
devices:
  auto_discovery: true
  manual_hosts:
    - "192.168.10.20"
    - "tuner.lan"
  host_cache_ttl: 2m
monitor:
  interval: 1s
  query_timeout: 500ms
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}

	wantHosts := []string{"192.168.10.20", "tuner.lan"}
	if !reflect.DeepEqual(cfg.Devices.ManualHosts, wantHosts) {
		t.Errorf("Devices.ManualHosts = %v, want %v", cfg.Devices.ManualHosts, wantHosts)
	}

	if cfg.Devices.HostCacheTTL != 2*time.Minute {
		t.Errorf("Devices.HostCacheTTL = %v, want 2m", cfg.Devices.HostCacheTTL)
	}

	if cfg.Monitor.QueryTimeout != 500*time.Millisecond {
		t.Errorf("Monitor.QueryTimeout = %v, want 500ms", cfg.Monitor.QueryTimeout)
	}

	// Unset values keep their defaults
	if cfg.Devices.ConfigBinary != "hdhomerun_config" {
		t.Errorf("Devices.ConfigBinary = %q, want default", cfg.Devices.ConfigBinary)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
devices:
  auto_discovery: false
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error with no discovery source, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name: "manual only",
			mutate: func(c *Config) {
				c.Devices.AutoDiscovery = false
				c.Devices.ManualHosts = []string{"10.0.0.5"}
			},
			wantErr: false,
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "missing binary",
			mutate:  func(c *Config) { c.Devices.ConfigBinary = "" },
			wantErr: true,
		},
		{
			name:    "query timeout equals interval",
			mutate:  func(c *Config) { c.Monitor.QueryTimeout = c.Monitor.Interval },
			wantErr: true,
		},
		{
			name:    "zero interval",
			mutate:  func(c *Config) { c.Monitor.Interval = 0 },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "influx enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: true,
		},
		{
			name: "database enabled without path",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Path = ""
			},
			wantErr: true,
		},
		{
			name:    "negative retention",
			mutate:  func(c *Config) { c.Database.Retention = -time.Hour },
			wantErr: true,
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.Tuner.ProgramRetries = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("TUNERWATCH_API_HOST", "192.168.1.1")
	t.Setenv("TUNERWATCH_API_PORT", "8181")
	t.Setenv("TUNERWATCH_DISABLE_AUTO_DISCOVERY", "true")
	t.Setenv("TUNERWATCH_MANUAL_HOSTS", "10.0.0.5, 10.0.0.6;tuner.lan")
	t.Setenv("TUNERWATCH_MQTT_HOST", "mqtt.example.com")
	t.Setenv("TUNERWATCH_MQTT_USERNAME", "testuser")
	t.Setenv("TUNERWATCH_MQTT_PASSWORD", "testpass")
	t.Setenv("TUNERWATCH_MQTT_ENABLED", "true")
	t.Setenv("TUNERWATCH_INFLUXDB_ENABLED", "yes")
	t.Setenv("TUNERWATCH_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("TUNERWATCH_DATABASE_ENABLED", "1")
	t.Setenv("TUNERWATCH_DATABASE_PATH", "/var/lib/tunerwatch/scans.db")

	applyEnvOverrides(cfg)

	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}
	if cfg.API.Port != 8181 {
		t.Errorf("API.Port = %d, want 8181", cfg.API.Port)
	}
	if cfg.Devices.AutoDiscovery {
		t.Error("Devices.AutoDiscovery = true, want false")
	}

	wantHosts := []string{"10.0.0.5", "10.0.0.6", "tuner.lan"}
	if !reflect.DeepEqual(cfg.Devices.ManualHosts, wantHosts) {
		t.Errorf("Devices.ManualHosts = %v, want %v", cfg.Devices.ManualHosts, wantHosts)
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if !cfg.MQTT.Enabled {
		t.Error("MQTT.Enabled = false, want true")
	}
	// "yes" is not a ParseBool value, so the default stays.
	if cfg.InfluxDB.Enabled {
		t.Error("InfluxDB.Enabled = true, want false")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if !cfg.Database.Enabled || cfg.Database.Path != "/var/lib/tunerwatch/scans.db" {
		t.Errorf("Database = %+v, want enabled at /var/lib/tunerwatch/scans.db", cfg.Database)
	}
}

func TestSplitHosts(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{}},
		{"10.0.0.1", []string{"10.0.0.1"}},
		{"a,b", []string{"a", "b"}},
		{" a ; b ,, c\n", []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		got := SplitHosts(tt.input)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitHosts(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if !cfg.Devices.AutoDiscovery {
		t.Error("defaultConfig should enable auto discovery")
	}
	if cfg.Devices.HostCacheTTL != 5*time.Minute {
		t.Errorf("defaultConfig Devices.HostCacheTTL = %v, want 5m", cfg.Devices.HostCacheTTL)
	}
	if cfg.Database.Retention != 90*24*time.Hour {
		t.Errorf("defaultConfig Database.Retention = %v, want 2160h", cfg.Database.Retention)
	}
	if cfg.Monitor.Interval != time.Second {
		t.Errorf("defaultConfig Monitor.Interval = %v, want 1s", cfg.Monitor.Interval)
	}
	if cfg.Tuner.ProgramRetries != 3 {
		t.Errorf("defaultConfig Tuner.ProgramRetries = %d, want 3", cfg.Tuner.ProgramRetries)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
}
