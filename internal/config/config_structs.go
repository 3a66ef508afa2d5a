// Package config provides configuration loading and validation from a YAML file, environment variables and command line flags.
package config

import "time"

// Config holds the complete configuration
type Config struct {
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Redis  RedisConfig  `yaml:"redis"`
	Loop   LoopConfig   `yaml:"loop"`
	Device DeviceConfig `yaml:"device"`
	Log    LogConfig    `yaml:"log"`
}

// MQTTConfig holds the broker connection and topic namespace settings.
// Leaving Host empty or Port zero disables MQTT publishing.
type MQTTConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	ClientID          string        `yaml:"client_id"`
	UniqueClientID    bool          `yaml:"unique_client_id"` // Append a time-based suffix to ClientID
	Prefix            string        `yaml:"prefix"`
	DiscoveryPrefix   string        `yaml:"discovery_prefix"`
	ReconnectTimeout  time.Duration `yaml:"reconnect_timeout"`
	SocketTimeout     time.Duration `yaml:"socket_timeout"`
	KeepAlive         time.Duration `yaml:"keep_alive"`
	DisconnectTimeout uint          `yaml:"disconnect_timeout"` // Milliseconds for graceful disconnect
	SendBufferSize    int           `yaml:"send_buffer_size"`
	JSONBufferSize    int           `yaml:"json_buffer_size"`
	OnlySendNewValues bool          `yaml:"only_send_new_values"`
}

// Enabled reports whether a broker target is configured
func (c MQTTConfig) Enabled() bool {
	return c.Host != "" && c.Port != 0
}

// RedisConfig holds the reading source stream settings.
// An empty Address disables reading ingestion.
type RedisConfig struct {
	Address      string        `yaml:"address"`
	Stream       string        `yaml:"stream"`
	Consumer     string        `yaml:"consumer"`
	BatchSize    int           `yaml:"batch_size"`
	BlockTimeout time.Duration `yaml:"block_timeout"`
	ClaimIdle    time.Duration `yaml:"claim_idle"`
	DeadConsumer time.Duration `yaml:"dead_consumer"` // Idle time after which other consumers are removed
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PingTimeout  time.Duration `yaml:"ping_timeout"`
}

// LoopConfig holds control loop scheduling settings
type LoopConfig struct {
	PollInterval      time.Duration `yaml:"poll_interval"`
	ClaimInterval     time.Duration `yaml:"claim_interval"`
	DiscoverySchedule string        `yaml:"discovery_schedule"` // Cron spec, empty disables periodic re-announcement
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// DeviceConfig describes the meter reader itself
type DeviceConfig struct {
	Hostname     string `yaml:"hostname"`
	MDNSEnabled  bool   `yaml:"mdns_enabled"`
	Manufacturer string `yaml:"manufacturer"`
	Model        string `yaml:"model"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"`
}
