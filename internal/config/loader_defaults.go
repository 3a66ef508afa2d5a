package config

import "time"

// defaultMQTTConfig returns the default MQTT configuration.
// Host is left empty so publishing stays disabled until a broker is configured.
func defaultMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Host:              "",
		Port:              1883,
		Username:          "",
		Password:          "",
		ClientID:          "ESP-DSMR",
		UniqueClientID:    false,
		Prefix:            "esp-dsmr",
		DiscoveryPrefix:   "homeassistant",
		ReconnectTimeout:  15 * time.Second,
		SocketTimeout:     5 * time.Second,
		KeepAlive:         15 * time.Second,
		DisconnectTimeout: 250,
		SendBufferSize:    500,
		JSONBufferSize:    400,
		OnlySendNewValues: true,
	}
}

// defaultRedisConfig returns the default reading source configuration.
// Address is left empty so ingestion stays off until a Redis server is configured.
func defaultRedisConfig() RedisConfig {
	return RedisConfig{
		Address:      "",
		Stream:       "dsmr-telegrams",
		Consumer:     "dsmr-publisher",
		BatchSize:    10,
		BlockTimeout: 100 * time.Millisecond,
		ClaimIdle:    30 * time.Second,
		DeadConsumer: 10 * time.Minute,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PingTimeout:  5 * time.Second,
	}
}

// defaultLoopConfig returns the default control loop configuration
func defaultLoopConfig() LoopConfig {
	return LoopConfig{
		PollInterval:      1 * time.Second,
		ClaimInterval:     30 * time.Second,
		DiscoverySchedule: "@every 1h",
		ShutdownTimeout:   10 * time.Second,
	}
}

// defaultDeviceConfig returns the default device description
func defaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		Hostname:     "ESP-DSMR",
		MDNSEnabled:  false,
		Manufacturer: "diversit",
		Model:        "ESP8266 DSMR reader",
	}
}

// defaultConfig returns a complete configuration with all default values
func defaultConfig() *Config {
	return &Config{
		MQTT:   defaultMQTTConfig(),
		Redis:  defaultRedisConfig(),
		Loop:   defaultLoopConfig(),
		Device: defaultDeviceConfig(),
		Log:    LogConfig{Level: "info"},
	}
}
